// Package units converts between the canonical storage units (miles, gallons)
// and the distance system the rider wants to read.
//
// Values are always stored canonically. Conversion happens only at the display
// boundary and converted values are never written back.
package units

import (
	"fmt"
	"strings"
)

const (
	// KilometersPerMile converts canonical miles to kilometers.
	KilometersPerMile = 1.60934
	// LitersPerGallon converts canonical gallons to liters.
	LitersPerGallon = 3.78541
	// MilesPerMeter converts raw telemetry meters to canonical miles.
	MilesPerMeter = 0.000621371
)

// Preference selects the display system.
type Preference string

const (
	System   Preference = "system"
	Imperial Preference = "imperial"
	Metric   Preference = "metric"
)

// ParsePreference accepts the three known names, case-insensitively. An empty
// string resolves to System.
func ParsePreference(s string) (Preference, error) {
	switch Preference(strings.ToLower(strings.TrimSpace(s))) {
	case "", System:
		return System, nil
	case Imperial:
		return Imperial, nil
	case Metric:
		return Metric, nil
	}
	return "", fmt.Errorf("unknown unit preference %q", s)
}

// Converter resolves preferences against the host measurement system.
// SystemMetric reports whether the host is configured for metric units; a nil
// func means imperial.
type Converter struct {
	SystemMetric func() bool
}

// NewConverter returns a Converter using the given host capability.
func NewConverter(systemMetric func() bool) Converter {
	return Converter{SystemMetric: systemMetric}
}

// UsesMetric reports whether distances are displayed in kilometers.
func (c Converter) UsesMetric(p Preference) bool {
	switch p {
	case Metric:
		return true
	case Imperial:
		return false
	default:
		return c.SystemMetric != nil && c.SystemMetric()
	}
}

// ToDisplayDistance converts canonical miles into the display unit.
func (c Converter) ToDisplayDistance(miles float64, p Preference) float64 {
	if c.UsesMetric(p) {
		return miles * KilometersPerMile
	}
	return miles
}

// ToCanonicalDistance converts a value entered in the display unit into miles.
func (c Converter) ToCanonicalDistance(v float64, p Preference) float64 {
	if c.UsesMetric(p) {
		return v / KilometersPerMile
	}
	return v
}

// ToDisplayVolume converts canonical gallons into the display unit.
func (c Converter) ToDisplayVolume(gallons float64, p Preference) float64 {
	if c.UsesMetric(p) {
		return gallons * LitersPerGallon
	}
	return gallons
}

// ToCanonicalVolume converts a volume entered in the display unit into gallons.
func (c Converter) ToCanonicalVolume(v float64, p Preference) float64 {
	if c.UsesMetric(p) {
		return v / LitersPerGallon
	}
	return v
}

// UnitLabel returns "km" or "mi".
func (c Converter) UnitLabel(p Preference) string {
	if c.UsesMetric(p) {
		return "km"
	}
	return "mi"
}

// VolumeLabel returns "L" or "gal".
func (c Converter) VolumeLabel(p Preference) string {
	if c.UsesMetric(p) {
		return "L"
	}
	return "gal"
}

// FormatDistance renders canonical miles as "{value} {label}" with a fixed
// number of decimals. Negative decimals are treated as zero.
func (c Converter) FormatDistance(miles float64, p Preference, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return fmt.Sprintf("%.*f %s", decimals, c.ToDisplayDistance(miles, p), c.UnitLabel(p))
}

// MetersToMiles converts a raw telemetry delta to canonical miles.
func MetersToMiles(m float64) float64 { return m * MilesPerMeter }
