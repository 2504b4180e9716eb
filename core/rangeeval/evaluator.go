// Package rangeeval turns fuel settings and the distance ridden since the last
// fill into a remaining-range estimate and a status band.
package rangeeval

import (
	"fmt"
	"math"

	"github.com/kilianp07/fuelbuddy/core/fuel"
)

// Band is the three-level fuel status.
type Band int

const (
	BandOK Band = iota
	BandWarn
	BandDanger
)

func (b Band) String() string {
	switch b {
	case BandWarn:
		return "warn"
	case BandDanger:
		return "danger"
	default:
		return "ok"
	}
}

// StatusText is the rider-facing description of the band.
func (b Band) StatusText() string {
	switch b {
	case BandWarn:
		return "Expect reserve soon"
	case BandDanger:
		return "On reserve — fuel up"
	default:
		return "OK"
	}
}

// MarshalText encodes the band by name.
func (b Band) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// UnmarshalText decodes a band name.
func (b *Band) UnmarshalText(text []byte) error {
	switch string(text) {
	case "ok":
		*b = BandOK
	case "warn":
		*b = BandWarn
	case "danger":
		*b = BandDanger
	default:
		return fmt.Errorf("unknown band %q", text)
	}
	return nil
}

// Input is the state the evaluation is computed from.
type Input struct {
	Settings            fuel.Settings
	DistanceSinceFill   float64
	CurrentRideDistance float64
	Tracking            bool
}

// Evaluation is derived output. It is recomputed on demand and never stored.
type Evaluation struct {
	TotalRange                 float64 `json:"total_range"`
	EffectiveDistanceSinceFill float64 `json:"distance_since_fill"`
	CurrentRideDistance        float64 `json:"current_ride_distance"`
	RemainingDistance          float64 `json:"remaining_distance"`
	FillFraction               float64 `json:"fill_fraction"`
	WarnFraction               float64 `json:"warn_fraction"`
	DangerFraction             float64 `json:"danger_fraction"`
	Band                       Band    `json:"band"`
	Tracking                   bool    `json:"tracking"`
}

// Evaluate applies the range formulas to in.
func Evaluate(in Input) Evaluation {
	s := in.Settings
	total := s.TotalRange()
	eff := in.DistanceSinceFill
	if in.Tracking {
		eff += in.CurrentRideDistance
	}
	ev := Evaluation{
		TotalRange:                 total,
		EffectiveDistanceSinceFill: eff,
		CurrentRideDistance:        in.CurrentRideDistance,
		RemainingDistance:          math.Max(0, total-eff),
		Band:                       BandFor(eff, s.WarnThreshold, s.DangerThreshold),
		Tracking:                   in.Tracking,
	}
	if total > 0 {
		ev.FillFraction = clamp01((total - eff) / total)
	}
	// Gauge zone markers; the floor keeps a tiny tank from exploding them.
	denom := math.Max(1, total)
	ev.WarnFraction = s.WarnThreshold / denom
	ev.DangerFraction = s.DangerThreshold / denom
	return ev
}

// BandFor classifies a distance. Reaching a threshold exactly enters the band.
func BandFor(distance, warn, danger float64) Band {
	switch {
	case distance < warn:
		return BandOK
	case distance < danger:
		return BandWarn
	default:
		return BandDanger
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
