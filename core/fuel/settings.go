// Package fuel holds the tank and economy settings the range estimate is
// computed from, together with the calibration helpers that derive a new
// fuel economy from a fill-up.
//
// All quantities are canonical: gallons, miles and miles per gallon.
package fuel

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/kilianp07/fuelbuddy/core/units"
)

// ErrInvalidSettings is wrapped by every validation failure.
var ErrInvalidSettings = errors.New("invalid fuel settings")

// Settings describes the scooter's tank and the alert thresholds.
type Settings struct {
	TankCapacity    float64          `json:"tank_capacity" validate:"gt=0"`
	FuelEconomy     float64          `json:"fuel_economy" validate:"gt=0"`
	WarnThreshold   float64          `json:"warn_threshold" validate:"gte=0,ltfield=DangerThreshold"`
	DangerThreshold float64          `json:"danger_threshold" validate:"gt=0"`
	UnitPreference  units.Preference `json:"unit_preference" validate:"omitempty,oneof=system imperial metric"`
}

// Defaults match a stock 50cc four-stroke tank.
var Defaults = Settings{
	TankCapacity:    1.45,
	FuelEconomy:     56,
	WarnThreshold:   50,
	DangerThreshold: 66,
	UnitPreference:  units.System,
}

// LegacyDefaults were shipped by the first release. Stored settings that still
// equal them are treated as never having been edited.
var LegacyDefaults = Settings{
	TankCapacity:    1.8,
	FuelEconomy:     70,
	WarnThreshold:   100,
	DangerThreshold: 120,
}

var validate = validator.New()

// New builds validated settings.
func New(tank, economy, warn, danger float64, pref units.Preference) (Settings, error) {
	s := Settings{
		TankCapacity:    tank,
		FuelEconomy:     economy,
		WarnThreshold:   warn,
		DangerThreshold: danger,
		UnitPreference:  pref,
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks positivity of the tank and economy and that
// 0 <= warn < danger.
func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s (value: %v)", e.Field(), e.Tag(), e.Value()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(msgs, "; "))
}

// TotalRange is the distance a full tank covers. It never goes negative: a
// non-positive tank or economy yields 0.
func (s Settings) TotalRange() float64 {
	if s.TankCapacity <= 0 || s.FuelEconomy <= 0 {
		return 0
	}
	return s.TankCapacity * s.FuelEconomy
}

// Preference returns the display preference, System when unset.
func (s Settings) Preference() units.Preference {
	if s.UnitPreference == "" {
		return units.System
	}
	return s.UnitPreference
}

// Migrate replaces untouched legacy defaults with the current defaults, keeping
// the unit preference the rider chose.
func Migrate(s Settings) Settings {
	if s.TankCapacity == LegacyDefaults.TankCapacity &&
		s.FuelEconomy == LegacyDefaults.FuelEconomy &&
		s.WarnThreshold == LegacyDefaults.WarnThreshold &&
		s.DangerThreshold == LegacyDefaults.DangerThreshold {
		out := Defaults
		if s.UnitPreference != "" {
			out.UnitPreference = s.UnitPreference
		}
		return out
	}
	return s
}
