package tracker

import (
	"github.com/kilianp07/fuelbuddy/core/fuel"
	"github.com/kilianp07/fuelbuddy/core/rangeeval"
	"github.com/kilianp07/fuelbuddy/core/ride"
	"github.com/kilianp07/fuelbuddy/core/units"
)

// Status is an evaluation with its display strings.
type Status struct {
	rangeeval.Evaluation
	State       string `json:"state"`
	StatusText  string `json:"status_text"`
	Unit        string `json:"unit"`
	Remaining   string `json:"remaining_display"`
	SinceFill   string `json:"since_fill_display"`
	TotalRange  string `json:"total_range_display"`
	CurrentRide string `json:"current_ride_display"`
}

// NewStatus formats ev for the unit preference in s.
func NewStatus(ev rangeeval.Evaluation, s fuel.Settings, conv units.Converter) Status {
	p := s.Preference()
	state := ride.Idle
	if ev.Tracking {
		state = ride.Tracking
	}
	return Status{
		Evaluation:  ev,
		State:       state.String(),
		StatusText:  ev.Band.StatusText(),
		Unit:        conv.UnitLabel(p),
		Remaining:   conv.FormatDistance(ev.RemainingDistance, p, 1),
		SinceFill:   conv.FormatDistance(ev.EffectiveDistanceSinceFill, p, 1),
		TotalRange:  conv.FormatDistance(ev.TotalRange, p, 1),
		CurrentRide: conv.FormatDistance(ev.CurrentRideDistance, p, 2),
	}
}

// Status returns the current evaluation with display strings.
func (t *Tracker) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return NewStatus(t.evaluate(), t.settings, t.conv)
}
