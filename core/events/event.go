package events

import (
	"time"

	"github.com/kilianp07/fuelbuddy/core/fuel"
	"github.com/kilianp07/fuelbuddy/core/rangeeval"
	"github.com/kilianp07/fuelbuddy/core/ride"
)

// Event is any value published on the tracker bus.
type Event interface {
	EventName() string
}

// StateChanged carries the evaluation after a mutation.
type StateChanged struct {
	Evaluation rangeeval.Evaluation
	Time       time.Time
}

// RideStarted is published when tracking begins.
type RideStarted struct {
	Ride ride.Record
}

// RideCompleted is published when a ride is finalized into history.
type RideCompleted struct {
	Ride ride.Record
}

// FilledUp is published after the since-fill counter was reset.
type FilledUp struct {
	FillUp fuel.FillUp
}

// BandAlert is published on an upward band transition only.
type BandAlert struct {
	Notification rangeeval.Notification
	Evaluation   rangeeval.Evaluation
	Time         time.Time
}

// SampleDropped is published when telemetry is rejected.
type SampleDropped struct {
	Sample ride.Sample
	Reason string
}

// SettingsChanged is published after settings were replaced or calibrated.
type SettingsChanged struct {
	Settings fuel.Settings
	Source   string
}

func (StateChanged) EventName() string    { return "state_changed" }
func (RideStarted) EventName() string     { return "ride_started" }
func (RideCompleted) EventName() string   { return "ride_completed" }
func (FilledUp) EventName() string        { return "filled_up" }
func (BandAlert) EventName() string       { return "band_alert" }
func (SampleDropped) EventName() string   { return "sample_dropped" }
func (SettingsChanged) EventName() string { return "settings_changed" }
