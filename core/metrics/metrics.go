package metrics

import (
	"time"

	"github.com/kilianp07/fuelbuddy/core/fuel"
	"github.com/kilianp07/fuelbuddy/core/rangeeval"
	"github.com/kilianp07/fuelbuddy/core/ride"
)

// RangeState is one evaluation of the fuel state.
type RangeState struct {
	Evaluation rangeeval.Evaluation
	Time       time.Time
}

// MetricsSink records range states for observability purposes.
type MetricsSink interface {
	RecordRangeState(ev RangeState) error
}

// RideEvent describes a ride finalized into history.
type RideEvent struct {
	Ride ride.Record
	Time time.Time
}

// RideRecorder records completed rides.
type RideRecorder interface {
	RecordRide(ev RideEvent) error
}

// FillUpRecorder records fill-ups.
type FillUpRecorder interface {
	RecordFillUp(f fuel.FillUp) error
}

// BandAlertEvent is an upward band transition.
type BandAlertEvent struct {
	Notification rangeeval.Notification
	Remaining    float64
	Time         time.Time
}

// BandAlertRecorder records band alerts.
type BandAlertRecorder interface {
	RecordBandAlert(ev BandAlertEvent) error
}

// SampleDropRecorder counts rejected telemetry.
type SampleDropRecorder interface {
	RecordSampleDropped(reason string) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRangeState(RangeState) error    { return nil }
func (NopSink) RecordRide(RideEvent) error           { return nil }
func (NopSink) RecordFillUp(fuel.FillUp) error       { return nil }
func (NopSink) RecordBandAlert(BandAlertEvent) error { return nil }
func (NopSink) RecordSampleDropped(string) error     { return nil }
