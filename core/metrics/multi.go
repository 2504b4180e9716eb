package metrics

import (
	"errors"

	"github.com/kilianp07/fuelbuddy/core/fuel"
)

// MultiSink fans records out to multiple sinks. Sinks that do not implement
// an optional recorder are skipped for that record.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRangeState forwards to all sinks and joins their errors.
func (m *MultiSink) RecordRangeState(ev RangeState) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordRangeState(ev))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordRide(ev RideEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(RideRecorder); ok {
			errs = append(errs, r.RecordRide(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordFillUp(f fuel.FillUp) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(FillUpRecorder); ok {
			errs = append(errs, r.RecordFillUp(f))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordBandAlert(ev BandAlertEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(BandAlertRecorder); ok {
			errs = append(errs, r.RecordBandAlert(ev))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordSampleDropped(reason string) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(SampleDropRecorder); ok {
			errs = append(errs, r.RecordSampleDropped(reason))
		}
	}
	return errors.Join(errs...)
}
