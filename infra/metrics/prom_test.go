package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/fuelbuddy/core/fuel"
	coremetrics "github.com/kilianp07/fuelbuddy/core/metrics"
	"github.com/kilianp07/fuelbuddy/core/rangeeval"
	"github.com/kilianp07/fuelbuddy/core/ride"
)

func newPromSink(t *testing.T, reg prometheus.Registerer) *PromSink {
	t.Helper()
	sinkIf, err := NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	sink, ok := sinkIf.(*PromSink)
	if !ok {
		t.Fatalf("expected PromSink")
	}
	return sink
}

func TestPromSink_RecordRangeState(t *testing.T) {
	sink := newPromSink(t, prometheus.NewRegistry())
	ev := rangeeval.Evaluate(rangeeval.Input{Settings: fuel.Defaults, DistanceSinceFill: 70, Tracking: true, CurrentRideDistance: 2})
	if err := sink.RecordRangeState(coremetrics.RangeState{Evaluation: ev}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	if got := testutil.ToFloat64(sink.band); got != 2 {
		t.Fatalf("expected danger band 2, got %v", got)
	}
	if got := testutil.ToFloat64(sink.sinceFill); got != 72 {
		t.Fatalf("expected 72 since fill, got %v", got)
	}
	if got := testutil.ToFloat64(sink.tracking); got != 1 {
		t.Fatalf("expected tracking 1, got %v", got)
	}
}

func TestPromSink_Counters(t *testing.T) {
	sink := newPromSink(t, prometheus.NewRegistry())
	_ = sink.RecordRide(coremetrics.RideEvent{Ride: ride.Record{Distance: 4.5}})
	_ = sink.RecordFillUp(fuel.FillUp{FuelAdded: 1.2})
	_ = sink.RecordSampleDropped("noise")
	_ = sink.RecordSampleDropped("noise")
	if n := rangeeval.Transition(rangeeval.BandOK, rangeeval.BandWarn); n != nil {
		_ = sink.RecordBandAlert(coremetrics.BandAlertEvent{Notification: *n})
	}

	if got := testutil.ToFloat64(sink.rideMiles); got != 4.5 {
		t.Fatalf("expected 4.5 ride miles, got %v", got)
	}
	if got := testutil.ToFloat64(sink.fillUps); got != 1 {
		t.Fatalf("expected 1 fill-up, got %v", got)
	}
	expected := `
# HELP fuel_samples_dropped_total Telemetry samples rejected by the noise gate
# TYPE fuel_samples_dropped_total counter
fuel_samples_dropped_total{reason="noise"} 2
`
	if err := testutil.CollectAndCompare(sink.dropped, strings.NewReader(expected)); err != nil {
		t.Fatalf("unexpected dropped metrics: %v", err)
	}
	if got := testutil.ToFloat64(sink.alerts.WithLabelValues("entered_warn")); got != 1 {
		t.Fatalf("expected 1 warn alert, got %v", got)
	}
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := newPromSink(t, reg)
	second := newPromSink(t, reg)
	_ = first.RecordFillUp(fuel.FillUp{})
	_ = second.RecordFillUp(fuel.FillUp{})
	if got := testutil.ToFloat64(first.fillUps); got != 2 {
		t.Fatalf("expected shared counter at 2, got %v", got)
	}
}
