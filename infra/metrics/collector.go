package metrics

import (
	"context"

	"github.com/kilianp07/fuelbuddy/core/events"
	"github.com/kilianp07/fuelbuddy/core/logger"
	coremetrics "github.com/kilianp07/fuelbuddy/core/metrics"
	"github.com/kilianp07/fuelbuddy/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus[events.Event], sink coremetrics.MetricsSink, log logger.Logger) {
	if bus == nil || sink == nil {
		return
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("record %s: %v", ev.EventName(), err)
				}
			}
		}
	}()
}

func record(sink coremetrics.MetricsSink, ev events.Event) error {
	switch e := ev.(type) {
	case events.StateChanged:
		return sink.RecordRangeState(coremetrics.RangeState{Evaluation: e.Evaluation, Time: e.Time})
	case events.RideCompleted:
		if r, ok := sink.(coremetrics.RideRecorder); ok {
			t := e.Ride.StartTime
			if e.Ride.EndTime != nil {
				t = *e.Ride.EndTime
			}
			return r.RecordRide(coremetrics.RideEvent{Ride: e.Ride, Time: t})
		}
	case events.FilledUp:
		if r, ok := sink.(coremetrics.FillUpRecorder); ok {
			return r.RecordFillUp(e.FillUp)
		}
	case events.BandAlert:
		if r, ok := sink.(coremetrics.BandAlertRecorder); ok {
			return r.RecordBandAlert(coremetrics.BandAlertEvent{
				Notification: e.Notification,
				Remaining:    e.Evaluation.RemainingDistance,
				Time:         e.Time,
			})
		}
	case events.SampleDropped:
		if r, ok := sink.(coremetrics.SampleDropRecorder); ok {
			return r.RecordSampleDropped(e.Reason)
		}
	}
	return nil
}
