package metrics

import (
	"errors"

	"github.com/kilianp07/fuelbuddy/core/fuel"
	coremetrics "github.com/kilianp07/fuelbuddy/core/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// PromSink exposes the fuel state as Prometheus metrics.
type PromSink struct {
	remaining prometheus.Gauge
	sinceFill prometheus.Gauge
	fill      prometheus.Gauge
	band      prometheus.Gauge
	tracking  prometheus.Gauge
	rides     prometheus.Counter
	rideMiles prometheus.Counter
	fillUps   prometheus.Counter
	fuelAdded prometheus.Counter
	alerts    *prometheus.CounterVec
	dropped   *prometheus.CounterVec
}

// NewPromSink registers fuel metrics on the default Prometheus registerer.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		remaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fuel_remaining_miles",
			Help: "Estimated distance left before the tank is empty",
		}),
		sinceFill: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fuel_distance_since_fill_miles",
			Help: "Effective distance since the last fill-up, including the ride in progress",
		}),
		fill: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fuel_fill_fraction",
			Help: "Estimated tank fill level between 0 and 1",
		}),
		band: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fuel_band",
			Help: "Warning band: 0 ok, 1 warn, 2 danger",
		}),
		tracking: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fuel_ride_tracking",
			Help: "1 while a ride is being tracked",
		}),
		rides: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fuel_rides_completed_total",
			Help: "Number of rides finalized into history",
		}),
		rideMiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fuel_ride_distance_miles_total",
			Help: "Distance of all completed rides",
		}),
		fillUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fuel_fill_ups_total",
			Help: "Number of fill-ups",
		}),
		fuelAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fuel_added_gallons_total",
			Help: "Fuel reported at the pump",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fuel_band_alerts_total",
			Help: "Upward band transitions",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fuel_samples_dropped_total",
			Help: "Telemetry samples rejected by the noise gate",
		}, []string{"reason"}),
	}
	var err error
	if s.remaining, err = register(reg, s.remaining); err != nil {
		return nil, err
	}
	if s.sinceFill, err = register(reg, s.sinceFill); err != nil {
		return nil, err
	}
	if s.fill, err = register(reg, s.fill); err != nil {
		return nil, err
	}
	if s.band, err = register(reg, s.band); err != nil {
		return nil, err
	}
	if s.tracking, err = register(reg, s.tracking); err != nil {
		return nil, err
	}
	if s.rides, err = register(reg, s.rides); err != nil {
		return nil, err
	}
	if s.rideMiles, err = register(reg, s.rideMiles); err != nil {
		return nil, err
	}
	if s.fillUps, err = register(reg, s.fillUps); err != nil {
		return nil, err
	}
	if s.fuelAdded, err = register(reg, s.fuelAdded); err != nil {
		return nil, err
	}
	if s.alerts, err = register(reg, s.alerts); err != nil {
		return nil, err
	}
	if s.dropped, err = register(reg, s.dropped); err != nil {
		return nil, err
	}
	return s, nil
}

// register reuses a collector that was registered by an earlier sink.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRangeState sets the state gauges.
func (s *PromSink) RecordRangeState(ev coremetrics.RangeState) error {
	e := ev.Evaluation
	s.remaining.Set(e.RemainingDistance)
	s.sinceFill.Set(e.EffectiveDistanceSinceFill)
	s.fill.Set(e.FillFraction)
	s.band.Set(float64(e.Band))
	if e.Tracking {
		s.tracking.Set(1)
	} else {
		s.tracking.Set(0)
	}
	return nil
}

// RecordRide counts a completed ride.
func (s *PromSink) RecordRide(ev coremetrics.RideEvent) error {
	s.rides.Inc()
	if ev.Ride.Distance > 0 {
		s.rideMiles.Add(ev.Ride.Distance)
	}
	return nil
}

// RecordFillUp counts a fill-up.
func (s *PromSink) RecordFillUp(f fuel.FillUp) error {
	s.fillUps.Inc()
	if f.FuelAdded > 0 {
		s.fuelAdded.Add(f.FuelAdded)
	}
	return nil
}

// RecordBandAlert counts an alert by kind.
func (s *PromSink) RecordBandAlert(ev coremetrics.BandAlertEvent) error {
	s.alerts.WithLabelValues(string(ev.Notification.Kind)).Inc()
	return nil
}

// RecordSampleDropped counts a rejected sample.
func (s *PromSink) RecordSampleDropped(reason string) error {
	s.dropped.WithLabelValues(reason).Inc()
	return nil
}
