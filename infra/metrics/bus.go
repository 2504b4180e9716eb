package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// BusDropsMetric is the counter name for events a bus subscriber missed.
const BusDropsMetric = "fuel_bus_events_dropped_total"

// RegisterBusDrops exposes dropped as a counter on reg. A counter left by an
// earlier bus is replaced so the metric always follows the live one.
func RegisterBusDrops(reg prometheus.Registerer, dropped func() uint64) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: BusDropsMetric,
		Help: "Events a bus subscriber missed because its buffer was full",
	}, func() float64 { return float64(dropped()) })
	err := reg.Register(c)
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		reg.Unregister(are.ExistingCollector)
		err = reg.Register(c)
	}
	return err
}
