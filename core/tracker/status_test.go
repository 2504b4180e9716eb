package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/fuelbuddy/core/fuel"
	"github.com/kilianp07/fuelbuddy/core/rangeeval"
	"github.com/kilianp07/fuelbuddy/core/units"
)

func TestNewStatus(t *testing.T) {
	conv := units.NewConverter(func() bool { return false })
	ev := rangeeval.Evaluate(rangeeval.Input{Settings: fuel.Defaults, DistanceSinceFill: 70})
	st := NewStatus(ev, fuel.Defaults, conv)
	assert.Equal(t, "idle", st.State)
	assert.Equal(t, "On reserve — fuel up", st.StatusText)
	assert.Equal(t, "mi", st.Unit)
	assert.Equal(t, "11.2 mi", st.Remaining)
	assert.Equal(t, "81.2 mi", st.TotalRange)

	metric := fuel.Defaults
	metric.UnitPreference = units.Metric
	st = NewStatus(ev, metric, conv)
	assert.Equal(t, "km", st.Unit)
	assert.Equal(t, "18.0 km", st.Remaining)
}
