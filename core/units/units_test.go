package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func metricHost() bool   { return true }
func imperialHost() bool { return false }

func TestUsesMetric(t *testing.T) {
	cases := []struct {
		name string
		host func() bool
		pref Preference
		want bool
	}{
		{"metric pref", imperialHost, Metric, true},
		{"imperial pref", metricHost, Imperial, false},
		{"system metric host", metricHost, System, true},
		{"system imperial host", imperialHost, System, false},
		{"system without capability", nil, System, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			conv := NewConverter(c.host)
			assert.Equal(t, c.want, conv.UsesMetric(c.pref))
		})
	}
}

func TestDistanceRoundTrip(t *testing.T) {
	for _, host := range []func() bool{metricHost, imperialHost} {
		conv := NewConverter(host)
		for _, p := range []Preference{System, Imperial, Metric} {
			for _, x := range []float64{0, 0.1, 1, 50, 81.2, 12345.678} {
				got := conv.ToCanonicalDistance(conv.ToDisplayDistance(x, p), p)
				assert.InDelta(t, x, got, 1e-9, "pref %s value %v", p, x)
			}
		}
	}
}

func TestVolumeRoundTrip(t *testing.T) {
	conv := NewConverter(metricHost)
	got := conv.ToCanonicalVolume(conv.ToDisplayVolume(1.45, System), System)
	assert.InDelta(t, 1.45, got, 1e-9)
	assert.InDelta(t, 3.78541, conv.ToDisplayVolume(1, Metric), 1e-12)
	assert.Equal(t, "L", conv.VolumeLabel(Metric))
	assert.Equal(t, "gal", conv.VolumeLabel(Imperial))
}

func TestFormatDistance(t *testing.T) {
	conv := NewConverter(imperialHost)
	assert.Equal(t, "10.0 mi", conv.FormatDistance(10, Imperial, 1))
	assert.Equal(t, "16.09 km", conv.FormatDistance(10, Metric, 2))
	assert.Equal(t, "16 km", conv.FormatDistance(10, Metric, 0))
	assert.Equal(t, "10 mi", conv.FormatDistance(10, System, -3))
	assert.Equal(t, "km", conv.UnitLabel(Metric))
	assert.Equal(t, "mi", conv.UnitLabel(System))
}

func TestParsePreference(t *testing.T) {
	p, err := ParsePreference(" Metric ")
	require.NoError(t, err)
	assert.Equal(t, Metric, p)
	p, err = ParsePreference("")
	require.NoError(t, err)
	assert.Equal(t, System, p)
	_, err = ParsePreference("furlongs")
	assert.Error(t, err)
}

func TestMetersToMiles(t *testing.T) {
	assert.InDelta(t, 1.0, MetersToMiles(1609.34), 1e-3)
	assert.False(t, math.Signbit(MetersToMiles(0)))
}
