// Package widget is the display surface that renders the shared snapshot. It
// runs on its own schedule, independent of the tracker, and reloads early
// when nudged.
package widget

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kilianp07/fuelbuddy/core/logger"
	"github.com/kilianp07/fuelbuddy/core/snapshot"
	"github.com/kilianp07/fuelbuddy/core/units"
)

// DefaultRefreshInterval is how often the display re-reads the snapshot.
const DefaultRefreshInterval = 15 * time.Minute

// Placeholder values shown before anything was published.
const (
	placeholderMiles    = 88
	placeholderFraction = 0.6
)

// Entry is one rendered state of the display.
type Entry struct {
	Date        time.Time `json:"date"`
	Next        time.Time `json:"next"`
	Remaining   float64   `json:"remaining_miles"`
	Fraction    float64   `json:"fraction"`
	UsesMetric  bool      `json:"uses_metric"`
	Placeholder bool      `json:"placeholder,omitempty"`
}

// PlaceholderEntry is shown while no snapshot exists.
func PlaceholderEntry(now time.Time) Entry {
	return Entry{
		Date:        now,
		Next:        now.Add(DefaultRefreshInterval),
		Remaining:   placeholderMiles,
		Fraction:    placeholderFraction,
		Placeholder: true,
	}
}

// FromSnapshot builds an entry with the fraction clamped to [0,1].
func FromSnapshot(s snapshot.Snapshot, now time.Time, interval time.Duration) Entry {
	return Entry{
		Date:       now,
		Next:       now.Add(interval),
		Remaining:  math.Max(0, s.RemainingDistance),
		Fraction:   math.Max(0, math.Min(1, s.FillFraction)),
		UsesMetric: s.UsesMetric,
	}
}

// DistanceText renders the whole-unit distance, truncated, with its label.
func (e Entry) DistanceText() string {
	if e.UsesMetric {
		return fmt.Sprintf("%d km", int(e.Remaining*units.KilometersPerMile))
	}
	return fmt.Sprintf("%d mi", int(e.Remaining))
}

// Gauge draws the fill fraction as a bar of width cells.
func Gauge(fraction float64, width int) string {
	if width <= 0 {
		return ""
	}
	fraction = math.Max(0, math.Min(1, fraction))
	filled := int(math.Round(fraction * float64(width)))
	return "E [" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "] F"
}

// String is the one-line rendering.
func (e Entry) String() string {
	return Gauge(e.Fraction, 10) + "  " + e.DistanceText()
}

// Load reads the snapshot, falling back to the placeholder when nothing was
// published or the medium cannot be read.
func Load(ctx context.Context, r snapshot.Reader, now time.Time, interval time.Duration, log logger.Logger) Entry {
	s, err := r.Read(ctx)
	if err != nil {
		if !errors.Is(err, snapshot.ErrNoSnapshot) && log != nil {
			log.Warnf("read snapshot: %v", err)
		}
		e := PlaceholderEntry(now)
		e.Next = now.Add(interval)
		return e
	}
	return FromSnapshot(s, now, interval)
}
