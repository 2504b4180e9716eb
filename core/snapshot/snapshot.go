// Package snapshot publishes a minimal read-only view of the range estimate to
// media shared with an independently scheduled display surface.
//
// The display reads on its own schedule and may see a value that is up to one
// refresh interval old. Publishers can nudge it to reload early.
package snapshot

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/kilianp07/fuelbuddy/core/rangeeval"
)

// ErrNoSnapshot is returned by readers when nothing has been written yet.
var ErrNoSnapshot = errors.New("no snapshot")

// Snapshot is the fixed-schema record shared across processes. The remaining
// distance is always canonical miles.
type Snapshot struct {
	RemainingDistance float64 `json:"remaining_distance"`
	FillFraction      float64 `json:"fill_fraction"`
	UsesMetric        bool    `json:"uses_metric"`
	UpdatedAt         int64   `json:"updated_at"`
}

// FromEvaluation projects an evaluation into a snapshot stamped at now.
func FromEvaluation(ev rangeeval.Evaluation, usesMetric bool, now time.Time) Snapshot {
	return Snapshot{
		RemainingDistance: math.Max(0, ev.RemainingDistance),
		FillFraction:      math.Max(0, math.Min(1, ev.FillFraction)),
		UsesMetric:        usesMetric,
		UpdatedAt:         now.Unix(),
	}
}

// Updated returns UpdatedAt as a time.
func (s Snapshot) Updated() time.Time { return time.Unix(s.UpdatedAt, 0) }

// SameContent reports whether two snapshots differ only by timestamp.
func (s Snapshot) SameContent(o Snapshot) bool {
	return s.RemainingDistance == o.RemainingDistance &&
		s.FillFraction == o.FillFraction &&
		s.UsesMetric == o.UsesMetric
}

// Writer stores the latest snapshot on a shared medium. Writes replace the
// previous value, so repeating one is harmless.
type Writer interface {
	Write(ctx context.Context, s Snapshot) error
}

// Reader loads the latest snapshot from a shared medium.
type Reader interface {
	Read(ctx context.Context) (Snapshot, error)
}

// Reloader is implemented by media that can tell the display surface to
// reload immediately.
type Reloader interface {
	Reload(ctx context.Context) error
}
