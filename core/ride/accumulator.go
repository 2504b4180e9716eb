// Package ride accumulates GPS distance for the ride in progress and the
// running total since the tank was last filled.
package ride

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/fuelbuddy/core/units"
)

// DefaultNoiseGateMeters drops deltas at or below this size, which are almost
// always GPS jitter while standing still.
const DefaultNoiseGateMeters = 1.0

// State of the accumulator.
type State int

const (
	Idle State = iota
	Tracking
)

func (s State) String() string {
	if s == Tracking {
		return "tracking"
	}
	return "idle"
}

// Record is one ride. EndTime is nil while the ride is open.
type Record struct {
	ID        string     `json:"id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Distance  float64    `json:"distance"`
}

// Sample is a single telemetry reading. A negative accuracy marks an invalid
// fix.
type Sample struct {
	DistanceMeters     float64 `json:"distance_m"`
	HorizontalAccuracy float64 `json:"horizontal_accuracy"`
}

// Option configures an Accumulator.
type Option func(*Accumulator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Accumulator) { a.now = now }
}

// WithIDGenerator overrides the ride id source.
func WithIDGenerator(f func() string) Option {
	return func(a *Accumulator) { a.newID = f }
}

// WithNoiseGate sets the minimum accepted delta in meters. Negative values are
// ignored.
func WithNoiseGate(meters float64) Option {
	return func(a *Accumulator) {
		if meters >= 0 {
			a.noiseGate = meters
		}
	}
}

// Accumulator is a two-state machine (Idle, Tracking). It has a single owner
// and is not safe for concurrent use.
type Accumulator struct {
	now       func() time.Time
	newID     func() string
	noiseGate float64

	tracking  bool
	current   float64
	sinceFill float64
	open      *Record
	history   []Record
}

// New returns an idle accumulator with no history.
func New(opts ...Option) *Accumulator {
	a := &Accumulator{
		now:       time.Now,
		newID:     uuid.NewString,
		noiseGate: DefaultNoiseGateMeters,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Restore rebuilds an idle accumulator from persisted history and counter.
// Invalid counters are reset to zero.
func Restore(history []Record, sinceFill float64, opts ...Option) *Accumulator {
	a := New(opts...)
	if sinceFill > 0 && !math.IsInf(sinceFill, 0) {
		a.sinceFill = sinceFill
	}
	a.history = append([]Record(nil), history...)
	return a
}

// StartRide moves Idle to Tracking and opens a new record. It reports whether
// a ride was started; calling it while Tracking does nothing.
func (a *Accumulator) StartRide() bool {
	if a.tracking {
		return false
	}
	a.tracking = true
	a.current = 0
	a.open = &Record{ID: a.newID(), StartTime: a.now()}
	return true
}

// RecordDistanceDelta adds a movement delta while Tracking. Deltas at or below
// the noise gate, or outside a ride, are dropped. It reports whether the delta
// was applied.
func (a *Accumulator) RecordDistanceDelta(meters float64) bool {
	if !a.tracking {
		return false
	}
	if math.IsNaN(meters) || math.IsInf(meters, 0) || meters <= a.noiseGate {
		return false
	}
	a.current += units.MetersToMiles(meters)
	return true
}

// RecordSample applies a telemetry sample, dropping fixes with a negative
// horizontal accuracy.
func (a *Accumulator) RecordSample(s Sample) bool {
	if s.HorizontalAccuracy < 0 || math.IsNaN(s.HorizontalAccuracy) {
		return false
	}
	return a.RecordDistanceDelta(s.DistanceMeters)
}

// StopRide closes the open ride, appends it to the history and folds its
// distance into the since-fill total. It returns false when no ride was open.
// The current ride distance stays readable until the next StartRide.
func (a *Accumulator) StopRide() (Record, bool) {
	if !a.tracking {
		return Record{}, false
	}
	a.tracking = false
	end := a.now()
	var rec Record
	if a.open != nil {
		rec = *a.open
	} else {
		rec = Record{ID: a.newID(), StartTime: end}
	}
	rec.EndTime = &end
	rec.Distance = a.current
	a.open = nil
	a.history = append(a.history, rec)
	a.sinceFill += a.current
	return rec, true
}

// ResetSinceFill clears the since-fill total without touching the current ride
// or the history. Callers stop an in-flight ride first.
func (a *Accumulator) ResetSinceFill() {
	a.sinceFill = 0
}

// State returns the machine state.
func (a *Accumulator) State() State {
	if a.tracking {
		return Tracking
	}
	return Idle
}

// IsTracking reports whether a ride is open.
func (a *Accumulator) IsTracking() bool { return a.tracking }

// CurrentRideDistance is the distance of the open (or last stopped) ride.
func (a *Accumulator) CurrentRideDistance() float64 { return a.current }

// DistanceSinceFill is the total of completed rides since the last fill.
func (a *Accumulator) DistanceSinceFill() float64 { return a.sinceFill }

// EffectiveDistanceSinceFill includes the live ride while Tracking.
func (a *Accumulator) EffectiveDistanceSinceFill() float64 {
	if a.tracking {
		return a.sinceFill + a.current
	}
	return a.sinceFill
}

// OpenRide returns the record of the ride in progress.
func (a *Accumulator) OpenRide() (Record, bool) {
	if a.open == nil {
		return Record{}, false
	}
	rec := *a.open
	rec.Distance = a.current
	return rec, true
}

// History returns a copy of the completed rides, oldest first.
func (a *Accumulator) History() []Record {
	return append([]Record(nil), a.history...)
}

// Recent returns up to n completed rides, newest first.
func (a *Accumulator) Recent(n int) []Record {
	if n <= 0 || len(a.history) == 0 {
		return nil
	}
	if n > len(a.history) {
		n = len(a.history)
	}
	out := make([]Record, 0, n)
	for i := len(a.history) - 1; i >= len(a.history)-n; i-- {
		out = append(out, a.history[i])
	}
	return out
}
