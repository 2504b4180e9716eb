// Package tracker owns the fuel state of one vehicle: settings, the ride
// accumulator and the fill-up log. It is constructed once, passed to every
// surface that needs it and mutated by a single writer.
//
// Every mutation persists (best effort), re-evaluates the range, publishes
// events on the bus and refreshes the shared snapshot. Completed rides,
// fill-ups and applied calibrations also nudge the display to reload.
package tracker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/kilianp07/fuelbuddy/core/events"
	"github.com/kilianp07/fuelbuddy/core/fuel"
	"github.com/kilianp07/fuelbuddy/core/logger"
	"github.com/kilianp07/fuelbuddy/core/monitoring"
	"github.com/kilianp07/fuelbuddy/core/rangeeval"
	"github.com/kilianp07/fuelbuddy/core/ride"
	"github.com/kilianp07/fuelbuddy/core/snapshot"
	"github.com/kilianp07/fuelbuddy/core/store"
	"github.com/kilianp07/fuelbuddy/core/units"
	"github.com/kilianp07/fuelbuddy/internal/eventbus"
)

// DefaultRecentRides is the length of the recent rides list.
const DefaultRecentRides = 10

// Sample drop reasons published with events.SampleDropped.
const (
	DropIdle     = "idle"
	DropAccuracy = "accuracy"
	DropNoise    = "noise"
)

// Deps are the collaborators of a Tracker. Repository and Publisher are
// required; the rest have working defaults.
type Deps struct {
	Repository *store.Repository
	Publisher  *snapshot.Publisher
	Bus        eventbus.EventBus[events.Event]
	Converter  units.Converter
	Logger     logger.Logger
	Monitor    monitoring.Monitor
	Clock      func() time.Time
	IDs        func() string
	// Defaults are used when no valid settings are stored.
	Defaults  fuel.Settings
	NoiseGate float64
}

// Tracker is the dependency-injected fuel state.
type Tracker struct {
	repo      *store.Repository
	publisher *snapshot.Publisher
	bus       eventbus.EventBus[events.Event]
	conv      units.Converter
	log       logger.Logger
	mon       monitoring.Monitor
	now       func() time.Time

	mu       sync.RWMutex
	settings fuel.Settings
	acc      *ride.Accumulator
	fills    []fuel.FillUp
	band     rangeeval.Band
}

// New loads persisted state and returns a Tracker. Missing or corrupt data
// falls back to defaults.
func New(ctx context.Context, d Deps) (*Tracker, error) {
	if d.Repository == nil {
		return nil, fmt.Errorf("tracker: repository required")
	}
	if d.Publisher == nil {
		return nil, fmt.Errorf("tracker: snapshot publisher required")
	}
	if d.Logger == nil {
		d.Logger = logger.NopLogger{}
	}
	if d.Monitor == nil {
		d.Monitor = monitoring.NopMonitor{}
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Defaults == (fuel.Settings{}) {
		d.Defaults = fuel.Defaults
	}
	if err := d.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("tracker: defaults: %w", err)
	}

	st := d.Repository.Load(ctx, d.Defaults)
	opts := []ride.Option{ride.WithClock(d.Clock)}
	if d.IDs != nil {
		opts = append(opts, ride.WithIDGenerator(d.IDs))
	}
	if d.NoiseGate > 0 {
		opts = append(opts, ride.WithNoiseGate(d.NoiseGate))
	}
	t := &Tracker{
		repo:      d.Repository,
		publisher: d.Publisher,
		bus:       d.Bus,
		conv:      d.Converter,
		log:       d.Logger,
		mon:       d.Monitor,
		now:       d.Clock,
		settings:  st.Settings,
		acc:       ride.Restore(st.Rides, st.DistanceSinceFill, opts...),
		fills:     st.FillUps,
	}
	t.band = t.evaluate().Band
	t.log.Infof("loaded %d rides, %.1f mi since fill, band %s", len(st.Rides), st.DistanceSinceFill, t.band)
	return t, nil
}

// Refresh re-evaluates and republishes without mutating anything. Used at
// startup so the display reflects the loaded state.
func (t *Tracker) Refresh(ctx context.Context) rangeeval.Evaluation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.commit(ctx)
}

// StartRide begins tracking. It reports false when a ride was already open.
func (t *Tracker) StartRide(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.acc.StartRide() {
		t.log.Debugf("start ignored: ride already open")
		return false
	}
	open, _ := t.acc.OpenRide()
	t.emit(events.RideStarted{Ride: open})
	t.log.Infof("ride %s started", open.ID)
	t.commit(ctx)
	return true
}

// StopRide finalizes the open ride into history. It reports false when no
// ride was open.
func (t *Tracker) StopRide(ctx context.Context) (ride.Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.stopLocked(ctx)
	if !ok {
		return rec, false
	}
	t.commit(ctx)
	t.reload(ctx)
	return rec, true
}

func (t *Tracker) stopLocked(ctx context.Context) (ride.Record, bool) {
	rec, ok := t.acc.StopRide()
	if !ok {
		t.log.Debugf("stop ignored: no ride open")
		return rec, false
	}
	t.persistRides(ctx)
	t.emit(events.RideCompleted{Ride: rec})
	t.log.Infof("ride %s completed: %.2f mi", rec.ID, rec.Distance)
	return rec, true
}

// FillUp stops an in-flight ride, then clears the since-fill counter. A
// positive fuelAdded (gallons) is kept in the fill-up log for calibration.
func (t *Tracker) FillUp(ctx context.Context, fuelAdded float64) fuel.FillUp {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked(ctx)
	if !(fuelAdded > 0) || math.IsInf(fuelAdded, 0) {
		fuelAdded = 0
	}
	f := fuel.FillUp{
		Time:      t.now(),
		Distance:  t.acc.DistanceSinceFill(),
		FuelAdded: fuelAdded,
	}
	t.acc.ResetSinceFill()
	if f.FuelAdded > 0 {
		t.fills = append(t.fills, f)
		t.persist("fill-ups", t.repo.SaveFillUps(ctx, t.fills))
	}
	t.persist("distance since fill", t.repo.SaveDistanceSinceFill(ctx, 0))
	t.emit(events.FilledUp{FillUp: f})
	t.log.Infof("filled up after %.1f mi", f.Distance)
	t.commit(ctx)
	t.reload(ctx)
	return f
}

// RecordSample feeds one telemetry sample. Rejected samples are reported on
// the bus and otherwise ignored.
func (t *Tracker) RecordSample(ctx context.Context, s ride.Sample) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	tracking := t.acc.IsTracking()
	if !t.acc.RecordSample(s) {
		reason := DropNoise
		switch {
		case !tracking:
			reason = DropIdle
		case s.HorizontalAccuracy < 0 || math.IsNaN(s.HorizontalAccuracy):
			reason = DropAccuracy
		}
		t.emit(events.SampleDropped{Sample: s, Reason: reason})
		return false
	}
	t.commit(ctx)
	return true
}

// UpdateSettings replaces the settings after validation. Invalid settings
// leave the state untouched.
func (t *Tracker) UpdateSettings(ctx context.Context, s fuel.Settings, source string) error {
	if err := s.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.applySettings(ctx, s, source)
	t.commit(ctx)
	return nil
}

// Calibration is the outcome of a calibration computation.
type Calibration struct {
	Method        string  `json:"method"`
	Distance      float64 `json:"distance"`
	FuelEconomy   float64 `json:"fuel_economy"`
	SuggestedTank float64 `json:"suggested_tank,omitempty"`
}

// CalibratePump derives the fuel economy from the fuel added at the pump.
// A positive distance overrides the tracked distance since fill.
func (t *Tracker) CalibratePump(fuelAdded, distance float64) (Calibration, error) {
	if distance <= 0 {
		t.mu.RLock()
		distance = t.acc.EffectiveDistanceSinceFill()
		t.mu.RUnlock()
	}
	res, err := fuel.PumpEconomy(distance, fuelAdded)
	if err != nil {
		return Calibration{}, err
	}
	return Calibration{Method: "pump", Distance: distance, FuelEconomy: res.Economy, SuggestedTank: res.SuggestedTank}, nil
}

// CalibrateReserve derives the fuel economy from the distance covered before
// the reserve kicked in. A non-positive distance selects the tracked distance
// since fill.
func (t *Tracker) CalibrateReserve(distance, reserve float64) (Calibration, error) {
	t.mu.RLock()
	tank := t.settings.TankCapacity
	if distance <= 0 {
		distance = t.acc.EffectiveDistanceSinceFill()
	}
	t.mu.RUnlock()
	econ, err := fuel.ReserveEconomy(distance, tank, reserve)
	if err != nil {
		return Calibration{}, err
	}
	return Calibration{Method: "reserve", Distance: distance, FuelEconomy: econ}, nil
}

// CalibrateAverage derives the fuel economy from the fill-up log, weighting
// each pump reading by the fuel added.
func (t *Tracker) CalibrateAverage() (Calibration, error) {
	fills := t.FillUps()
	econ, err := fuel.AverageEconomy(fills)
	if err != nil {
		return Calibration{}, err
	}
	var distance float64
	for _, f := range fills {
		if f.FuelAdded > 0 && f.Distance > 0 {
			distance += f.Distance
		}
	}
	return Calibration{Method: "average", Distance: distance, FuelEconomy: econ}, nil
}

// ApplyEconomy stores a calibrated fuel economy, and the tank capacity when
// tank is positive.
func (t *Tracker) ApplyEconomy(ctx context.Context, economy, tank float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.settings
	s.FuelEconomy = economy
	if tank > 0 {
		s.TankCapacity = tank
	}
	if err := s.Validate(); err != nil {
		return err
	}
	t.applySettings(ctx, s, "calibration")
	t.commit(ctx)
	t.reload(ctx)
	return nil
}

func (t *Tracker) applySettings(ctx context.Context, s fuel.Settings, source string) {
	t.settings = s
	t.persist("settings", t.repo.SaveSettings(ctx, s))
	t.emit(events.SettingsChanged{Settings: s, Source: source})
	t.log.Infof("settings updated by %s: tank %.2f gal, economy %.1f mpg", source, s.TankCapacity, s.FuelEconomy)
}

// Handle routes an external command into the matching transition.
func (t *Tracker) Handle(ctx context.Context, req events.CommandRequest) error {
	switch req.Command {
	case events.StartRide:
		t.StartRide(ctx)
	case events.StopRide:
		t.StopRide(ctx)
	case events.FillUp:
		t.FillUp(ctx, req.FuelAdded)
	default:
		return fmt.Errorf("%w: %q", events.ErrUnknownCommand, req.Command)
	}
	return nil
}

// Evaluation recomputes the range from the current state.
func (t *Tracker) Evaluation() rangeeval.Evaluation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.evaluate()
}

// Settings returns the current settings.
func (t *Tracker) Settings() fuel.Settings {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.settings
}

// Rides returns the ride history, oldest first.
func (t *Tracker) Rides() []ride.Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.acc.History()
}

// RecentRides returns up to n rides, newest first. n <= 0 selects
// DefaultRecentRides.
func (t *Tracker) RecentRides(n int) []ride.Record {
	if n <= 0 {
		n = DefaultRecentRides
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.acc.Recent(n)
}

// FillUps returns the fill-up log, oldest first.
func (t *Tracker) FillUps() []fuel.FillUp {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]fuel.FillUp(nil), t.fills...)
}

// Snapshot returns the last published snapshot.
func (t *Tracker) Snapshot() (snapshot.Snapshot, bool) {
	return t.publisher.Last()
}

// Converter returns the display converter.
func (t *Tracker) Converter() units.Converter { return t.conv }

func (t *Tracker) evaluate() rangeeval.Evaluation {
	return rangeeval.Evaluate(rangeeval.Input{
		Settings:            t.settings,
		DistanceSinceFill:   t.acc.DistanceSinceFill(),
		CurrentRideDistance: t.acc.CurrentRideDistance(),
		Tracking:            t.acc.IsTracking(),
	})
}

// commit publishes the consequences of a mutation. Callers hold mu.
func (t *Tracker) commit(ctx context.Context) rangeeval.Evaluation {
	ev := t.evaluate()
	now := t.now()
	t.emit(events.StateChanged{Evaluation: ev, Time: now})
	if n := rangeeval.Transition(t.band, ev.Band); n != nil {
		t.emit(events.BandAlert{Notification: *n, Evaluation: ev, Time: now})
		t.log.Warnf("%s", n.Message())
	}
	t.band = ev.Band
	if _, err := t.publisher.Publish(ctx, ev, t.conv.UsesMetric(t.settings.Preference())); err != nil {
		t.report("snapshot", err)
	}
	return ev
}

func (t *Tracker) reload(ctx context.Context) {
	if err := t.publisher.Reload(ctx); err != nil {
		t.report("reload", err)
	}
}

func (t *Tracker) persistRides(ctx context.Context) {
	t.persist("rides", t.repo.SaveRides(ctx, t.acc.History()))
	t.persist("distance since fill", t.repo.SaveDistanceSinceFill(ctx, t.acc.DistanceSinceFill()))
}

// persist swallows write errors; durability is best effort.
func (t *Tracker) persist(what string, err error) {
	if err != nil {
		t.report("persist "+what, err)
	}
}

func (t *Tracker) report(op string, err error) {
	t.log.Errorf("%s: %v", op, err)
	t.mon.CaptureException(err, map[string]string{"op": op})
}

func (t *Tracker) emit(e events.Event) {
	if t.bus != nil {
		t.bus.Publish(e)
	}
}
