package tracker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

// metersPerMile is the inverse of the canonical conversion.
const metersPerMile = 1 / units.MilesPerMeter

type fixture struct {
	tracker *Tracker
	kv      *store.MemoryStore
	medium  *snapshot.MemoryMedium
	bus     *eventbus.TypedBus[events.Event]
	sub     <-chan events.Event
	mon     *monitoring.Recorder
}

type failingKV struct{ *store.MemoryStore }

func (failingKV) Set(context.Context, string, []byte) error { return errors.New("disk full") }

func newFixture(t *testing.T, kv store.KV, defaults fuel.Settings) *fixture {
	t.Helper()
	mem, _ := kv.(*store.MemoryStore)
	medium := snapshot.NewMemoryMedium()
	bus := eventbus.NewTyped[events.Event](64)
	t.Cleanup(bus.Close)
	sub := bus.Subscribe()
	mon := &monitoring.Recorder{}
	clock := time.Unix(1700000000, 0)
	n := 0
	tr, err := New(context.Background(), Deps{
		Repository: store.NewRepository(kv, logger.NopLogger{}),
		Publisher:  snapshot.NewPublisher(logger.NopLogger{}, medium),
		Bus:        bus,
		Converter:  units.NewConverter(func() bool { return false }),
		Logger:     logger.NopLogger{},
		Monitor:    mon,
		Clock: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
		IDs: func() string {
			n++
			return fmt.Sprintf("ride-%d", n)
		},
		Defaults: defaults,
	})
	require.NoError(t, err)
	return &fixture{tracker: tr, kv: mem, medium: medium, bus: bus, sub: sub, mon: mon}
}

func (f *fixture) drain() []events.Event {
	var out []events.Event
	for {
		select {
		case e := <-f.sub:
			out = append(out, e)
		default:
			return out
		}
	}
}

func (f *fixture) ride(t *testing.T, miles float64) ride.Record {
	t.Helper()
	ctx := context.Background()
	require.True(t, f.tracker.StartRide(ctx))
	require.True(t, f.tracker.RecordSample(ctx, ride.Sample{DistanceMeters: miles * metersPerMile, HorizontalAccuracy: 5}))
	rec, ok := f.tracker.StopRide(ctx)
	require.True(t, ok)
	return rec
}

func alerts(evs []events.Event) []rangeeval.NotificationKind {
	var kinds []rangeeval.NotificationKind
	for _, e := range evs {
		if a, ok := e.(events.BandAlert); ok {
			kinds = append(kinds, a.Notification.Kind)
		}
	}
	return kinds
}

func TestNewUsesDefaultsOnEmptyStore(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), fuel.Settings{})
	assert.Equal(t, fuel.Defaults, f.tracker.Settings())
	ev := f.tracker.Evaluation()
	assert.InDelta(t, 81.2, ev.TotalRange, 1e-9)
	assert.Equal(t, rangeeval.BandOK, ev.Band)

	_, ok := f.tracker.Snapshot()
	assert.False(t, ok)
	f.tracker.Refresh(context.Background())
	snap, err := f.medium.Read(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 81.2, snap.RemainingDistance, 1e-9)
	assert.Equal(t, 1.0, snap.FillFraction)
	assert.False(t, snap.UsesMetric)
}

func TestRideLifecycle(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), fuel.Settings{})
	ctx := context.Background()

	rec := f.ride(t, 10)
	assert.Equal(t, "ride-1", rec.ID)
	assert.InDelta(t, 10, rec.Distance, 1e-6)
	require.NotNil(t, rec.EndTime)
	assert.True(t, rec.EndTime.After(rec.StartTime))

	ev := f.tracker.Evaluation()
	assert.InDelta(t, 10, ev.EffectiveDistanceSinceFill, 1e-6)
	assert.False(t, ev.Tracking)
	assert.Len(t, f.tracker.Rides(), 1)

	// Out-of-state calls are no-ops.
	_, ok := f.tracker.StopRide(ctx)
	assert.False(t, ok)
	require.True(t, f.tracker.StartRide(ctx))
	assert.False(t, f.tracker.StartRide(ctx))

	select {
	case <-f.medium.Reloads():
	default:
		t.Fatal("expected reload nudge after ride completion")
	}

	evs := f.drain()
	var started, completed int
	for _, e := range evs {
		switch e.(type) {
		case events.RideStarted:
			started++
		case events.RideCompleted:
			completed++
		}
	}
	assert.Equal(t, 2, started)
	assert.Equal(t, 1, completed)
}

func TestLiveRideCountsWhileTracking(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), fuel.Settings{})
	ctx := context.Background()
	f.ride(t, 5)
	require.True(t, f.tracker.StartRide(ctx))
	require.True(t, f.tracker.RecordSample(ctx, ride.Sample{DistanceMeters: 3 * metersPerMile}))
	ev := f.tracker.Evaluation()
	assert.True(t, ev.Tracking)
	assert.InDelta(t, 8, ev.EffectiveDistanceSinceFill, 1e-6)
	snap, ok := f.tracker.Snapshot()
	require.True(t, ok)
	assert.InDelta(t, 81.2-8, snap.RemainingDistance, 1e-6)
}

func TestStateSurvivesRestart(t *testing.T) {
	kv := store.NewMemoryStore()
	f := newFixture(t, kv, fuel.Settings{})
	f.ride(t, 4)
	f.ride(t, 6)

	again := newFixture(t, kv, fuel.Settings{})
	assert.Len(t, again.tracker.Rides(), 2)
	assert.InDelta(t, 10, again.tracker.Evaluation().EffectiveDistanceSinceFill, 1e-6)
}

func TestFillUpStopsRideAndResets(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), fuel.Settings{})
	ctx := context.Background()
	f.ride(t, 12)
	require.True(t, f.tracker.StartRide(ctx))
	require.True(t, f.tracker.RecordSample(ctx, ride.Sample{DistanceMeters: 8 * metersPerMile}))

	fill := f.tracker.FillUp(ctx, 0.4)
	assert.InDelta(t, 20, fill.Distance, 1e-6)
	assert.Equal(t, 0.4, fill.FuelAdded)

	ev := f.tracker.Evaluation()
	assert.False(t, ev.Tracking)
	assert.Zero(t, ev.EffectiveDistanceSinceFill)
	assert.Len(t, f.tracker.Rides(), 2, "in-flight ride finalized before reset")
	assert.Len(t, f.tracker.FillUps(), 1)

	// Fill-ups without fuel are not logged.
	f.tracker.FillUp(ctx, 0)
	assert.Len(t, f.tracker.FillUps(), 1)
}

func TestBandAlertsOnlyUpward(t *testing.T) {
	small := fuel.Settings{TankCapacity: 1, FuelEconomy: 10, WarnThreshold: 1, DangerThreshold: 2, UnitPreference: units.Imperial}
	f := newFixture(t, store.NewMemoryStore(), small)
	ctx := context.Background()
	f.drain()

	require.True(t, f.tracker.StartRide(ctx))
	require.True(t, f.tracker.RecordSample(ctx, ride.Sample{DistanceMeters: 1.2 * metersPerMile}))
	require.True(t, f.tracker.RecordSample(ctx, ride.Sample{DistanceMeters: 1.2 * metersPerMile}))
	f.tracker.FillUp(ctx, 0)

	assert.Equal(t, []rangeeval.NotificationKind{rangeeval.EnteredWarn, rangeeval.EnteredDanger}, alerts(f.drain()))
	assert.Equal(t, rangeeval.BandOK, f.tracker.Evaluation().Band)
}

func TestRecordSampleDropReasons(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), fuel.Settings{})
	ctx := context.Background()
	assert.False(t, f.tracker.RecordSample(ctx, ride.Sample{DistanceMeters: 50}))
	require.True(t, f.tracker.StartRide(ctx))
	assert.False(t, f.tracker.RecordSample(ctx, ride.Sample{DistanceMeters: 50, HorizontalAccuracy: -1}))
	assert.False(t, f.tracker.RecordSample(ctx, ride.Sample{DistanceMeters: 1}))

	var reasons []string
	for _, e := range f.drain() {
		if d, ok := e.(events.SampleDropped); ok {
			reasons = append(reasons, d.Reason)
		}
	}
	assert.Equal(t, []string{DropIdle, DropAccuracy, DropNoise}, reasons)
}

func TestUpdateSettings(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), fuel.Settings{})
	ctx := context.Background()

	bad := fuel.Defaults
	bad.WarnThreshold = 80
	err := f.tracker.UpdateSettings(ctx, bad, "test")
	require.ErrorIs(t, err, fuel.ErrInvalidSettings)
	assert.Equal(t, fuel.Defaults, f.tracker.Settings())

	good := fuel.Defaults
	good.UnitPreference = units.Metric
	require.NoError(t, f.tracker.UpdateSettings(ctx, good, "test"))
	assert.Equal(t, good, f.tracker.Settings())
	snap, ok := f.tracker.Snapshot()
	require.True(t, ok)
	assert.True(t, snap.UsesMetric)

	stored := store.NewRepository(f.kv, logger.NopLogger{}).LoadSettings(ctx, fuel.Defaults)
	assert.Equal(t, good, stored)
}

func TestCalibration(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), fuel.Settings{})
	ctx := context.Background()

	c, err := f.tracker.CalibratePump(1.19, 66.5)
	require.NoError(t, err)
	assert.InDelta(t, 55.88, c.FuelEconomy, 0.01)
	assert.Equal(t, 1.19, c.SuggestedTank)

	f.ride(t, 30)
	c, err = f.tracker.CalibratePump(0.5, 0)
	require.NoError(t, err)
	assert.InDelta(t, 30, c.Distance, 1e-6)
	assert.InDelta(t, 60, c.FuelEconomy, 1e-4)

	_, err = f.tracker.CalibratePump(0, 10)
	assert.ErrorIs(t, err, fuel.ErrInvalidCalibration)

	c, err = f.tracker.CalibrateReserve(70, fuel.DefaultReserveCapacity)
	require.NoError(t, err)
	assert.InDelta(t, 70/(1.45-0.26), c.FuelEconomy, 1e-9)

	_, err = f.tracker.CalibrateReserve(70, 2)
	assert.ErrorIs(t, err, fuel.ErrInvalidCalibration)

	// Without a distance the reserve reading uses the miles since fill.
	c, err = f.tracker.CalibrateReserve(0, fuel.DefaultReserveCapacity)
	require.NoError(t, err)
	assert.InDelta(t, 30, c.Distance, 1e-6)
	assert.InDelta(t, 30/(1.45-0.26), c.FuelEconomy, 1e-6)
	assert.Equal(t, fuel.Defaults, f.tracker.Settings(), "computing never mutates")

	<-f.medium.Reloads()
	require.NoError(t, f.tracker.ApplyEconomy(ctx, 60, 1.5))
	assert.Equal(t, 60.0, f.tracker.Settings().FuelEconomy)
	assert.Equal(t, 1.5, f.tracker.Settings().TankCapacity)
	select {
	case <-f.medium.Reloads():
	default:
		t.Fatal("expected reload nudge after applying calibration")
	}
	assert.Error(t, f.tracker.ApplyEconomy(ctx, -1, 0))
}

func TestCalibrateReserveNeedsDistance(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), fuel.Settings{})
	_, err := f.tracker.CalibrateReserve(0, fuel.DefaultReserveCapacity)
	assert.ErrorIs(t, err, fuel.ErrInvalidCalibration)
}

func TestCalibrateAverage(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), fuel.Settings{})
	ctx := context.Background()

	_, err := f.tracker.CalibrateAverage()
	assert.ErrorIs(t, err, fuel.ErrInvalidCalibration)

	f.ride(t, 60)
	f.tracker.FillUp(ctx, 1.2)
	f.ride(t, 35)
	f.tracker.FillUp(ctx, 0.5)
	f.ride(t, 10)
	f.tracker.FillUp(ctx, 0)

	c, err := f.tracker.CalibrateAverage()
	require.NoError(t, err)
	assert.Equal(t, "average", c.Method)
	assert.InDelta(t, 95, c.Distance, 1e-6)
	// 50 mpg over 1.2 gal and 70 mpg over 0.5 gal.
	assert.InDelta(t, 95/1.7, c.FuelEconomy, 1e-6)
	assert.Equal(t, fuel.Defaults, f.tracker.Settings(), "computing never mutates")
}

func TestHandle(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), fuel.Settings{})
	ctx := context.Background()
	require.NoError(t, f.tracker.Handle(ctx, events.CommandRequest{Command: events.StartRide}))
	assert.True(t, f.tracker.Evaluation().Tracking)
	require.NoError(t, f.tracker.Handle(ctx, events.CommandRequest{Command: events.StopRide}))
	assert.False(t, f.tracker.Evaluation().Tracking)
	require.NoError(t, f.tracker.Handle(ctx, events.CommandRequest{Command: events.FillUp, FuelAdded: 1}))
	assert.Len(t, f.tracker.FillUps(), 1)

	err := f.tracker.Handle(ctx, events.CommandRequest{Command: "honk"})
	assert.ErrorIs(t, err, events.ErrUnknownCommand)
}

func TestRecentRides(t *testing.T) {
	f := newFixture(t, store.NewMemoryStore(), fuel.Settings{})
	for i := 0; i < 12; i++ {
		f.ride(t, 0.5)
	}
	recent := f.tracker.RecentRides(0)
	require.Len(t, recent, DefaultRecentRides)
	assert.Equal(t, "ride-12", recent[0].ID)
	assert.Len(t, f.tracker.RecentRides(3), 3)
	assert.Len(t, f.tracker.Rides(), 12)
}

func TestPersistenceFailuresAreReported(t *testing.T) {
	f := newFixture(t, failingKV{store.NewMemoryStore()}, fuel.Settings{})
	rec := f.ride(t, 2)
	assert.InDelta(t, 2, rec.Distance, 1e-6)
	assert.InDelta(t, 2, f.tracker.Evaluation().EffectiveDistanceSinceFill, 1e-6)
	require.NotEmpty(t, f.mon.Errors)
	assert.Equal(t, "persist rides", f.mon.Tags[0]["op"])
}
