package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fuelbuddy/config"
	"github.com/kilianp07/fuelbuddy/core/events"
	"github.com/kilianp07/fuelbuddy/core/factory"
	corefuel "github.com/kilianp07/fuelbuddy/core/fuel"
	"github.com/kilianp07/fuelbuddy/core/ride"
	"github.com/kilianp07/fuelbuddy/core/units"
	"github.com/kilianp07/fuelbuddy/infra/metrics"
	infrasnapshot "github.com/kilianp07/fuelbuddy/infra/snapshot"
)

const metersPerMile = 1 / units.MilesPerMeter

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Store.Backend = "memory"
	cfg.Snapshot.Media = []factory.ModuleConfig{{Type: "memory"}}
	return cfg
}

func startService(t *testing.T, cfg *config.Config) (*Service, context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	svc, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	t.Cleanup(cancel)
	return svc, cancel, done
}

func TestServiceAppliesWork(t *testing.T) {
	svc, cancel, done := startService(t, memoryConfig())
	ctx := context.Background()
	tr := svc.Tracker

	require.Eventually(t, func() bool {
		_, ok := tr.Snapshot()
		return ok
	}, time.Second, 10*time.Millisecond, "startup refresh publishes a snapshot")

	require.NoError(t, svc.Enqueue(ctx, events.CommandRequest{Command: events.StartRide, Source: "test"}))
	require.Eventually(t, func() bool { return tr.Evaluation().Tracking }, time.Second, 10*time.Millisecond)

	require.NoError(t, svc.SubmitSample(ctx, ride.Sample{DistanceMeters: 20 * metersPerMile, HorizontalAccuracy: 4}))
	require.Eventually(t, func() bool {
		return tr.Evaluation().CurrentRideDistance > 19.99
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Enqueue(ctx, events.CommandRequest{Command: events.StopRide}))
	require.Eventually(t, func() bool { return !tr.Evaluation().Tracking }, time.Second, 10*time.Millisecond)
	assert.InDelta(t, 20, tr.Evaluation().EffectiveDistanceSinceFill, 1e-6)

	snap, err := svc.Memory().Read(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 81.2-20, snap.RemainingDistance, 1e-6)

	// Mutations run on the loop and report their outcome.
	err = svc.UpdateSettings(ctx, corefuel.Settings{TankCapacity: 2, FuelEconomy: 50, WarnThreshold: 90, DangerThreshold: 80})
	assert.ErrorIs(t, err, corefuel.ErrInvalidSettings)
	require.NoError(t, svc.ApplyEconomy(ctx, 60, 0))
	assert.InDelta(t, 60, tr.Settings().FuelEconomy, 1e-9)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
	assert.True(t, errors.Is(svc.Enqueue(ctx, events.CommandRequest{Command: events.FillUp}), ErrStopped))
	assert.ErrorIs(t, svc.ApplyEconomy(ctx, 50, 0), ErrStopped)
}

func TestServicePersistsToSQLite(t *testing.T) {
	cfg := memoryConfig()
	cfg.Store.Backend = "sqlite"
	cfg.Store.Path = filepath.Join(t.TempDir(), "fuel.db")
	snapPath := filepath.Join(t.TempDir(), "snap.json")
	cfg.Snapshot.Media = []factory.ModuleConfig{{Type: "file", Conf: map[string]any{"path": snapPath}}}

	svc, cancel, done := startService(t, cfg)
	ctx := context.Background()
	require.NoError(t, svc.Enqueue(ctx, events.CommandRequest{Command: events.StartRide}))
	require.NoError(t, svc.Enqueue(ctx, events.CommandRequest{Command: events.StopRide}))
	require.Eventually(t, func() bool { return len(svc.Tracker.Rides()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done
	require.NoError(t, svc.Close())

	svc2, err := New(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = svc2.Close() }()
	assert.Len(t, svc2.Tracker.Rides(), 1)

	snap, err := infrasnapshot.NewFileMedium(snapPath).Read(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 81.2, snap.RemainingDistance, 1e-6)
}

func TestNewRejectsUnknownMedium(t *testing.T) {
	cfg := memoryConfig()
	cfg.Snapshot.Media = []factory.ModuleConfig{{Type: "carrier-pigeon"}}
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}

func TestServiceKeepsSubmissionOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc, err := New(ctx, memoryConfig())
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	// Everything is queued before the loop starts, so the loop sees a full
	// backlog of samples ahead of the stop command.
	require.True(t, svc.Tracker.StartRide(ctx))
	for i := 0; i < 10; i++ {
		require.NoError(t, svc.SubmitSample(ctx, ride.Sample{DistanceMeters: metersPerMile, HorizontalAccuracy: 4}))
	}
	require.NoError(t, svc.Enqueue(ctx, events.CommandRequest{Command: events.StopRide}))
	require.NoError(t, svc.SubmitSample(ctx, ride.Sample{DistanceMeters: metersPerMile, HorizontalAccuracy: 4}))

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return len(svc.Tracker.Rides()) == 1 }, time.Second, 10*time.Millisecond)
	assert.InDelta(t, 10, svc.Tracker.Rides()[0].Distance, 1e-6)
	// The sample after the stop arrives while idle and is ignored.
	require.NoError(t, svc.UpdateSettings(ctx, svc.Tracker.Settings()))
	assert.InDelta(t, 10, svc.Tracker.Evaluation().EffectiveDistanceSinceFill, 1e-6)

	cancel()
	require.NoError(t, <-done)
}

func TestServiceExposesBusDrops(t *testing.T) {
	startService(t, memoryConfig())
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	var names []string
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.Contains(t, names, metrics.BusDropsMetric)
}
