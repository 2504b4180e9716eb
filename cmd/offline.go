package cmd

import (
	"context"
	"fmt"

	"github.com/kilianp07/fuelbuddy/app/plugins"
	"github.com/kilianp07/fuelbuddy/config"
	"github.com/kilianp07/fuelbuddy/core/factory"
	"github.com/kilianp07/fuelbuddy/core/snapshot"
	"github.com/kilianp07/fuelbuddy/core/store"
	"github.com/kilianp07/fuelbuddy/core/tracker"
	"github.com/kilianp07/fuelbuddy/core/units"
	"github.com/kilianp07/fuelbuddy/infra/locale"
	"github.com/kilianp07/fuelbuddy/infra/logger"
	infrastore "github.com/kilianp07/fuelbuddy/infra/store"
)

// openTracker builds a tracker straight on the configured store for commands
// that run without the service. Broker-backed media are skipped.
func openTracker(ctx context.Context, cfg *config.Config) (*tracker.Tracker, func(), error) {
	var kv store.KV
	switch cfg.Store.Backend {
	case "memory":
		kv = store.NewMemoryStore()
	default:
		s, err := infrastore.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("store: %w", err)
		}
		kv = s
	}
	closeFn := func() { _ = kv.Close() }

	var local []factory.ModuleConfig
	for _, m := range cfg.Snapshot.Media {
		if m.Type != "mqtt" {
			local = append(local, m)
		}
	}
	media, err := plugins.NewMediaRegistry(plugins.MediaDeps{}).CreateAll(local)
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("snapshot media: %w", err)
	}
	log := logger.New("cli")
	tr, err := tracker.New(ctx, tracker.Deps{
		Repository: store.NewRepository(kv, log),
		Publisher:  snapshot.NewPublisher(log, media...),
		Converter:  units.NewConverter(locale.SystemMetric(locale.FromEnv())),
		Logger:     log,
		Defaults:   cfg.Fuel,
		NoiseGate:  cfg.Telemetry.NoiseGateMeters,
	})
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return tr, closeFn, nil
}
