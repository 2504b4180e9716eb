// Package app wires the fuel tracker to its storage, media, transports and
// HTTP surface, and runs the single-writer loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/fuelbuddy/api/fuel"
	"github.com/kilianp07/fuelbuddy/app/plugins"
	"github.com/kilianp07/fuelbuddy/config"
	"github.com/kilianp07/fuelbuddy/core/events"
	corefuel "github.com/kilianp07/fuelbuddy/core/fuel"
	coremetrics "github.com/kilianp07/fuelbuddy/core/metrics"
	"github.com/kilianp07/fuelbuddy/core/monitoring"
	"github.com/kilianp07/fuelbuddy/core/ride"
	"github.com/kilianp07/fuelbuddy/core/snapshot"
	"github.com/kilianp07/fuelbuddy/core/store"
	"github.com/kilianp07/fuelbuddy/core/tracker"
	"github.com/kilianp07/fuelbuddy/core/units"
	"github.com/kilianp07/fuelbuddy/infra/locale"
	"github.com/kilianp07/fuelbuddy/infra/logger"
	"github.com/kilianp07/fuelbuddy/infra/metrics"
	infmon "github.com/kilianp07/fuelbuddy/infra/monitoring"
	"github.com/kilianp07/fuelbuddy/infra/mqtt"
	infrastore "github.com/kilianp07/fuelbuddy/infra/store"
	"github.com/kilianp07/fuelbuddy/internal/eventbus"
)

// queueSize bounds the work queue.
const queueSize = 64

const shutdownTimeout = 5 * time.Second

// ErrStopped is returned by writes submitted after Run returned.
var ErrStopped = errors.New("service stopped")

// work is one item for the loop. Commands, samples and mutations share a
// single queue so they are applied in the order they were submitted.
type work struct {
	command *events.CommandRequest
	sample  *ride.Sample
	apply   func(ctx context.Context) error
	done    chan error
}

// Service owns the tracker and every producer feeding it.
type Service struct {
	Tracker *tracker.Tracker

	cfg       *config.Config
	log       logger.Logger
	mon       monitoring.Monitor
	kv        store.KV
	bus       *eventbus.TypedBus[events.Event]
	publisher *snapshot.Publisher
	memory    *snapshot.MemoryMedium
	sink      coremetrics.MetricsSink
	mqtt      *mqtt.PahoClient
	http      *http.Server

	work    chan work
	stopped chan struct{}
}

// New creates a Service from the configuration. Nothing runs until Run.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	s := &Service{
		cfg:     cfg,
		log:     logger.New("service"),
		memory:  snapshot.NewMemoryMedium(),
		work:    make(chan work, queueSize),
		stopped: make(chan struct{}),
	}
	ok := false
	defer func() {
		if !ok {
			_ = s.Close()
		}
	}()

	mon, err := infmon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	s.mon = mon

	switch cfg.Store.Backend {
	case "memory":
		s.kv = store.NewMemoryStore()
	default:
		kv, err := infrastore.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		s.kv = kv
	}

	if cfg.Telemetry.Enabled || cfg.Snapshot.Uses("mqtt") {
		cli, err := mqtt.NewPahoClient(cfg.MQTT, logger.New("mqtt"), s.mon)
		if err != nil {
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.mqtt = cli
	}

	deps := plugins.MediaDeps{Memory: s.memory, SnapshotQoS: cfg.MQTT.SnapshotQoS()}
	if s.mqtt != nil {
		deps.MQTT = s.mqtt
	}
	media, err := plugins.NewMediaRegistry(deps).CreateAll(cfg.Snapshot.Media)
	if err != nil {
		return nil, fmt.Errorf("snapshot media: %w", err)
	}
	s.publisher = snapshot.NewPublisher(logger.New("snapshot"), media...)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	s.sink = sink

	// Room for a full queue of work so the collector keeps up with bursts.
	s.bus = eventbus.NewTyped[events.Event](queueSize)
	if err := metrics.RegisterBusDrops(nil, s.bus.Dropped); err != nil {
		return nil, fmt.Errorf("bus metrics: %w", err)
	}
	s.Tracker, err = tracker.New(ctx, tracker.Deps{
		Repository: store.NewRepository(s.kv, logger.New("store")),
		Publisher:  s.publisher,
		Bus:        s.bus,
		Converter:  units.NewConverter(locale.SystemMetric(locale.FromEnv())),
		Logger:     logger.New("tracker"),
		Monitor:    s.mon,
		Defaults:   cfg.Fuel,
		NoiseGate:  cfg.Telemetry.NoiseGateMeters,
	})
	if err != nil {
		return nil, err
	}

	if cfg.HTTP.Enabled {
		s.http = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           fuel.NewServer(s.Tracker, s, logger.New("http")),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	ok = true
	return s, nil
}

// Run starts the producers and applies their work one item at a time until
// ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.stopped)
	defer s.mon.Recover()

	metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("metrics"))
	s.Tracker.Refresh(ctx)

	if s.cfg.Telemetry.Enabled && s.mqtt != nil {
		topics := mqtt.TopicsFromConfig(s.cfg.MQTT, s.cfg.Telemetry.CommandTopic, s.cfg.Telemetry.SampleTopic)
		in := mqtt.NewInbound(ctx, topics, s, logger.New("mqtt"))
		if err := in.Start(s.mqtt); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}

	errCh := make(chan error, 1)
	if s.http != nil {
		go func() {
			s.log.Infof("http listening on %s", s.http.Addr)
			if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	s.log.Infof("service started")
	for {
		select {
		case <-ctx.Done():
			s.shutdownHTTP()
			s.log.Infof("service stopped")
			return nil
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		case w := <-s.work:
			s.process(ctx, w)
		}
	}
}

func (s *Service) process(ctx context.Context, w work) {
	switch {
	case w.command != nil:
		if err := s.Tracker.Handle(ctx, *w.command); err != nil {
			s.log.Warnf("command from %s: %v", w.command.Source, err)
		}
	case w.sample != nil:
		s.Tracker.RecordSample(ctx, *w.sample)
	case w.apply != nil:
		w.done <- w.apply(ctx)
	}
}

func (s *Service) shutdownHTTP() {
	if s.http == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.log.Errorf("http shutdown: %v", err)
	}
}

// Enqueue queues a rider command for the loop.
func (s *Service) Enqueue(ctx context.Context, req events.CommandRequest) error {
	return s.submit(ctx, work{command: &req})
}

// SubmitSample queues a telemetry sample for the loop.
func (s *Service) SubmitSample(ctx context.Context, sample ride.Sample) error {
	return s.submit(ctx, work{sample: &sample})
}

func (s *Service) submit(ctx context.Context, w work) error {
	if s.done() {
		return ErrStopped
	}
	select {
	case s.work <- w:
		return nil
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateSettings replaces the settings on the loop.
func (s *Service) UpdateSettings(ctx context.Context, settings corefuel.Settings) error {
	return s.mutate(ctx, func(ctx context.Context) error {
		return s.Tracker.UpdateSettings(ctx, settings, "http")
	})
}

// ApplyEconomy stores a calibrated economy on the loop.
func (s *Service) ApplyEconomy(ctx context.Context, economy, tank float64) error {
	return s.mutate(ctx, func(ctx context.Context) error {
		return s.Tracker.ApplyEconomy(ctx, economy, tank)
	})
}

func (s *Service) mutate(ctx context.Context, apply func(context.Context) error) error {
	w := work{apply: apply, done: make(chan error, 1)}
	if err := s.submit(ctx, w); err != nil {
		return err
	}
	select {
	case err := <-w.done:
		return err
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) done() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}

// Memory is the in-process medium used by the "memory" snapshot type.
func (s *Service) Memory() *snapshot.MemoryMedium { return s.memory }

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.bus != nil {
		s.bus.Close()
	}
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if s.kv != nil {
		if err := s.kv.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}
	if s.mon != nil {
		s.mon.Flush(2 * time.Second)
	}
	return errors.Join(errs...)
}
