package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/fuelbuddy/core/fuel"
	"github.com/kilianp07/fuelbuddy/core/logger"
	"github.com/kilianp07/fuelbuddy/core/ride"
)

// State is everything persisted between runs.
type State struct {
	Settings          fuel.Settings
	Rides             []ride.Record
	DistanceSinceFill float64
	FillUps           []fuel.FillUp
}

// Repository encodes the fuel state as JSON values in a KV. Loads never fail:
// missing or corrupt data falls back to defaults and is logged.
type Repository struct {
	kv  KV
	log logger.Logger
}

// NewRepository wraps kv.
func NewRepository(kv KV, log logger.Logger) *Repository {
	return &Repository{kv: kv, log: log}
}

// Load reads the whole state. fallback is used when no valid settings exist.
func (r *Repository) Load(ctx context.Context, fallback fuel.Settings) State {
	return State{
		Settings:          r.LoadSettings(ctx, fallback),
		Rides:             r.LoadRides(ctx),
		DistanceSinceFill: r.LoadDistanceSinceFill(ctx),
		FillUps:           r.LoadFillUps(ctx),
	}
}

// LoadSettings returns the stored settings, migrated from legacy defaults, or
// fallback when they are missing, corrupt or invalid.
func (r *Repository) LoadSettings(ctx context.Context, fallback fuel.Settings) fuel.Settings {
	var s fuel.Settings
	if !r.get(ctx, KeySettings, &s) {
		return fallback
	}
	s = fuel.Migrate(s)
	if err := s.Validate(); err != nil {
		r.log.Warnf("stored settings rejected, using defaults: %v", err)
		return fallback
	}
	return s
}

// LoadRides returns the ride history, empty when missing or corrupt.
func (r *Repository) LoadRides(ctx context.Context) []ride.Record {
	var rides []ride.Record
	if !r.get(ctx, KeyRides, &rides) {
		return nil
	}
	return rides
}

// LoadDistanceSinceFill returns the counter, 0 when missing, corrupt or
// negative.
func (r *Repository) LoadDistanceSinceFill(ctx context.Context) float64 {
	var d float64
	if !r.get(ctx, KeySinceFill, &d) {
		return 0
	}
	if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		r.log.Warnf("stored distance since fill %v rejected", d)
		return 0
	}
	return d
}

// LoadFillUps returns the fill-up log, empty when missing or corrupt.
func (r *Repository) LoadFillUps(ctx context.Context) []fuel.FillUp {
	var fills []fuel.FillUp
	if !r.get(ctx, KeyFillUps, &fills) {
		return nil
	}
	return fills
}

func (r *Repository) SaveSettings(ctx context.Context, s fuel.Settings) error {
	return r.set(ctx, KeySettings, s)
}

func (r *Repository) SaveRides(ctx context.Context, rides []ride.Record) error {
	if rides == nil {
		rides = []ride.Record{}
	}
	return r.set(ctx, KeyRides, rides)
}

func (r *Repository) SaveDistanceSinceFill(ctx context.Context, d float64) error {
	return r.set(ctx, KeySinceFill, d)
}

func (r *Repository) SaveFillUps(ctx context.Context, fills []fuel.FillUp) error {
	if fills == nil {
		fills = []fuel.FillUp{}
	}
	return r.set(ctx, KeyFillUps, fills)
}

func (r *Repository) get(ctx context.Context, key string, out any) bool {
	b, err := r.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.log.Warnf("read %s: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		r.log.Warnf("decode %s, using defaults: %v", key, err)
		return false
	}
	return true
}

func (r *Repository) set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.kv.Set(ctx, key, b); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
