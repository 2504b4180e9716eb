package widget

import (
	"context"
	"time"

	"github.com/kilianp07/fuelbuddy/core/logger"
	"github.com/kilianp07/fuelbuddy/core/snapshot"
)

// Refresher re-renders on a fixed interval and whenever a reload nudge
// arrives. Stale output for up to one interval is expected.
type Refresher struct {
	reader   snapshot.Reader
	reloads  <-chan struct{}
	interval time.Duration
	render   func(Entry)
	log      logger.Logger
	now      func() time.Time
}

// NewRefresher returns a Refresher. A nil reloads channel disables nudges and
// a non-positive interval selects DefaultRefreshInterval.
func NewRefresher(r snapshot.Reader, reloads <-chan struct{}, interval time.Duration, render func(Entry), log logger.Logger) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Refresher{reader: r, reloads: reloads, interval: interval, render: render, log: log, now: time.Now}
}

// Once renders the current snapshot and returns the entry.
func (r *Refresher) Once(ctx context.Context) Entry {
	e := Load(ctx, r.reader, r.now(), r.interval, r.log)
	r.render(e)
	return e
}

// Run renders immediately, then on every tick or nudge until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	r.Once(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Once(ctx)
		case _, ok := <-r.reloads:
			if !ok {
				r.reloads = nil
				continue
			}
			r.log.Debugf("reload requested")
			r.Once(ctx)
		}
	}
}
