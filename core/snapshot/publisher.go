package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/fuelbuddy/core/logger"
	"github.com/kilianp07/fuelbuddy/core/rangeeval"
)

// Publisher fans a snapshot out to every configured medium.
type Publisher struct {
	media []Writer
	now   func() time.Time
	log   logger.Logger

	mu   sync.Mutex
	last Snapshot
	ok   bool
}

// NewPublisher returns a Publisher writing to media.
func NewPublisher(log logger.Logger, media ...Writer) *Publisher {
	return &Publisher{media: media, now: time.Now, log: log}
}

// SetClock overrides time.Now. Used by tests.
func (p *Publisher) SetClock(now func() time.Time) { p.now = now }

// Publish writes the projection of ev to all media. It is safe to call after
// every upstream change; each medium keeps only the latest value. Errors from
// individual media are joined and the remaining media are still written.
func (p *Publisher) Publish(ctx context.Context, ev rangeeval.Evaluation, usesMetric bool) (Snapshot, error) {
	snap := FromEvaluation(ev, usesMetric, p.now())
	var errs []error
	for _, m := range p.media {
		if err := m.Write(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", m, err))
		}
	}
	p.mu.Lock()
	p.last, p.ok = snap, true
	p.mu.Unlock()
	if len(errs) > 0 {
		return snap, errors.Join(errs...)
	}
	p.log.Debugw("snapshot published", map[string]any{
		"remaining": snap.RemainingDistance,
		"fraction":  snap.FillFraction,
		"metric":    snap.UsesMetric,
	})
	return snap, nil
}

// Reload nudges every medium that supports it.
func (p *Publisher) Reload(ctx context.Context) error {
	var errs []error
	for _, m := range p.media {
		r, ok := m.(Reloader)
		if !ok {
			continue
		}
		if err := r.Reload(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", m, err))
		}
	}
	return errors.Join(errs...)
}

// Last returns the most recently published snapshot.
func (p *Publisher) Last() (Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.ok
}
