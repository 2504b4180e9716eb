package snapshot

import (
	"context"
	"sync"
)

// MemoryMedium keeps the snapshot in process memory. It backs tests and
// single-process setups where the display runs in the same binary.
type MemoryMedium struct {
	mu      sync.RWMutex
	snap    Snapshot
	written bool
	writes  int
	reloads chan struct{}
}

// NewMemoryMedium returns an empty medium.
func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{reloads: make(chan struct{}, 1)}
}

func (m *MemoryMedium) Write(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	m.snap, m.written = s, true
	m.writes++
	m.mu.Unlock()
	return nil
}

func (m *MemoryMedium) Read(context.Context) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.written {
		return Snapshot{}, ErrNoSnapshot
	}
	return m.snap, nil
}

// Reload queues a nudge. Pending nudges coalesce.
func (m *MemoryMedium) Reload(context.Context) error {
	select {
	case m.reloads <- struct{}{}:
	default:
	}
	return nil
}

// Reloads delivers nudges to the display surface.
func (m *MemoryMedium) Reloads() <-chan struct{} { return m.reloads }

// Writes counts the writes seen so far.
func (m *MemoryMedium) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
