// Package snapshot provides shared snapshot media readable by a process other
// than the writer.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	core "github.com/kilianp07/fuelbuddy/core/snapshot"
)

// DefaultWatchInterval is how often Watch polls the reload marker.
const DefaultWatchInterval = 2 * time.Second

// FileMedium stores the snapshot as a JSON file. Writes go to a temporary
// file that is renamed over the target, so readers never see a partial
// record. Reload nudges touch a marker file next to it.
type FileMedium struct {
	path string
	now  func() time.Time
}

// NewFileMedium returns a medium backed by path. The directory is created on
// first write.
func NewFileMedium(path string) *FileMedium {
	return &FileMedium{path: path, now: time.Now}
}

// Path returns the snapshot file location.
func (m *FileMedium) Path() string { return m.path }

func (m *FileMedium) markerPath() string { return m.path + ".reload" }

func (m *FileMedium) Write(_ context.Context, s core.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return writeAtomic(m.path, data)
}

func (m *FileMedium) Read(_ context.Context) (core.Snapshot, error) {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return core.Snapshot{}, core.ErrNoSnapshot
	}
	if err != nil {
		return core.Snapshot{}, err
	}
	var s core.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return core.Snapshot{}, fmt.Errorf("decode %s: %w", m.path, err)
	}
	return s, nil
}

// Reload records a nudge in the marker file.
func (m *FileMedium) Reload(_ context.Context) error {
	return writeAtomic(m.markerPath(), []byte(strconv.FormatInt(m.now().UnixNano(), 10)))
}

// Watch polls the marker and delivers a value for every new nudge. The
// channel is closed when ctx is done.
func (m *FileMedium) Watch(ctx context.Context, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = DefaultWatchInterval
	}
	out := make(chan struct{}, 1)
	last := m.marker()
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cur := m.marker()
				if cur == last {
					continue
				}
				last = cur
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out
}

func (m *FileMedium) marker() string {
	b, err := os.ReadFile(m.markerPath())
	if err != nil {
		return ""
	}
	return string(b)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		_ = os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}

var (
	_ core.Writer   = (*FileMedium)(nil)
	_ core.Reader   = (*FileMedium)(nil)
	_ core.Reloader = (*FileMedium)(nil)
)
