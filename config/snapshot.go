package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/fuelbuddy/core/factory"
)

// SnapshotConfig lists the media the range snapshot is published to and the
// refresh schedule of the display surface.
type SnapshotConfig struct {
	Media                  []factory.ModuleConfig `json:"media"`
	RefreshIntervalSeconds int                    `json:"refresh_interval_seconds"`
}

// SetDefaults publishes to fuelbuddy-snapshot.json every 15 minutes when
// nothing is configured.
func (c *SnapshotConfig) SetDefaults() {
	if len(c.Media) == 0 {
		c.Media = []factory.ModuleConfig{{Type: "file", Conf: map[string]any{"path": "fuelbuddy-snapshot.json"}}}
	}
	if c.RefreshIntervalSeconds <= 0 {
		c.RefreshIntervalSeconds = 900
	}
}

// Validate checks the media entries.
func (c SnapshotConfig) Validate() error {
	for i, m := range c.Media {
		if m.Type == "" {
			return fmt.Errorf("media[%d]: type is required", i)
		}
	}
	return nil
}

// RefreshInterval is the display refresh period.
func (c SnapshotConfig) RefreshInterval() time.Duration {
	if c.RefreshIntervalSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// FilePath returns the path of the first file medium.
func (c SnapshotConfig) FilePath() (string, bool) {
	for _, m := range c.Media {
		if m.Type != "file" {
			continue
		}
		if p, ok := m.Conf["path"].(string); ok && p != "" {
			return p, true
		}
	}
	return "", false
}

// Uses reports whether a medium of type typ is configured.
func (c SnapshotConfig) Uses(typ string) bool {
	for _, m := range c.Media {
		if m.Type == typ {
			return true
		}
	}
	return false
}
