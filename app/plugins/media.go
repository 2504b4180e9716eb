// Package plugins builds the snapshot media named in the configuration.
package plugins

import (
	"errors"
	"fmt"

	"github.com/kilianp07/fuelbuddy/core/factory"
	"github.com/kilianp07/fuelbuddy/core/snapshot"
	"github.com/kilianp07/fuelbuddy/infra/mqtt"
	infrasnapshot "github.com/kilianp07/fuelbuddy/infra/snapshot"
)

// ErrNoBroker is returned when an mqtt medium is configured without a broker
// connection.
var ErrNoBroker = errors.New("mqtt medium requires a broker connection")

// MediaDeps are the shared collaborators media factories draw on.
type MediaDeps struct {
	// MQTT is nil when no broker is configured.
	MQTT mqtt.Client
	// SnapshotQoS applies to mqtt media without their own qos.
	SnapshotQoS byte
	// Memory backs the "memory" medium so the same instance can be read
	// in-process.
	Memory *snapshot.MemoryMedium
}

// NewMediaRegistry returns a registry of the built-in media: file, mqtt and
// memory.
func NewMediaRegistry(d MediaDeps) *factory.Registry[snapshot.Writer] {
	reg := factory.NewRegistry[snapshot.Writer]()
	_ = reg.Register("file", func(conf map[string]any) (snapshot.Writer, error) {
		var c struct {
			Path string `json:"path"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			return nil, fmt.Errorf("file medium: path is required")
		}
		return infrasnapshot.NewFileMedium(c.Path), nil
	})
	_ = reg.Register("mqtt", func(conf map[string]any) (snapshot.Writer, error) {
		if d.MQTT == nil {
			return nil, ErrNoBroker
		}
		return mqtt.NewSnapshotMediumFromConf(d.MQTT, conf, d.SnapshotQoS)
	})
	_ = reg.Register("memory", func(map[string]any) (snapshot.Writer, error) {
		if d.Memory == nil {
			return snapshot.NewMemoryMedium(), nil
		}
		return d.Memory, nil
	})
	return reg
}
