package plugins

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kilianp07/fuelbuddy/core/factory"
	"github.com/kilianp07/fuelbuddy/core/snapshot"
	"github.com/kilianp07/fuelbuddy/infra/mqtt"
	infrasnapshot "github.com/kilianp07/fuelbuddy/infra/snapshot"
)

func TestMediaRegistry(t *testing.T) {
	mem := snapshot.NewMemoryMedium()
	reg := NewMediaRegistry(MediaDeps{Memory: mem})
	path := filepath.Join(t.TempDir(), "snap.json")

	media, err := reg.CreateAll([]factory.ModuleConfig{
		{Type: "file", Conf: map[string]any{"path": path}},
		{Type: "memory"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(media) != 2 {
		t.Fatalf("expected 2 media, got %d", len(media))
	}
	fm, ok := media[0].(*infrasnapshot.FileMedium)
	if !ok || fm.Path() != path {
		t.Fatalf("unexpected file medium %#v", media[0])
	}
	if media[1] != snapshot.Writer(mem) {
		t.Fatal("memory medium should be the shared instance")
	}
}

func TestMediaRegistryErrors(t *testing.T) {
	reg := NewMediaRegistry(MediaDeps{})
	if _, err := reg.Create(factory.ModuleConfig{Type: "mqtt"}); !errors.Is(err, ErrNoBroker) {
		t.Fatalf("expected ErrNoBroker, got %v", err)
	}
	if _, err := reg.Create(factory.ModuleConfig{Type: "file"}); err == nil {
		t.Fatal("expected error for missing path")
	}
	if _, err := reg.Create(factory.ModuleConfig{Type: "carrier-pigeon"}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

// qosRecorder remembers the QoS of each publish.
type qosRecorder struct{ qos []byte }

func (r *qosRecorder) Publish(_ context.Context, _ string, qos byte, _ bool, _ []byte) error {
	r.qos = append(r.qos, qos)
	return nil
}

func (r *qosRecorder) Subscribe(string, byte, mqtt.Handler) error { return nil }

func TestMediaRegistryMQTTQoS(t *testing.T) {
	cli := &qosRecorder{}
	reg := NewMediaRegistry(MediaDeps{MQTT: cli, SnapshotQoS: 1})
	media, err := reg.CreateAll([]factory.ModuleConfig{
		{Type: "mqtt", Conf: map[string]any{"topic": "fuelbuddy/snapshot"}},
		{Type: "mqtt", Conf: map[string]any{"topic": "other", "qos": 2}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, m := range media {
		if err := m.Write(context.Background(), snapshot.Snapshot{}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if len(cli.qos) != 2 || cli.qos[0] != 1 || cli.qos[1] != 2 {
		t.Fatalf("expected qos [1 2], got %v", cli.qos)
	}
}
