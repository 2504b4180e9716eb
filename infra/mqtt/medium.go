package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/kilianp07/fuelbuddy/core/factory"
	"github.com/kilianp07/fuelbuddy/core/snapshot"
)

// Default topics of the snapshot medium.
const (
	DefaultSnapshotTopic = "fuelbuddy/snapshot"
	DefaultReloadTopic   = "fuelbuddy/snapshot/reload"
)

// MediumConfig selects the snapshot topics.
type MediumConfig struct {
	Topic       string `json:"topic"`
	ReloadTopic string `json:"reload_topic"`
	QoS         byte   `json:"qos"`
}

func (c *MediumConfig) setDefaults() {
	if c.Topic == "" {
		c.Topic = DefaultSnapshotTopic
	}
	if c.ReloadTopic == "" {
		c.ReloadTopic = DefaultReloadTopic
	}
}

// SnapshotMedium publishes the snapshot as a retained message, so a display
// connecting later still receives the latest value.
type SnapshotMedium struct {
	cli Client
	cfg MediumConfig
	now func() time.Time
}

// NewSnapshotMedium returns a medium publishing through cli.
func NewSnapshotMedium(cli Client, cfg MediumConfig) *SnapshotMedium {
	cfg.setDefaults()
	return &SnapshotMedium{cli: cli, cfg: cfg, now: time.Now}
}

// NewSnapshotMediumFromConf decodes a module config into a SnapshotMedium.
// qos applies when the module config does not set its own.
func NewSnapshotMediumFromConf(cli Client, conf map[string]any, qos byte) (*SnapshotMedium, error) {
	c := MediumConfig{QoS: qos}
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.QoS > 2 {
		return nil, fmt.Errorf("snapshot qos %d out of range", c.QoS)
	}
	return NewSnapshotMedium(cli, c), nil
}

func (m *SnapshotMedium) Write(ctx context.Context, s snapshot.Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return m.cli.Publish(ctx, m.cfg.Topic, m.cfg.QoS, true, payload)
}

// Reload publishes a non-retained nudge carrying the current time.
func (m *SnapshotMedium) Reload(ctx context.Context) error {
	payload := []byte(strconv.FormatInt(m.now().Unix(), 10))
	return m.cli.Publish(ctx, m.cfg.ReloadTopic, m.cfg.QoS, false, payload)
}

// SnapshotSubscriber is the reading side of SnapshotMedium.
type SnapshotSubscriber struct {
	mu      sync.RWMutex
	snap    snapshot.Snapshot
	ok      bool
	reloads chan struct{}
}

// SubscribeSnapshot subscribes to the snapshot and reload topics.
func SubscribeSnapshot(cli Client, cfg MediumConfig) (*SnapshotSubscriber, error) {
	cfg.setDefaults()
	s := &SnapshotSubscriber{reloads: make(chan struct{}, 1)}
	if err := cli.Subscribe(cfg.Topic, cfg.QoS, s.onSnapshot); err != nil {
		return nil, err
	}
	if err := cli.Subscribe(cfg.ReloadTopic, cfg.QoS, s.onReload); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SnapshotSubscriber) onSnapshot(_ string, payload []byte) {
	var snap snapshot.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return
	}
	s.mu.Lock()
	s.snap, s.ok = snap, true
	s.mu.Unlock()
	s.nudge()
}

func (s *SnapshotSubscriber) onReload(string, []byte) { s.nudge() }

func (s *SnapshotSubscriber) nudge() {
	select {
	case s.reloads <- struct{}{}:
	default:
	}
}

func (s *SnapshotSubscriber) Read(context.Context) (snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ok {
		return snapshot.Snapshot{}, snapshot.ErrNoSnapshot
	}
	return s.snap, nil
}

// Reloads delivers a value when a nudge or a new snapshot arrives.
func (s *SnapshotSubscriber) Reloads() <-chan struct{} { return s.reloads }

var (
	_ snapshot.Writer   = (*SnapshotMedium)(nil)
	_ snapshot.Reloader = (*SnapshotMedium)(nil)
	_ snapshot.Reader   = (*SnapshotSubscriber)(nil)
)
