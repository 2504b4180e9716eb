package mqtt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/kilianp07/fuelbuddy/core/events"
	"github.com/kilianp07/fuelbuddy/core/logger"
	"github.com/kilianp07/fuelbuddy/core/ride"
)

// Default inbound topics.
const (
	DefaultCommandTopic = "fuelbuddy/commands"
	DefaultSampleTopic  = "fuelbuddy/telemetry"
)

// Topics names the inbound topics and their QoS.
type Topics struct {
	Command      string
	Sample       string
	CommandQoS   byte
	TelemetryQoS byte
}

// TopicsFromConfig names the inbound topics with the QoS configured in cfg.
// Commands default to QoS 1 and telemetry to QoS 0.
func TopicsFromConfig(cfg Config, command, sample string) Topics {
	return Topics{
		Command:      command,
		Sample:       sample,
		CommandQoS:   cfg.qos(QoSCommand, 1),
		TelemetryQoS: cfg.qos(QoSTelemetry, 0),
	}
}

// Sink accepts decoded inbound work. Both calls block until the work is
// queued, the sink stops or ctx is done.
type Sink interface {
	Enqueue(ctx context.Context, req events.CommandRequest) error
	SubmitSample(ctx context.Context, sample ride.Sample) error
}

// Inbound decodes broker messages into commands and telemetry samples and
// hands them to the single writer in arrival order.
type Inbound struct {
	ctx    context.Context
	topics Topics
	sink   Sink
	log    logger.Logger
}

// NewInbound returns an Inbound feeding sink.
func NewInbound(ctx context.Context, topics Topics, sink Sink, log logger.Logger) *Inbound {
	if topics.Command == "" {
		topics.Command = DefaultCommandTopic
	}
	if topics.Sample == "" {
		topics.Sample = DefaultSampleTopic
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Inbound{ctx: ctx, topics: topics, sink: sink, log: log}
}

// Start subscribes to the command and telemetry topics.
func (in *Inbound) Start(cli Client) error {
	if err := cli.Subscribe(in.topics.Command, in.topics.CommandQoS, in.onCommand); err != nil {
		return err
	}
	return cli.Subscribe(in.topics.Sample, in.topics.TelemetryQoS, in.onSample)
}

func (in *Inbound) onCommand(topic string, payload []byte) {
	req, err := DecodeCommand(payload)
	if err != nil {
		in.log.Warnf("drop command on %s: %v", topic, err)
		return
	}
	if req.Source == "" {
		req.Source = "mqtt"
	}
	if err := in.sink.Enqueue(in.ctx, req); err != nil {
		in.log.Warnf("command on %s not queued: %v", topic, err)
	}
}

func (in *Inbound) onSample(topic string, payload []byte) {
	var s ride.Sample
	if err := json.Unmarshal(payload, &s); err != nil {
		in.log.Warnf("drop sample on %s: %v", topic, err)
		return
	}
	if err := in.sink.SubmitSample(in.ctx, s); err != nil {
		in.log.Debugf("sample on %s not queued: %v", topic, err)
	}
}

// DecodeCommand accepts a JSON CommandRequest or a bare command name.
func DecodeCommand(payload []byte) (events.CommandRequest, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return events.CommandRequest{}, fmt.Errorf("empty command")
	}
	if payload[0] != '{' {
		cmd, err := events.ParseCommand(string(bytes.Trim(payload, `"`)))
		return events.CommandRequest{Command: cmd}, err
	}
	var raw struct {
		Command   string  `json:"command"`
		FuelAdded float64 `json:"fuel_added"`
		Source    string  `json:"source"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return events.CommandRequest{}, err
	}
	cmd, err := events.ParseCommand(raw.Command)
	if err != nil {
		return events.CommandRequest{}, err
	}
	return events.CommandRequest{Command: cmd, FuelAdded: raw.FuelAdded, Source: raw.Source}, nil
}

// CommandSender publishes commands for a remote tracker.
type CommandSender struct {
	cli   Client
	topic string
	qos   byte
}

// NewCommandSender returns a sender for topic.
func NewCommandSender(cli Client, topic string, qos byte) *CommandSender {
	if topic == "" {
		topic = DefaultCommandTopic
	}
	return &CommandSender{cli: cli, topic: topic, qos: qos}
}

// Send publishes req as JSON.
func (s *CommandSender) Send(ctx context.Context, req events.CommandRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return s.cli.Publish(ctx, s.topic, s.qos, false, payload)
}
