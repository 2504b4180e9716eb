package config

import "fmt"

// TelemetryConfig holds the MQTT topics rider commands and GPS samples arrive
// on.
type TelemetryConfig struct {
	Enabled         bool    `json:"enabled"`
	SampleTopic     string  `json:"sample_topic"`
	CommandTopic    string  `json:"command_topic"`
	NoiseGateMeters float64 `json:"noise_gate_meters"`
}

// SetDefaults applies the default topics.
func (c *TelemetryConfig) SetDefaults() {
	if c.SampleTopic == "" {
		c.SampleTopic = "fuelbuddy/telemetry"
	}
	if c.CommandTopic == "" {
		c.CommandTopic = "fuelbuddy/commands"
	}
	if c.NoiseGateMeters == 0 {
		c.NoiseGateMeters = 1
	}
}

// Validate checks the topics and gate.
func (c TelemetryConfig) Validate() error {
	if c.NoiseGateMeters < 0 {
		return fmt.Errorf("noise_gate_meters must not be negative")
	}
	if c.Enabled && (c.SampleTopic == "" || c.CommandTopic == "") {
		return fmt.Errorf("sample_topic and command_topic are required")
	}
	return nil
}
