package config

import "testing"

func TestTelemetryConfigDefaults(t *testing.T) {
	cfg := TelemetryConfig{}
	cfg.SetDefaults()
	if cfg.SampleTopic != "fuelbuddy/telemetry" {
		t.Fatalf("expected default sample topic, got %s", cfg.SampleTopic)
	}
	if cfg.CommandTopic != "fuelbuddy/commands" {
		t.Fatalf("expected default command topic, got %s", cfg.CommandTopic)
	}
	if cfg.NoiseGateMeters != 1 {
		t.Fatalf("expected default gate 1, got %v", cfg.NoiseGateMeters)
	}
}

func TestTelemetryConfigValues(t *testing.T) {
	cfg := TelemetryConfig{SampleTopic: "a", CommandTopic: "b", NoiseGateMeters: 3}
	cfg.SetDefaults()
	if cfg.SampleTopic != "a" || cfg.CommandTopic != "b" {
		t.Fatalf("topics overwritten: %+v", cfg)
	}
	if cfg.NoiseGateMeters != 3 {
		t.Fatalf("expected gate 3, got %v", cfg.NoiseGateMeters)
	}
}
