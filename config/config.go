package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/fuelbuddy/core/fuel"
	"github.com/kilianp07/fuelbuddy/core/metrics"
	"github.com/kilianp07/fuelbuddy/infra/mqtt"
)

type Config struct {
	Fuel      fuel.Settings   `json:"fuel"`
	Store     StoreConfig     `json:"store"`
	Snapshot  SnapshotConfig  `json:"snapshot"`
	MQTT      mqtt.Config     `json:"mqtt"`
	Telemetry TelemetryConfig `json:"telemetry"`
	HTTP      HTTPConfig      `json:"http"`
	Metrics   metrics.Config  `json:"metrics"`
	Sentry    SentryConfig    `json:"sentry"`
	Logging   LoggingConfig   `json:"logging"`
}

// Default returns a configuration with every section defaulted. It is what
// Load produces for an empty file.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides: K_HTTP__ADDR sets http.addr.
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	setFuelDefaults(&c.Fuel)
	c.Store.SetDefaults()
	c.Snapshot.SetDefaults()
	c.MQTT.SetDefaults()
	c.Telemetry.SetDefaults()
	c.HTTP.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section and reports all failures at once.
func (c Config) Validate() error {
	var errs []error
	add := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}
	add("fuel", c.Fuel.Validate())
	add("store", c.Store.Validate())
	add("snapshot", c.Snapshot.Validate())
	if c.Telemetry.Enabled || c.Snapshot.Uses("mqtt") {
		add("mqtt", c.MQTT.Validate())
	}
	add("telemetry", c.Telemetry.Validate())
	add("http", c.HTTP.Validate())
	add("sentry", c.Sentry.Validate())
	add("logging", c.Logging.Validate())
	return errors.Join(errs...)
}

// setFuelDefaults fills zero fields of the initial settings.
func setFuelDefaults(s *fuel.Settings) {
	d := fuel.Defaults
	if s.TankCapacity == 0 {
		s.TankCapacity = d.TankCapacity
	}
	if s.FuelEconomy == 0 {
		s.FuelEconomy = d.FuelEconomy
	}
	if s.WarnThreshold == 0 && s.DangerThreshold == 0 {
		s.WarnThreshold = d.WarnThreshold
		s.DangerThreshold = d.DangerThreshold
	}
	if s.UnitPreference == "" {
		s.UnitPreference = d.UnitPreference
	}
}
