// Package config loads the station finder configuration from a YAML or JSON
// file. Values can be overridden with K_ prefixed environment variables where
// a double underscore separates nested keys, e.g.
// K_STATIONFINDER__PROBABILITY=0.5.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/stationfinder/core/catalog"
	"github.com/kilianp07/stationfinder/core/device"
	"github.com/kilianp07/stationfinder/core/metrics"
	"github.com/kilianp07/stationfinder/core/reservation"
	"github.com/kilianp07/stationfinder/core/tripinfo"
	"github.com/kilianp07/stationfinder/infra/mqtt"
)

type Config struct {
	StationFinder device.Config      `json:"stationfinder"`
	Catalog       catalog.Config     `json:"catalog"`
	Reservation   reservation.Config `json:"reservation"`
	Metrics       metrics.Config     `json:"metrics"`
	TripInfo      tripinfo.Config    `json:"tripinfo"`
	MQTT          mqtt.Config        `json:"mqtt"`
	Simulation    SimulationConfig   `json:"simulation"`
}

// Default returns a configuration with every section defaulted.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.StationFinder.SetDefaults()
	c.Catalog.SetDefaults()
	c.TripInfo.SetDefaults()
	c.MQTT.SetDefaults()
	c.Simulation.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"stationfinder", c.StationFinder.Validate},
		{"catalog", c.Catalog.Validate},
		{"metrics", c.Metrics.Validate},
		{"tripinfo", c.TripInfo.Validate},
		{"mqtt", c.MQTT.Validate},
		{"simulation", c.Simulation.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
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
	// Optional environment overrides: K_SECTION__KEY maps to section.key.
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
