package metrics

import (
	"fmt"

	"github.com/kilianp07/stationfinder/core/factory"
)

// Config defines settings for metrics sinks.
type Config struct {
	Sinks          []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// PrometheusAddr serves /metrics when set, e.g. ":9100".
	PrometheusAddr string                 `json:"prometheus_addr" yaml:"prometheus_addr"`
}

// Validate checks that every sink names a registered type.
func (c Config) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sinks[%d]: type is required", i)
		}
	}
	return nil
}
