package config

import (
	"fmt"
	"time"
)

// SimulationConfig configures the stepping loop of the run command.
type SimulationConfig struct {
	// MaxTicks stops the run early. Zero runs until every vehicle finished.
	MaxTicks int64 `json:"max_ticks"`
	// StartTime is the RFC3339 wall-clock time of tick zero, used to stamp
	// trip records.
	StartTime string `json:"start_time"`
	// EventBuffer is the per-subscriber buffer of the event bus.
	EventBuffer int `json:"event_buffer"`
}

// SetDefaults applies sane defaults.
func (c *SimulationConfig) SetDefaults() {
	if c.StartTime == "" {
		c.StartTime = "2024-01-01T00:00:00Z"
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = 1024
	}
}

// Validate checks the configured values.
func (c SimulationConfig) Validate() error {
	if c.MaxTicks < 0 {
		return fmt.Errorf("max_ticks must not be negative")
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("event_buffer must not be negative")
	}
	if _, err := c.Start(); err != nil {
		return fmt.Errorf("start_time: %w", err)
	}
	return nil
}

// Start returns the parsed start time.
func (c SimulationConfig) Start() (time.Time, error) {
	return time.Parse(time.RFC3339, c.StartTime)
}
