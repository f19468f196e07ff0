package device

import (
	"fmt"
	"time"

	"github.com/kilianp07/stationfinder/core/model"
)

// Config defines station finder settings.
type Config struct {
	// Probability is the share of vehicles equipped with the device. Unset
	// means every vehicle unless Vehicles is given; 0 equips only Vehicles.
	Probability *float64 `json:"probability"`
	// Vehicles lists vehicle ids that are always equipped.
	Vehicles []string `json:"vehicles"`
	// ReserveFactor is used when the battery does not provide one.
	ReserveFactor float64 `json:"reserve_factor"`
	// SearchRadius in meters.
	SearchRadius float64 `json:"search_radius"`
	// ArrivalWindowSeconds bounds how long a reservation waits for the vehicle.
	ArrivalWindowSeconds int `json:"arrival_window_seconds"`
	// ArrivalDistance in meters at which the vehicle counts as at the station.
	ArrivalDistance float64 `json:"arrival_distance"`
	// MaxCandidates is the number of admissions attempted per tick.
	MaxCandidates int `json:"max_candidates"`
	// MaxAdmissionRetries is the number of failed ticks before a warning.
	MaxAdmissionRetries int `json:"max_admission_retries"`
	// Hysteresis is the trip margin (Wh) needed to give up searching.
	Hysteresis float64 `json:"hysteresis"`
	// RetargetIntervalTicks re-ranks stations while en route. Zero disables it.
	RetargetIntervalTicks int `json:"retarget_interval_ticks"`
	// RetargetHysteresis is the margin gain (Wh) needed to switch station.
	RetargetHysteresis float64 `json:"retarget_hysteresis"`
	// NominalSpeed in m/s converts added distance into added time.
	NominalSpeed  float64             `json:"nominal_speed"`
	Compatibility model.Compatibility `json:"compatibility"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Probability == nil && len(c.Vehicles) == 0 {
		c.Probability = model.Ptr(1.0)
	}
	if c.ReserveFactor == 0 {
		c.ReserveFactor = 1.1
	}
	if c.SearchRadius == 0 {
		c.SearchRadius = 5000
	}
	if c.ArrivalWindowSeconds == 0 {
		c.ArrivalWindowSeconds = 600
	}
	if c.ArrivalDistance == 0 {
		c.ArrivalDistance = 25
	}
	if c.MaxCandidates == 0 {
		c.MaxCandidates = 5
	}
	if c.MaxAdmissionRetries == 0 {
		c.MaxAdmissionRetries = 3
	}
	if c.NominalSpeed == 0 {
		c.NominalSpeed = 13.89
	}
}

// Share returns the equipped share of vehicles, 0 when unset.
func (c Config) Share() float64 {
	if c.Probability == nil {
		return 0
	}
	return *c.Probability
}

// Validate checks the configured values.
func (c Config) Validate() error {
	if p := c.Share(); p < 0 || p > 1 {
		return fmt.Errorf("probability must be within [0,1]")
	}
	if c.ReserveFactor < 1 {
		return fmt.Errorf("reserve_factor must be >= 1")
	}
	if c.SearchRadius <= 0 {
		return fmt.Errorf("search_radius must be positive")
	}
	if c.ArrivalWindowSeconds <= 0 {
		return fmt.Errorf("arrival_window_seconds must be positive")
	}
	if c.ArrivalDistance <= 0 {
		return fmt.Errorf("arrival_distance must be positive")
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max_candidates must be positive")
	}
	if c.MaxAdmissionRetries <= 0 {
		return fmt.Errorf("max_admission_retries must be positive")
	}
	if c.Hysteresis < 0 || c.RetargetHysteresis < 0 {
		return fmt.Errorf("hysteresis values must not be negative")
	}
	if c.RetargetIntervalTicks < 0 {
		return fmt.Errorf("retarget_interval_ticks must not be negative")
	}
	if c.NominalSpeed <= 0 {
		return fmt.Errorf("nominal_speed must be positive")
	}
	return nil
}

// ArrivalWindow returns the reservation validity as a duration.
func (c Config) ArrivalWindow() time.Duration {
	return time.Duration(c.ArrivalWindowSeconds) * time.Second
}
