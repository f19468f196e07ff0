// Package simulation is a minimal tick-driven harness for the station finder:
// vehicles drive straight lines between waypoints, batteries drain linearly
// with distance and charge at the power of their reserved slot. It exists to
// exercise the device end to end and is not a traffic model.
package simulation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/stationfinder/core/model"
)

// BatterySpec describes the battery of one vehicle.
type BatterySpec struct {
	CapacityWh        float64 `yaml:"capacity_wh" json:"capacity_wh"`
	StoredWh          float64 `yaml:"stored_wh" json:"stored_wh"`
	ConsumptionWhPerM float64 `yaml:"consumption_wh_per_m" json:"consumption_wh_per_m"`
	// ReserveFactor of zero lets the device use its configured default.
	ReserveFactor float64 `yaml:"reserve_factor" json:"reserve_factor"`
}

// VehicleSpec describes one vehicle of the scenario.
type VehicleSpec struct {
	ID    string         `yaml:"id" json:"id"`
	Start model.Position `yaml:"start" json:"start"`
	// Speed in m/s.
	Speed   float64          `yaml:"speed" json:"speed"`
	Depart  int64            `yaml:"depart" json:"depart"`
	Route   []model.Waypoint `yaml:"route" json:"route"`
	Battery BatterySpec      `yaml:"battery" json:"battery"`
}

// Scenario is the static input of a run.
type Scenario struct {
	StepSeconds float64         `yaml:"step_seconds" json:"step_seconds"`
	Stations    []model.Station `yaml:"stations" json:"stations"`
	Vehicles    []VehicleSpec   `yaml:"vehicles" json:"vehicles"`
	// Unreachable lists stations the router refuses to route to.
	Unreachable []string `yaml:"unreachable" json:"unreachable"`
}

// SetDefaults applies sane defaults.
func (s *Scenario) SetDefaults() {
	if s.StepSeconds == 0 {
		s.StepSeconds = 1
	}
}

// Step returns the tick length.
func (s Scenario) Step() time.Duration {
	return time.Duration(s.StepSeconds * float64(time.Second))
}

// Validate checks the scenario for inconsistencies.
func (s Scenario) Validate() error {
	if s.StepSeconds <= 0 {
		return fmt.Errorf("step_seconds must be positive")
	}
	seen := map[string]bool{}
	for _, v := range s.Vehicles {
		if v.ID == "" {
			return fmt.Errorf("vehicle id is required")
		}
		if seen[v.ID] {
			return fmt.Errorf("duplicate vehicle %s", v.ID)
		}
		seen[v.ID] = true
		if v.Speed <= 0 {
			return fmt.Errorf("vehicle %s: speed must be positive", v.ID)
		}
		if len(v.Route) == 0 {
			return fmt.Errorf("vehicle %s: route is empty", v.ID)
		}
		b := v.Battery
		if b.CapacityWh <= 0 || b.StoredWh < 0 || b.StoredWh > b.CapacityWh {
			return fmt.Errorf("vehicle %s: invalid battery capacity or charge", v.ID)
		}
	}
	return nil
}

// LoadScenario reads a scenario from a YAML or JSON file.
func LoadScenario(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, err
	}
	defer func() { _ = f.Close() }()
	return DecodeScenario(f, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// DecodeScenario reads from r to decode a Scenario.
func DecodeScenario(r io.Reader, format string) (Scenario, error) {
	var sc Scenario
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&sc); err != nil {
			return sc, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&sc); err != nil {
			return sc, err
		}
	default:
		return sc, fmt.Errorf("unsupported scenario format: %s", format)
	}
	sc.SetDefaults()
	return sc, sc.Validate()
}
