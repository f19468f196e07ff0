package device

import (
	"math"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Equipped reports whether vehicleID carries a station finder. Vehicles
// listed explicitly are always equipped; the others are drawn with the
// configured probability from a hash of their id, so the choice is stable
// across runs and independent of insertion order.
func Equipped(cfg Config, vehicleID string) bool {
	if slices.Contains(cfg.Vehicles, vehicleID) {
		return true
	}
	p := cfg.Share()
	switch {
	case p >= 1:
		return true
	case p <= 0:
		return false
	}
	draw := float64(xxhash.Sum64String(Name+"/"+vehicleID)) / math.MaxUint64
	return draw < p
}

// Attach builds the station finder of vehicleID when the vehicle is equipped
// and wires it to battery. It returns nil, nil for unequipped vehicles.
func Attach(vehicleID string, cfg Config, deps Deps, battery Battery) (*StationFinder, error) {
	if !Equipped(cfg, vehicleID) {
		return nil, nil
	}
	sf, err := NewStationFinder(vehicleID, cfg, deps)
	if err != nil {
		return nil, err
	}
	sf.SetBattery(battery)
	return sf, nil
}
