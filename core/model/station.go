package model

import "time"

// SlotState is the occupancy of one charging slot.
type SlotState int

const (
	SlotFree SlotState = iota
	SlotReserved
	SlotOccupied
)

// String returns a human-readable representation of the slot state.
func (s SlotState) String() string {
	switch s {
	case SlotFree:
		return "free"
	case SlotReserved:
		return "reserved"
	case SlotOccupied:
		return "occupied"
	default:
		return "unknown"
	}
}

// Slot is one unit of concurrent charging capacity at a station.
type Slot struct {
	PowerKW float64   `json:"power_kw" yaml:"power_kw"`
	State   SlotState `json:"state" yaml:"-"`
	// FreeAt is the simulation time at which an occupied or reserved slot is
	// expected to become free again. Zero means unknown.
	FreeAt time.Duration `json:"free_at" yaml:"-"`
}

// Interface describes the plug and power class offered by a station.
type Interface struct {
	Plug       string `json:"plug" yaml:"plug"`
	PowerClass string `json:"power_class" yaml:"power_class"`
}

// Station is a charging-capable stopping place shared by all vehicles.
type Station struct {
	ID        string    `json:"id" yaml:"id"`
	Position  Position  `json:"position" yaml:"position"`
	Interface Interface `json:"interface" yaml:"interface"`
	Slots     []Slot    `json:"slots" yaml:"slots"`
}

// Capacity returns the number of slots.
func (s *Station) Capacity() int { return len(s.Slots) }

// Count returns the number of slots in the given state.
func (s *Station) Count(state SlotState) int {
	n := 0
	for _, sl := range s.Slots {
		if sl.State == state {
			n++
		}
	}
	return n
}

// FreeSlots returns the number of slots neither reserved nor occupied.
func (s *Station) FreeSlots() int { return s.Count(SlotFree) }

// FreeWithin reports whether a slot is free now or expected to free up
// before now+window.
func (s *Station) FreeWithin(now, window time.Duration) bool {
	for _, sl := range s.Slots {
		if sl.State == SlotFree {
			return true
		}
		if window > 0 && sl.FreeAt > 0 && sl.FreeAt <= now+window {
			return true
		}
	}
	return false
}

// MaxPowerKW returns the highest slot rating of the station.
func (s *Station) MaxPowerKW() float64 {
	var max float64
	for _, sl := range s.Slots {
		if sl.PowerKW > max {
			max = sl.PowerKW
		}
	}
	return max
}

// Compatibility is the charging interface a vehicle can use. An empty plug
// list accepts any plug.
type Compatibility struct {
	Plugs      []string `json:"plugs" yaml:"plugs"`
	MinPowerKW float64  `json:"min_power_kw" yaml:"min_power_kw"`
}

// Accepts returns true if the station can charge a vehicle with compatibility c.
func (c Compatibility) Accepts(s *Station) bool {
	if c.MinPowerKW > 0 && s.MaxPowerKW() < c.MinPowerKW {
		return false
	}
	if len(c.Plugs) == 0 {
		return true
	}
	for _, p := range c.Plugs {
		if p == s.Interface.Plug {
			return true
		}
	}
	return false
}
