package model

import (
	"fmt"
	"time"
)

// Phase is the state of a station finder device.
type Phase int

const (
	PhaseNormal Phase = iota
	PhaseSearching
	PhaseReserved
	PhaseEnRoute
	PhaseCharging
	PhaseResuming
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseNormal:
		return "NORMAL"
	case PhaseSearching:
		return "SEARCHING"
	case PhaseReserved:
		return "RESERVED"
	case PhaseEnRoute:
		return "EN_ROUTE_TO_STATION"
	case PhaseCharging:
		return "CHARGING"
	case PhaseResuming:
		return "RESUMING"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Summary is the per-vehicle record produced when the vehicle leaves the
// simulation.
type Summary struct {
	VehicleID          string        `json:"vehicle_id"`
	Detours            int           `json:"detours"`
	DetourDistance     float64       `json:"detour_distance_m"`
	DetourTime         time.Duration `json:"detour_time"`
	FinalPhase         Phase         `json:"final_phase"`
	ChargingStation    string        `json:"charging_station,omitempty"`
	AdmissionWarnings  int           `json:"admission_warnings"`
	ModelingFailure    bool          `json:"modeling_failure"`
	LastResortAttempts int           `json:"last_resort_attempts"`
}

// ParsePhase returns the phase with the given name.
func ParsePhase(s string) (Phase, error) {
	for p := PhaseNormal; p <= PhaseResuming; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return PhaseNormal, fmt.Errorf("unknown phase %q", s)
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
