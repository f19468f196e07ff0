package reservation

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFreeSlot is returned when every slot of the station is taken.
	ErrNoFreeSlot = errors.New("no free slot")
	// ErrAlreadyReserved is returned when the vehicle already holds a reservation.
	ErrAlreadyReserved = errors.New("vehicle already holds a reservation")
	// ErrStationUnknown is returned for station ids missing from the registry.
	ErrStationUnknown = errors.New("station unknown")
	// ErrAlreadyReleased is returned when releasing an unknown or released
	// handle. It is benign.
	ErrAlreadyReleased = errors.New("reservation already released")
)

// Reason classifies an admission failure.
type Reason int

const (
	NoFreeSlot Reason = iota
	AlreadyReserved
	StationUnknown
)

// String returns a human-readable representation of the reason.
func (r Reason) String() string {
	switch r {
	case NoFreeSlot:
		return "NoFreeSlot"
	case AlreadyReserved:
		return "AlreadyReserved"
	case StationUnknown:
		return "StationUnknown"
	default:
		return "unknown"
	}
}

// Error describes a rejected admission.
type Error struct {
	Reason    Reason
	VehicleID string
	StationID string
}

func (e *Error) Error() string {
	return fmt.Sprintf("reserve %s for %s: %s", e.StationID, e.VehicleID, e.Unwrap())
}

// Unwrap returns the sentinel error matching the reason.
func (e *Error) Unwrap() error {
	switch e.Reason {
	case AlreadyReserved:
		return ErrAlreadyReserved
	case StationUnknown:
		return ErrStationUnknown
	default:
		return ErrNoFreeSlot
	}
}
