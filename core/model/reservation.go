package model

import "time"

// ReservationState tracks the lifecycle of a reservation.
type ReservationState int

const (
	ReservationActive ReservationState = iota
	ReservationArrived
	ReservationReleased
	ReservationExpired
)

// String returns a human-readable representation of the reservation state.
func (s ReservationState) String() string {
	switch s {
	case ReservationActive:
		return "active"
	case ReservationArrived:
		return "arrived"
	case ReservationReleased:
		return "released"
	case ReservationExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Reservation binds one vehicle to one slot for a bounded interval.
type Reservation struct {
	Handle    string
	VehicleID string
	StationID string
	Slot      int
	CreatedAt time.Duration
	ExpiresAt time.Duration
	State     ReservationState
}

// Held returns true while the reservation still claims its slot.
func (r Reservation) Held() bool {
	return r.State == ReservationActive || r.State == ReservationArrived
}
