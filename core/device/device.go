// Package device implements the per-vehicle station finder: it watches the
// battery margin of one vehicle and, when the remaining trip is no longer
// feasible, reserves a charging slot and detours the vehicle through it.
//
// A StationFinder is driven by the stepping loop through the Device
// interface, one call per tick. It never blocks and never touches vehicle
// kinematics; route changes go through the Router collaborator and slot
// changes through the reservation arbiter.
package device

import (
	"errors"
	"time"

	"github.com/kilianp07/stationfinder/core/catalog"
	"github.com/kilianp07/stationfinder/core/model"
)

// Name is the device name used in configuration and output.
const Name = "stationfinder"

// MoveNotification is the per-tick context of a moving vehicle.
type MoveNotification struct {
	Tick     int64
	Time     time.Duration
	Position model.Position
	// Speed in m/s.
	Speed float64
	// RemainingDistance is the route length still to drive, in meters.
	RemainingDistance float64
	Destination       model.Position
}

// IdleNotification is the per-tick context of a stopped vehicle.
type IdleNotification struct {
	Tick     int64
	Time     time.Duration
	Position model.Position
}

// Device is a per-vehicle component notified by the stepping loop. The
// returned flag tells the loop whether the device still wants notifications.
type Device interface {
	Name() string
	OnMove(MoveNotification) bool
	OnIdle(IdleNotification) bool
}

// Battery is the battery model of the vehicle. The device only reads it.
type Battery interface {
	StoredEnergy() float64
	ConsumptionRateEstimate() float64
	ReserveFactor() float64
}

// ErrRouteRejected is returned by a Router that cannot build a detour.
var ErrRouteRejected = errors.New("route rejected")

// Router is the routing collaborator of the simulation.
type Router interface {
	CurrentRoute(vehicleID string) model.Route
	// RequestDetour installs delta in front of base and returns the new route.
	RequestDetour(vehicleID string, base model.Route, delta model.RouteDelta) (model.Route, error)
	RestoreRoute(vehicleID string, previous model.Route) error
	// Distance is the network distance between two positions, in meters.
	Distance(from, to model.Position) float64
}

// Catalog is the station lookup used by the device. It is implemented by
// *catalog.Registry.
type Catalog interface {
	FindCandidates(q catalog.Query) []model.Station
	Station(id string) (model.Station, bool)
	MarkFailed(vehicleID, stationID string, now time.Duration)
}

// Admission is the slot reservation service used by the device. It is
// implemented by *reservation.Arbiter.
type Admission interface {
	TryReserve(vehicleID, stationID string, now, window time.Duration) (model.Reservation, error)
	Arrive(handle string, freeAt time.Duration) error
	Cancel(handle string) error
	Complete(handle string) error
	Active(handle string) (model.Reservation, bool)
}
