// Package tripinfo persists the per-vehicle summaries produced when a vehicle
// leaves the simulation. Backends are selected by name through the factory
// registry: "memory", "jsonl", "rotating" and "sqlite".
package tripinfo

import (
	"context"
	"time"

	"github.com/kilianp07/stationfinder/core/model"
)

// Record is one finished trip.
type Record struct {
	model.Summary
	// Tick at which the vehicle left the simulation.
	Tick      int64     `json:"tick"`
	Stranded  bool      `json:"stranded"`
	Timestamp time.Time `json:"timestamp"`
}

// Query defines filters for retrieving records. Zero values match everything.
type Query struct {
	VehicleID       string
	ChargingStation string
	MinDetours      int
	OnlyStranded    bool
}

// Match reports whether r passes the filters of q.
func (q Query) Match(r Record) bool {
	if q.VehicleID != "" && r.VehicleID != q.VehicleID {
		return false
	}
	if q.ChargingStation != "" && r.ChargingStation != q.ChargingStation {
		return false
	}
	if r.Detours < q.MinDetours {
		return false
	}
	if q.OnlyStranded && !r.Stranded {
		return false
	}
	return true
}

// Store persists Records and supports querying. Query returns records in
// append order.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}
