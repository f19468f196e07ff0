package events

import (
	"time"

	"github.com/kilianp07/stationfinder/core/model"
)

// WarningKind classifies a WarningEvent.
type WarningKind string

const (
	WarningAdmissionExhausted WarningKind = "admission_exhausted"
	WarningNoFeasibleStation  WarningKind = "no_feasible_station"
	WarningModeling           WarningKind = "modeling_failure"
	WarningReservationLost    WarningKind = "reservation_lost"
	WarningRouteRejected      WarningKind = "route_rejected"
)

// WarningEvent is published for recoverable per-vehicle problems.
type WarningEvent struct {
	VehicleID string
	Kind      WarningKind
	StationID string
	Err       error
	Time      time.Duration
}

// SummaryEvent is published when a device is torn down.
type SummaryEvent struct {
	Summary model.Summary
}
