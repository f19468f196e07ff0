package metrics

import (
	"time"

	"github.com/kilianp07/stationfinder/core/model"
)

// TripSummary is the record of a vehicle leaving the simulation.
type TripSummary struct {
	Summary model.Summary
	Time    time.Time
}

// MetricsSink records trip summaries for observability purposes.
type MetricsSink interface {
	RecordTripSummary(ev TripSummary) error
}

// PhaseTransition is a controller phase change of one vehicle.
type PhaseTransition struct {
	VehicleID string
	From      model.Phase
	To        model.Phase
	StationID string
	Tick      int64
	Time      time.Time
}

// PhaseRecorder records phase transitions.
type PhaseRecorder interface {
	RecordPhaseTransition(ev PhaseTransition) error
}

// Warning is a non-fatal condition reported by a device.
type Warning struct {
	VehicleID string
	Kind      string
	StationID string
	Message   string
	Time      time.Time
}

// WarningRecorder records device warnings.
type WarningRecorder interface {
	RecordWarning(ev Warning) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTripSummary(TripSummary) error         { return nil }
func (NopSink) RecordPhaseTransition(PhaseTransition) error { return nil }
func (NopSink) RecordWarning(Warning) error                 { return nil }
