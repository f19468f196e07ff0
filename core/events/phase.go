package events

import (
	"time"

	"github.com/kilianp07/stationfinder/core/model"
)

// PhaseEvent is published on every phase transition of a device.
type PhaseEvent struct {
	VehicleID string
	From      model.Phase
	To        model.Phase
	StationID string
	Tick      int64
	Time      time.Duration
}
