package model

import (
	"fmt"
	"math"
)

// Position is a point in network coordinates, in meters.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// DistanceTo returns the straight-line distance between p and q.
func (p Position) DistanceTo(q Position) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// EnergyState is the battery snapshot a device works with during one tick.
// Energy is expressed in Wh and the consumption rate in Wh per meter.
type EnergyState struct {
	StoredEnergy    float64
	ConsumptionRate float64 // estimate supplied by the battery model
	ReserveFactor   float64 // safety multiplier applied to predicted consumption, > 1
}

// Validate checks that the state can be used for a prediction.
func (s EnergyState) Validate() error {
	if math.IsNaN(s.StoredEnergy) || math.IsInf(s.StoredEnergy, 0) {
		return fmt.Errorf("stored energy must be finite")
	}
	if s.ConsumptionRate <= 0 || math.IsNaN(s.ConsumptionRate) || math.IsInf(s.ConsumptionRate, 0) {
		return fmt.Errorf("consumption rate must be positive, got %v", s.ConsumptionRate)
	}
	if s.ReserveFactor < 1 || math.IsNaN(s.ReserveFactor) || math.IsInf(s.ReserveFactor, 0) {
		return fmt.Errorf("reserve factor must be >= 1, got %v", s.ReserveFactor)
	}
	return nil
}
