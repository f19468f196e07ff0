package energy

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/stationfinder/core/model"
)

// ErrModeling reports inputs the battery model should never have produced,
// such as a non-positive consumption rate.
var ErrModeling = errors.New("energy modeling error")

// Input describes one prediction. Distances are in meters.
type Input struct {
	State model.EnergyState
	// DistanceToTarget is consumed at the plain rate.
	DistanceToTarget float64
	// DistanceBeyondTarget is consumed at rate times reserve factor.
	DistanceBeyondTarget float64
}

// Predictor computes feasibility margins. It has no state.
type Predictor struct{}

// NewPredictor returns a Predictor.
func NewPredictor() Predictor { return Predictor{} }

// Margin returns the predicted energy left at the target minus the
// reserve-scaled consumption for the remainder beyond it.
func (Predictor) Margin(in Input) (float64, error) {
	if err := validate(in); err != nil {
		return 0, err
	}
	s := in.State
	atTarget := s.StoredEnergy - Consumption(s.ConsumptionRate, in.DistanceToTarget)
	return atTarget - s.ReserveFactor*Consumption(s.ConsumptionRate, in.DistanceBeyondTarget), nil
}

// TripMargin is the margin for finishing the remaining trip from here.
func (p Predictor) TripMargin(s model.EnergyState, remaining float64) (float64, error) {
	return p.Margin(Input{State: s, DistanceBeyondTarget: remaining})
}

// Consumption returns the energy needed for distance at rate. It is never
// negative.
func Consumption(rate, distance float64) float64 {
	c := rate * distance
	if c < 0 || math.IsNaN(c) {
		return 0
	}
	return c
}

// Range returns the distance reachable while keeping the reserve. It is never
// negative.
func Range(s model.EnergyState) (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrModeling, err)
	}
	r := s.StoredEnergy / (s.ConsumptionRate * s.ReserveFactor)
	if r < 0 {
		return 0, nil
	}
	return r, nil
}

func validate(in Input) error {
	if err := in.State.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrModeling, err)
	}
	for _, d := range []float64{in.DistanceToTarget, in.DistanceBeyondTarget} {
		if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return fmt.Errorf("%w: invalid distance %v", ErrModeling, d)
		}
	}
	return nil
}
