// Package ranking orders candidate charging stations for one vehicle.
package ranking

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/kilianp07/stationfinder/core/energy"
	"github.com/kilianp07/stationfinder/core/model"
)

// keyPrecision is the number of decimals kept in the sort keys. Margins and
// distances equal after rounding compare on the next key.
const keyPrecision = 6

// Candidate is a station seen from the position of one vehicle.
type Candidate struct {
	StationID string
	// DistanceToStation is the network distance from the vehicle, in meters.
	DistanceToStation float64
	// AddedDistance is the extra distance of the detour compared to the
	// direct remaining route.
	AddedDistance float64
	FreeSlots     int
}

// Ranked is a scored candidate.
type Ranked struct {
	Candidate
	Margin    float64
	AddedTime time.Duration
	// LastResort is set when no candidate is feasible and this one is the
	// least infeasible.
	LastResort bool

	marginKey float64
	addedKey  float64
}

// Ranker orders candidates by feasibility margin, added travel and free slots.
type Ranker struct {
	predictor energy.Predictor
	// NominalSpeed in m/s converts added distance into added time.
	NominalSpeed float64
}

// NewRanker returns a Ranker using the given nominal speed (m/s).
func NewRanker(p energy.Predictor, nominalSpeed float64) Ranker {
	if nominalSpeed <= 0 {
		nominalSpeed = 13.89
	}
	return Ranker{predictor: p, NominalSpeed: nominalSpeed}
}

// Rank scores every candidate and returns them best first. Infeasible
// candidates are dropped unless none is feasible, in which case only the least
// infeasible one is returned and flagged as last resort.
func (r Ranker) Rank(state model.EnergyState, cands []Candidate) ([]Ranked, error) {
	if len(cands) == 0 {
		return nil, nil
	}
	all := make([]Ranked, 0, len(cands))
	for _, c := range cands {
		m, err := r.predictor.Margin(energy.Input{State: state, DistanceBeyondTarget: c.DistanceToStation})
		if err != nil {
			return nil, fmt.Errorf("rank %s: %w", c.StationID, err)
		}
		added := c.AddedDistance
		if added < 0 {
			added = 0
		}
		all = append(all, Ranked{
			Candidate: c,
			Margin:    m,
			AddedTime: time.Duration(added / r.NominalSpeed * float64(time.Second)),
			marginKey: scalar.Round(m, keyPrecision),
			addedKey:  scalar.Round(added, keyPrecision),
		})
	}
	sort.SliceStable(all, func(i, j int) bool { return less(all[i], all[j]) })

	feasible := all[:0:0]
	for _, c := range all {
		if c.Margin >= 0 {
			feasible = append(feasible, c)
		}
	}
	if len(feasible) > 0 {
		return feasible, nil
	}
	best := all[0]
	best.LastResort = true
	return []Ranked{best}, nil
}

func less(a, b Ranked) bool {
	if a.marginKey != b.marginKey {
		return a.marginKey > b.marginKey
	}
	if a.addedKey != b.addedKey {
		return a.addedKey < b.addedKey
	}
	if a.FreeSlots != b.FreeSlots {
		return a.FreeSlots > b.FreeSlots
	}
	return a.StationID < b.StationID
}
