// Package status keeps the latest known station finder state of every vehicle
// for reporting.
package status

import (
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/stationfinder/core/model"
)

// Status captures the current known state of a vehicle.
type Status struct {
	VehicleID    string         `json:"vehicle_id"`
	Phase        model.Phase    `json:"phase"`
	Target       string         `json:"target,omitempty"`
	Position     model.Position `json:"position"`
	StoredEnergy float64        `json:"stored_energy_wh"`
	Margin       float64        `json:"margin_wh"`
	Tick         int64          `json:"tick"`
	Time         time.Duration  `json:"time"`
	Finished     bool           `json:"finished"`
}

// Filter selects statuses. Zero values match everything.
type Filter struct {
	Phase  *model.Phase
	Target string
	Active bool
}

type Store interface {
	Set(Status)
	Get(vehicleID string) (Status, bool)
	List(Filter) []Status
	Counts() map[model.Phase]int
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Status{}}
}

func (s *MemoryStore) Set(st Status) {
	s.mu.Lock()
	s.data[st.VehicleID] = st
	s.mu.Unlock()
}

func (s *MemoryStore) Get(id string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data[id]
	return st, ok
}

func (s *MemoryStore) List(f Filter) []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		if f.Phase != nil && st.Phase != *f.Phase {
			continue
		}
		if f.Target != "" && st.Target != f.Target {
			continue
		}
		if f.Active && st.Finished {
			continue
		}
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].VehicleID < res[j].VehicleID })
	return res
}

// Counts returns the number of unfinished vehicles per phase.
func (s *MemoryStore) Counts() map[model.Phase]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[model.Phase]int{}
	for _, st := range s.data {
		if !st.Finished {
			out[st.Phase]++
		}
	}
	return out
}
