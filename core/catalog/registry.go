package catalog

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/stationfinder/core/logger"
	"github.com/kilianp07/stationfinder/core/model"
)

// Config defines catalog related settings.
type Config struct {
	// CooldownSeconds excludes a station for a vehicle after a failed attempt.
	// Unset defaults to 300; 0 disables the cooldown.
	CooldownSeconds *int `json:"cooldown_seconds"`
	// SoonFreeSeconds accepts stations whose busy slots are expected to free
	// up within this window.
	SoonFreeSeconds int `json:"soon_free_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.CooldownSeconds == nil {
		c.CooldownSeconds = model.Ptr(300)
	}
}

// Validate checks the configured values.
func (c Config) Validate() error {
	if c.CooldownSeconds != nil && *c.CooldownSeconds < 0 {
		return fmt.Errorf("cooldown_seconds must not be negative")
	}
	if c.SoonFreeSeconds < 0 {
		return fmt.Errorf("soon_free_seconds must not be negative")
	}
	return nil
}

// Cooldown returns the cooldown as a duration.
func (c Config) Cooldown() time.Duration {
	if c.CooldownSeconds == nil {
		return 0
	}
	return time.Duration(*c.CooldownSeconds) * time.Second
}

// SoonFree returns the soon-free window as a duration.
func (c Config) SoonFree() time.Duration { return time.Duration(c.SoonFreeSeconds) * time.Second }

// Query selects candidate stations for one vehicle.
type Query struct {
	VehicleID     string
	Position      model.Position
	MaxRadius     float64
	Compatibility model.Compatibility
	Now           time.Duration
}

// Registry is the simulation-wide set of charging stations. It is owned by the
// simulation context and handed explicitly to the components that need it.
type Registry struct {
	mu       sync.RWMutex
	cfg      Config
	stations map[string]*model.Station
	index    spatialIndex
	dirty    bool
	// failed[vehicle][station] holds the end of the cooldown
	failed map[string]map[string]time.Duration
	log    logger.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(cfg Config, log logger.Logger) *Registry {
	return &Registry{
		cfg:      cfg,
		stations: make(map[string]*model.Station),
		failed:   make(map[string]map[string]time.Duration),
		log:      log,
	}
}

// Add registers a station. Slot states are reset to free.
func (r *Registry) Add(st model.Station) error {
	if st.ID == "" {
		return fmt.Errorf("station id is required")
	}
	if len(st.Slots) == 0 {
		return fmt.Errorf("station %s has no slots", st.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stations[st.ID]; ok {
		return fmt.Errorf("station %s already registered", st.ID)
	}
	cp := st
	cp.Slots = make([]model.Slot, len(st.Slots))
	for i, sl := range st.Slots {
		cp.Slots[i] = model.Slot{PowerKW: sl.PowerKW}
	}
	r.stations[st.ID] = &cp
	r.dirty = true
	return nil
}

// Len returns the number of stations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stations)
}

// Station returns a copy of the station with the given id.
func (r *Registry) Station(id string) (model.Station, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.stations[id]
	if !ok {
		return model.Station{}, false
	}
	return clone(st), true
}

// Stations returns copies of all stations in ascending id order.
func (r *Registry) Stations() []model.Station {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]model.Station, 0, len(r.stations))
	for _, st := range r.stations {
		res = append(res, clone(st))
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// FindCandidates returns the stations matching q in ascending id order.
func (r *Registry) FindCandidates(q Query) []model.Station {
	r.mu.Lock()
	if r.dirty {
		r.index = buildIndex(r.stations)
		r.dirty = false
	}
	r.mu.Unlock()

	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.index.within(q.Position, q.MaxRadius)
	sort.Strings(ids)
	res := make([]model.Station, 0, len(ids))
	for _, id := range ids {
		st := r.stations[id]
		if !q.Compatibility.Accepts(st) {
			continue
		}
		if !st.FreeWithin(q.Now, r.cfg.SoonFree()) {
			continue
		}
		if r.inCooldownLocked(q.VehicleID, id, q.Now) {
			continue
		}
		res = append(res, clone(st))
	}
	return res
}

// MarkFailed starts the cooldown of stationID for vehicleID.
func (r *Registry) MarkFailed(vehicleID, stationID string, now time.Duration) {
	if r.cfg.Cooldown() <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.failed[vehicleID]
	if m == nil {
		m = make(map[string]time.Duration)
		r.failed[vehicleID] = m
	}
	for id, until := range m {
		if until <= now {
			delete(m, id)
		}
	}
	m[stationID] = now + r.cfg.Cooldown()
	if r.log != nil {
		r.log.Debugf("vehicle %s: station %s in cooldown until %s", vehicleID, stationID, m[stationID])
	}
}

// InCooldown reports whether vehicleID must still avoid stationID.
func (r *Registry) InCooldown(vehicleID, stationID string, now time.Duration) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inCooldownLocked(vehicleID, stationID, now)
}

func (r *Registry) inCooldownLocked(vehicleID, stationID string, now time.Duration) bool {
	until, ok := r.failed[vehicleID][stationID]
	return ok && now < until
}

// Forget drops the cooldown records of a vehicle leaving the simulation.
func (r *Registry) Forget(vehicleID string) {
	r.mu.Lock()
	delete(r.failed, vehicleID)
	r.mu.Unlock()
}

// SetSlot updates the occupancy of one slot. It is meant for the reservation
// arbiter, which owns all occupancy changes.
func (r *Registry) SetSlot(stationID string, slot int, state model.SlotState, freeAt time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stations[stationID]
	if !ok {
		return fmt.Errorf("unknown station %s", stationID)
	}
	if slot < 0 || slot >= len(st.Slots) {
		return fmt.Errorf("station %s has no slot %d", stationID, slot)
	}
	st.Slots[slot].State = state
	st.Slots[slot].FreeAt = freeAt
	if state == model.SlotFree {
		st.Slots[slot].FreeAt = 0
	}
	return nil
}

func clone(st *model.Station) model.Station {
	cp := *st
	cp.Slots = make([]model.Slot, len(st.Slots))
	copy(cp.Slots, st.Slots)
	return cp
}
