// Package reservation implements capacity-aware admission control over the
// charging slots of the station registry.
//
// The registry's slot table is the only state shared between vehicles and
// every change to it goes through an Arbiter. Admission outcomes depend only
// on the order of calls, which the stepping loop fixes to ascending vehicle
// id within a tick, and never on map iteration order.
package reservation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/stationfinder/core/logger"
	"github.com/kilianp07/stationfinder/core/model"
)

// handleNamespace seeds the name-based reservation handles.
var handleNamespace = uuid.MustParse("6f1c3a52-8e0b-4f4e-9a57-3d2b61a0c9e4")

// Capacity is the view of the station registry the arbiter needs. It is
// implemented by *catalog.Registry.
type Capacity interface {
	Station(id string) (model.Station, bool)
	SetSlot(stationID string, slot int, state model.SlotState, freeAt time.Duration) error
}

// Config defines admission settings.
type Config struct {
	// PreferHighPower picks the most powerful free slot instead of the first.
	PreferHighPower bool `json:"prefer_high_power"`
}

// Arbiter grants time-bounded exclusive use of charging slots.
type Arbiter struct {
	mu        sync.Mutex
	slots     Capacity
	cfg       Config
	byHandle  map[string]*model.Reservation
	byVehicle map[string]string
	seq       uint64
	log       logger.Logger
}

// NewArbiter creates an arbiter over the given capacity records.
func NewArbiter(slots Capacity, cfg Config, log logger.Logger) (*Arbiter, error) {
	if slots == nil || log == nil {
		return nil, fmt.Errorf("reservation: nil parameter provided to NewArbiter")
	}
	return &Arbiter{
		slots:     slots,
		cfg:       cfg,
		byHandle:  make(map[string]*model.Reservation),
		byVehicle: make(map[string]string),
		log:       log,
	}, nil
}

// TryReserve claims one free slot at stationID for vehicleID until now+window.
// Failures are returned as *Error.
func (a *Arbiter) TryReserve(vehicleID, stationID string, now, window time.Duration) (model.Reservation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.byVehicle[vehicleID]; ok {
		reservationsTotal.WithLabelValues("already_reserved").Inc()
		return model.Reservation{}, &Error{Reason: AlreadyReserved, VehicleID: vehicleID, StationID: stationID}
	}
	st, ok := a.slots.Station(stationID)
	if !ok {
		reservationsTotal.WithLabelValues("station_unknown").Inc()
		return model.Reservation{}, &Error{Reason: StationUnknown, VehicleID: vehicleID, StationID: stationID}
	}
	slot := a.pickSlot(st)
	if slot < 0 {
		reservationsTotal.WithLabelValues("no_free_slot").Inc()
		return model.Reservation{}, &Error{Reason: NoFreeSlot, VehicleID: vehicleID, StationID: stationID}
	}
	expires := now + window
	if err := a.slots.SetSlot(stationID, slot, model.SlotReserved, expires); err != nil {
		return model.Reservation{}, fmt.Errorf("reserve %s: %w", stationID, err)
	}
	a.seq++
	res := &model.Reservation{
		Handle:    a.newHandle(vehicleID, stationID, now),
		VehicleID: vehicleID,
		StationID: stationID,
		Slot:      slot,
		CreatedAt: now,
		ExpiresAt: expires,
		State:     model.ReservationActive,
	}
	a.byHandle[res.Handle] = res
	a.byVehicle[vehicleID] = res.Handle
	reservationsTotal.WithLabelValues("admitted").Inc()
	activeReservations.Inc()
	a.log.Debugf("vehicle %s reserved slot %d at %s until %s", vehicleID, slot, stationID, expires)
	return *res, nil
}

// newHandle derives a handle from the admission itself so repeated runs hand
// out identical handles.
func (a *Arbiter) newHandle(vehicleID, stationID string, now time.Duration) string {
	name := fmt.Sprintf("%s/%s/%d/%d", vehicleID, stationID, int64(now), a.seq)
	return uuid.NewSHA1(handleNamespace, []byte(name)).String()
}

func (a *Arbiter) pickSlot(st model.Station) int {
	best := -1
	for i, sl := range st.Slots {
		if sl.State != model.SlotFree {
			continue
		}
		if best < 0 {
			best = i
			if !a.cfg.PreferHighPower {
				return best
			}
			continue
		}
		if sl.PowerKW > st.Slots[best].PowerKW {
			best = i
		}
	}
	return best
}

// Arrive marks the vehicle as physically at the station. The slot becomes
// occupied until freeAt (zero when unknown).
func (a *Arbiter) Arrive(handle string, freeAt time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	res, ok := a.byHandle[handle]
	if !ok {
		return ErrAlreadyReleased
	}
	if res.State == model.ReservationArrived {
		return nil
	}
	if err := a.slots.SetSlot(res.StationID, res.Slot, model.SlotOccupied, freeAt); err != nil {
		return err
	}
	res.State = model.ReservationArrived
	return nil
}

// Cancel releases a reservation the vehicle no longer needs.
func (a *Arbiter) Cancel(handle string) error {
	return a.release(handle, model.ReservationReleased, "cancelled")
}

// Complete releases a reservation after charging.
func (a *Arbiter) Complete(handle string) error {
	return a.release(handle, model.ReservationReleased, "completed")
}

func (a *Arbiter) release(handle string, state model.ReservationState, outcome string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.releaseLocked(handle, state, outcome)
}

func (a *Arbiter) releaseLocked(handle string, state model.ReservationState, outcome string) error {
	res, ok := a.byHandle[handle]
	if !ok {
		return ErrAlreadyReleased
	}
	if err := a.slots.SetSlot(res.StationID, res.Slot, model.SlotFree, 0); err != nil {
		return err
	}
	res.State = state
	delete(a.byHandle, handle)
	delete(a.byVehicle, res.VehicleID)
	reservationsTotal.WithLabelValues(outcome).Inc()
	activeReservations.Dec()
	return nil
}

// Expire releases every reservation whose vehicle has not arrived by now and
// returns them in ascending vehicle id order.
func (a *Arbiter) Expire(now time.Duration) []model.Reservation {
	a.mu.Lock()
	defer a.mu.Unlock()
	var due []*model.Reservation
	for _, res := range a.byHandle {
		if res.State == model.ReservationActive && res.ExpiresAt <= now {
			due = append(due, res)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].VehicleID < due[j].VehicleID })
	expired := make([]model.Reservation, 0, len(due))
	for _, res := range due {
		if err := a.releaseLocked(res.Handle, model.ReservationExpired, "expired"); err != nil {
			a.log.Errorf("expire %s: %v", res.Handle, err)
			continue
		}
		a.log.Infof("reservation of vehicle %s at %s expired", res.VehicleID, res.StationID)
		expired = append(expired, *res)
	}
	return expired
}

// Active returns the reservation for handle while it still holds its slot.
func (a *Arbiter) Active(handle string) (model.Reservation, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	res, ok := a.byHandle[handle]
	if !ok {
		return model.Reservation{}, false
	}
	return *res, true
}

// ForVehicle returns the reservation held by vehicleID.
func (a *Arbiter) ForVehicle(vehicleID string) (model.Reservation, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	h, ok := a.byVehicle[vehicleID]
	if !ok {
		return model.Reservation{}, false
	}
	return *a.byHandle[h], true
}

// Len returns the number of reservations holding a slot.
func (a *Arbiter) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.byHandle)
}
