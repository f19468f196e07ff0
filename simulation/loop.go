package simulation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/stationfinder/core/catalog"
	"github.com/kilianp07/stationfinder/core/device"
	"github.com/kilianp07/stationfinder/core/logger"
	"github.com/kilianp07/stationfinder/core/model"
	"github.com/kilianp07/stationfinder/core/reservation"
	"github.com/kilianp07/stationfinder/core/status"
	"github.com/kilianp07/stationfinder/core/tripinfo"
	"github.com/kilianp07/stationfinder/internal/eventbus"
)

// fallbackChargeKW is used when the reserved slot has no power rating.
const fallbackChargeKW = 22

// Options configures a Loop. Bus, Status and TripInfo are optional.
type Options struct {
	Device      device.Config
	Catalog     catalog.Config
	Reservation reservation.Config
	Bus         eventbus.EventBus
	Status      status.Store
	TripInfo    tripinfo.Store
	Logger      logger.Logger
	// Start is the wall-clock time of tick zero, used to stamp records.
	Start time.Time
}

// Vehicle is one simulated vehicle and its devices.
type Vehicle struct {
	ID          string
	Position    model.Position
	Speed       float64
	Depart      int64
	Battery     *BatteryDevice
	Finder      *device.StationFinder
	destination model.Position
	devices     []device.Device
	done        bool
	stranded    bool
}

// Done reports whether the vehicle left the simulation.
func (v *Vehicle) Done() bool { return v.done }

// Loop steps every vehicle once per tick in ascending vehicle id order.
type Loop struct {
	step     time.Duration
	opts     Options
	log      logger.Logger
	registry *catalog.Registry
	arbiter  *reservation.Arbiter
	router   *LineRouter
	vehicles []*Vehicle
	records  []tripinfo.Record
	tick     int64
}

// NewLoop builds the stations, the arbiter and the vehicles of sc.
func NewLoop(sc Scenario, opts Options) (*Loop, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("simulation: nil logger provided to NewLoop")
	}
	sc.SetDefaults()
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	opts.Device.SetDefaults()
	if err := opts.Device.Validate(); err != nil {
		return nil, fmt.Errorf("stationfinder config: %w", err)
	}
	opts.Catalog.SetDefaults()
	if err := opts.Catalog.Validate(); err != nil {
		return nil, fmt.Errorf("catalog config: %w", err)
	}
	reg := catalog.NewRegistry(opts.Catalog, opts.Logger)
	for _, st := range sc.Stations {
		if err := reg.Add(st); err != nil {
			return nil, err
		}
	}
	arb, err := reservation.NewArbiter(reg, opts.Reservation, opts.Logger)
	if err != nil {
		return nil, err
	}
	l := &Loop{
		step:     sc.Step(),
		opts:     opts,
		log:      opts.Logger,
		registry: reg,
		arbiter:  arb,
		router:   NewLineRouter(sc.Unreachable...),
	}
	for _, spec := range sc.Vehicles {
		if err := l.AddVehicle(spec); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// AddVehicle inserts a vehicle, keeping the processing order sorted by id.
func (l *Loop) AddVehicle(spec VehicleSpec) error {
	for _, v := range l.vehicles {
		if v.ID == spec.ID {
			return fmt.Errorf("vehicle %s already exists", spec.ID)
		}
	}
	route := model.Route{Waypoints: spec.Route}
	dest, ok := route.Destination()
	if !ok {
		return fmt.Errorf("vehicle %s: route is empty", spec.ID)
	}
	battery := NewBatteryDevice(spec.Battery)
	v := &Vehicle{
		ID:          spec.ID,
		Position:    spec.Start,
		Speed:       spec.Speed,
		Depart:      spec.Depart,
		Battery:     battery,
		destination: dest.Position,
		devices:     []device.Device{battery},
	}
	l.router.SetRoute(spec.ID, route)
	sf, err := device.Attach(spec.ID, l.opts.Device, device.Deps{
		Catalog:   l.registry,
		Admission: l.arbiter,
		Router:    l.router,
		Bus:       l.opts.Bus,
		Logger:    l.log,
	}, battery)
	if err != nil {
		return err
	}
	if sf != nil {
		battery.SetChargeListener(sf.OnChargeComplete)
		v.Finder = sf
		v.devices = append(v.devices, sf)
	}
	i := sort.Search(len(l.vehicles), func(i int) bool { return l.vehicles[i].ID > spec.ID })
	l.vehicles = append(l.vehicles, nil)
	copy(l.vehicles[i+1:], l.vehicles[i:])
	l.vehicles[i] = v
	return nil
}

// Registry returns the station registry of the run.
func (l *Loop) Registry() *catalog.Registry { return l.registry }

// Arbiter returns the reservation arbiter of the run.
func (l *Loop) Arbiter() *reservation.Arbiter { return l.arbiter }

// Router returns the router of the run.
func (l *Loop) Router() *LineRouter { return l.router }

// Vehicles returns the vehicles in processing order.
func (l *Loop) Vehicles() []*Vehicle { return l.vehicles }

// Tick returns the next tick to run.
func (l *Loop) Tick() int64 { return l.tick }

// Records returns the summaries of the vehicles that finished, in finishing
// order.
func (l *Loop) Records() []tripinfo.Record { return l.records }

// Done reports whether every vehicle finished.
func (l *Loop) Done() bool {
	for _, v := range l.vehicles {
		if !v.done {
			return false
		}
	}
	return true
}

// Run steps until every vehicle finished, maxTicks ticks ran (when positive)
// or ctx is canceled.
func (l *Loop) Run(ctx context.Context, maxTicks int64) ([]tripinfo.Record, error) {
	for maxTicks <= 0 || l.tick < maxTicks {
		if l.Done() {
			break
		}
		if err := ctx.Err(); err != nil {
			return l.records, err
		}
		l.Step(ctx)
	}
	return l.records, nil
}

// Step runs one tick: overdue reservations expire first, then every vehicle
// moves in id order.
func (l *Loop) Step(ctx context.Context) {
	now := time.Duration(l.tick) * l.step
	for _, res := range l.arbiter.Expire(now) {
		l.log.Debugf("tick %d: reservation of %s at %s expired", l.tick, res.VehicleID, res.StationID)
	}
	for _, v := range l.vehicles {
		if v.done || l.tick < v.Depart {
			continue
		}
		l.stepVehicle(ctx, v, now)
	}
	l.tick++
}

func (l *Loop) stepVehicle(ctx context.Context, v *Vehicle, now time.Duration) {
	if v.Finder != nil && v.Finder.Phase() == model.PhaseCharging {
		if !v.Battery.Charging() {
			v.Battery.StartCharging(l.slotPower(v.ID), now)
		}
		idle := device.IdleNotification{Tick: l.tick, Time: now, Position: v.Position}
		for _, d := range v.devices {
			d.OnIdle(idle)
		}
		l.report(v, now)
		return
	}
	if v.Battery.Empty() {
		l.log.Warnw("vehicle stranded", map[string]any{"vehicle": v.ID, "tick": l.tick})
		v.stranded = true
		l.finish(ctx, v, now)
		return
	}
	pos, finished := l.router.Advance(v.ID, v.Position, v.Speed*l.step.Seconds())
	v.Position = pos
	n := device.MoveNotification{
		Tick:              l.tick,
		Time:              now,
		Position:          pos,
		Speed:             v.Speed,
		RemainingDistance: l.router.Remaining(v.ID, pos),
		Destination:       v.destination,
	}
	for _, d := range v.devices {
		d.OnMove(n)
	}
	if finished {
		l.finish(ctx, v, now)
		return
	}
	l.report(v, now)
}

func (l *Loop) slotPower(vehicleID string) float64 {
	res, ok := l.arbiter.ForVehicle(vehicleID)
	if !ok {
		return fallbackChargeKW
	}
	st, ok := l.registry.Station(res.StationID)
	if !ok || st.Slots[res.Slot].PowerKW <= 0 {
		return fallbackChargeKW
	}
	return st.Slots[res.Slot].PowerKW
}

func (l *Loop) finish(ctx context.Context, v *Vehicle, now time.Duration) {
	v.done = true
	sum := model.Summary{VehicleID: v.ID}
	if v.Finder != nil {
		sum = v.Finder.Teardown()
	}
	v.Battery.SetChargeListener(nil)
	l.router.Remove(v.ID)
	l.registry.Forget(v.ID)
	rec := tripinfo.Record{
		Summary:   sum,
		Tick:      l.tick,
		Stranded:  v.stranded,
		Timestamp: l.opts.Start.Add(now),
	}
	l.records = append(l.records, rec)
	if l.opts.TripInfo != nil {
		if err := l.opts.TripInfo.Append(ctx, rec); err != nil {
			l.log.Errorf("tripinfo: append %s: %v", v.ID, err)
		}
	}
	l.log.Infof("vehicle %s finished at tick %d (detours=%d stranded=%t)", v.ID, l.tick, sum.Detours, v.stranded)
	l.report(v, now)
}

func (l *Loop) report(v *Vehicle, now time.Duration) {
	if l.opts.Status == nil {
		return
	}
	st := status.Status{
		VehicleID:    v.ID,
		Position:     v.Position,
		StoredEnergy: v.Battery.StoredEnergy(),
		Tick:         l.tick,
		Time:         now,
		Finished:     v.done,
	}
	if v.Finder != nil {
		st.Phase = v.Finder.Phase()
		st.Target, _ = v.Finder.Target()
		st.Margin = v.Finder.LastMargin()
	}
	l.opts.Status.Set(st)
}
