package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/stationfinder/core/catalog"
	"github.com/kilianp07/stationfinder/core/energy"
	"github.com/kilianp07/stationfinder/core/events"
	"github.com/kilianp07/stationfinder/core/logger"
	"github.com/kilianp07/stationfinder/core/model"
	"github.com/kilianp07/stationfinder/core/ranking"
	"github.com/kilianp07/stationfinder/core/reservation"
	"github.com/kilianp07/stationfinder/internal/eventbus"
)

// Deps groups the collaborators of a StationFinder. Bus is optional.
type Deps struct {
	Catalog   Catalog
	Admission Admission
	Router    Router
	Bus       eventbus.EventBus
	Logger    logger.Logger
}

// StationFinder is the charging detour controller of one vehicle.
type StationFinder struct {
	vehicleID string
	cfg       Config
	catalog   Catalog
	admission Admission
	router    Router
	bus       eventbus.EventBus
	log       logger.Logger
	predictor energy.Predictor
	ranker    ranking.Ranker

	battery Battery

	phase     model.Phase
	target    string
	targetPos model.Position
	handle    string
	// pending is the ranking of the current target, kept for detour stats.
	pending ranking.Ranked
	// saved is the route to restore once the vehicle leaves the station.
	saved      model.Route
	lastMargin float64
	enRouteAt  int64

	failedTicks      int
	exhaustedWarned  bool
	infeasibleWarned bool
	disabled         bool
	tornDown         bool

	tick int64
	now  time.Duration

	summary model.Summary
}

var _ Device = (*StationFinder)(nil)

// NewStationFinder creates the device of vehicleID. The battery is attached
// separately with SetBattery.
func NewStationFinder(vehicleID string, cfg Config, deps Deps) (*StationFinder, error) {
	if vehicleID == "" {
		return nil, fmt.Errorf("device: vehicle id is required")
	}
	if deps.Catalog == nil || deps.Admission == nil || deps.Router == nil || deps.Logger == nil {
		return nil, fmt.Errorf("device: nil parameter provided to NewStationFinder")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("device: %w", err)
	}
	p := energy.NewPredictor()
	return &StationFinder{
		vehicleID: vehicleID,
		cfg:       cfg,
		catalog:   deps.Catalog,
		admission: deps.Admission,
		router:    deps.Router,
		bus:       deps.Bus,
		log:       deps.Logger,
		predictor: p,
		ranker:    ranking.NewRanker(p, cfg.NominalSpeed),
		summary:   model.Summary{VehicleID: vehicleID},
	}, nil
}

// Name returns the device name.
func (sf *StationFinder) Name() string { return Name }

// VehicleID returns the id of the vehicle carrying the device.
func (sf *StationFinder) VehicleID() string { return sf.vehicleID }

// SetBattery attaches the battery of the vehicle. The device does not own it.
func (sf *StationFinder) SetBattery(b Battery) { sf.battery = b }

// Phase returns the current phase.
func (sf *StationFinder) Phase() model.Phase { return sf.phase }

// Target returns the station the vehicle is heading to, if any.
func (sf *StationFinder) Target() (string, bool) { return sf.target, sf.target != "" }

// Reservation returns the handle of the held reservation, if any.
func (sf *StationFinder) Reservation() (string, bool) { return sf.handle, sf.handle != "" }

// LastMargin returns the trip margin computed on the latest move.
func (sf *StationFinder) LastMargin() float64 { return sf.lastMargin }

// Summary returns the trip record collected so far.
func (sf *StationFinder) Summary() model.Summary {
	s := sf.summary
	if !sf.tornDown {
		s.FinalPhase = sf.phase
	}
	return s
}

// OnMove advances the controller by one tick of a moving vehicle.
func (sf *StationFinder) OnMove(n MoveNotification) bool {
	if sf.disabled {
		return false
	}
	sf.tick, sf.now = n.Tick, n.Time
	state, err := sf.energyState()
	if err != nil {
		sf.log.Debugf("vehicle %s: %v", sf.vehicleID, err)
		return true
	}
	switch sf.phase {
	case model.PhaseNormal:
		sf.checkTrip(n, state)
	case model.PhaseSearching:
		sf.search(n, state)
	case model.PhaseReserved:
		if !sf.commitReserved() {
			sf.search(n, state)
		}
	case model.PhaseEnRoute:
		if sf.approach(n.Position) {
			sf.maybeRetarget(n, state)
		}
	case model.PhaseResuming:
		sf.resume()
	}
	return !sf.disabled
}

// OnIdle advances the controller by one tick of a stopped vehicle. A vehicle
// stopped at its target station counts as arrived.
func (sf *StationFinder) OnIdle(n IdleNotification) bool {
	if sf.disabled {
		return false
	}
	sf.tick, sf.now = n.Tick, n.Time
	switch sf.phase {
	case model.PhaseReserved:
		sf.commitReserved()
	case model.PhaseEnRoute:
		sf.approach(n.Position)
	case model.PhaseResuming:
		sf.resume()
	}
	return !sf.disabled
}

// OnChargeComplete is called by the battery model when charging ends or the
// vehicle leaves early.
func (sf *StationFinder) OnChargeComplete(early bool) {
	if sf.phase != model.PhaseCharging {
		sf.log.Debugf("vehicle %s: charge completion ignored in phase %s", sf.vehicleID, sf.phase)
		return
	}
	if early {
		sf.log.Infof("vehicle %s leaves station %s before charging completed", sf.vehicleID, sf.target)
	}
	sf.setPhase(model.PhaseResuming)
	sf.resume()
}

// Teardown releases everything the device holds when the vehicle leaves the
// simulation and returns its summary. Further calls return the same summary.
func (sf *StationFinder) Teardown() model.Summary {
	if sf.tornDown {
		return sf.summary
	}
	sf.summary.FinalPhase = sf.phase
	switch sf.phase {
	case model.PhaseNormal:
	case model.PhaseCharging, model.PhaseResuming:
		sf.release(true)
	default:
		sf.log.Infof("vehicle %s removed in phase %s, aborting detour", sf.vehicleID, sf.phase)
		sf.release(false)
	}
	sf.target = ""
	sf.setPhase(model.PhaseNormal)
	sf.battery = nil
	sf.disabled = true
	sf.tornDown = true
	sf.publish(events.SummaryEvent{Summary: sf.summary})
	return sf.summary
}

func (sf *StationFinder) energyState() (model.EnergyState, error) {
	if sf.battery == nil {
		return model.EnergyState{}, ErrNoBattery
	}
	rf := sf.battery.ReserveFactor()
	if rf == 0 {
		rf = sf.cfg.ReserveFactor
	}
	return model.EnergyState{
		StoredEnergy:    sf.battery.StoredEnergy(),
		ConsumptionRate: sf.battery.ConsumptionRateEstimate(),
		ReserveFactor:   rf,
	}, nil
}

func (sf *StationFinder) checkTrip(n MoveNotification, state model.EnergyState) {
	margin, err := sf.predictor.TripMargin(state, n.RemainingDistance)
	if err != nil {
		sf.fail(err)
		return
	}
	sf.lastMargin = margin
	if margin >= 0 {
		return
	}
	sf.log.Infof("vehicle %s: trip margin %.1f Wh, searching for a station", sf.vehicleID, margin)
	sf.saved = sf.router.CurrentRoute(sf.vehicleID).Clone()
	sf.setPhase(model.PhaseSearching)
	sf.search(n, state)
}

func (sf *StationFinder) search(n MoveNotification, state model.EnergyState) {
	margin, err := sf.predictor.TripMargin(state, n.RemainingDistance)
	if err != nil {
		sf.fail(err)
		return
	}
	sf.lastMargin = margin
	if margin >= sf.cfg.Hysteresis {
		sf.log.Infof("vehicle %s: trip margin recovered to %.1f Wh", sf.vehicleID, margin)
		sf.endEpisode()
		sf.saved = model.Route{}
		sf.setPhase(model.PhaseNormal)
		return
	}
	ranked, err := sf.rank(n, state)
	if err != nil {
		sf.fail(err)
		return
	}
	if sf.admit(ranked) {
		return
	}
	sf.failedTicks++
	if sf.failedTicks >= sf.cfg.MaxAdmissionRetries && !sf.exhaustedWarned {
		sf.exhaustedWarned = true
		sf.summary.AdmissionWarnings++
		sf.warn(events.WarningAdmissionExhausted, "", fmt.Errorf("%w: %d ticks without admission", ErrAdmissionExhausted, sf.failedTicks))
	}
}

// rank scores the stations around the vehicle. Added distance is measured
// against driving straight to the rejoin point.
func (sf *StationFinder) rank(n MoveNotification, state model.EnergyState) ([]ranking.Ranked, error) {
	stations := sf.catalog.FindCandidates(catalog.Query{
		VehicleID:     sf.vehicleID,
		Position:      n.Position,
		MaxRadius:     sf.cfg.SearchRadius,
		Compatibility: sf.cfg.Compatibility,
		Now:           sf.now,
	})
	if len(stations) == 0 {
		return nil, nil
	}
	rejoin := n.Destination
	if wp := sf.rejoin(); wp != nil {
		rejoin = wp.Position
	}
	direct := sf.router.Distance(n.Position, rejoin)
	cands := make([]ranking.Candidate, 0, len(stations))
	for _, st := range stations {
		to := sf.router.Distance(n.Position, st.Position)
		added := to + sf.router.Distance(st.Position, rejoin) - direct
		if added < 0 {
			added = 0
		}
		cands = append(cands, ranking.Candidate{
			StationID:         st.ID,
			DistanceToStation: to,
			AddedDistance:     added,
			FreeSlots:         st.FreeSlots(),
		})
	}
	return sf.ranker.Rank(state, cands)
}

// admit tries the best candidates in order and installs the detour to the
// first one admitted.
func (sf *StationFinder) admit(ranked []ranking.Ranked) bool {
	if len(ranked) > 0 && ranked[0].LastResort {
		sf.summary.LastResortAttempts++
		if !sf.infeasibleWarned {
			sf.infeasibleWarned = true
			sf.warn(events.WarningNoFeasibleStation, ranked[0].StationID,
				fmt.Errorf("%w: best margin %.1f Wh", ErrNoFeasibleStation, ranked[0].Margin))
		}
	}
	limit := min(len(ranked), sf.cfg.MaxCandidates)
	for _, r := range ranked[:limit] {
		res, err := sf.admission.TryReserve(sf.vehicleID, r.StationID, sf.now, sf.cfg.ArrivalWindow())
		if err != nil {
			sf.log.Debugf("vehicle %s: %v", sf.vehicleID, err)
			if !errors.Is(err, reservation.ErrAlreadyReserved) {
				sf.catalog.MarkFailed(sf.vehicleID, r.StationID, sf.now)
			}
			continue
		}
		sf.handle = res.Handle
		sf.target = r.StationID
		sf.pending = r
		sf.setPhase(model.PhaseReserved)
		if sf.commitReserved() {
			return true
		}
	}
	return false
}

// commitReserved asks the router for the detour to the reserved station.
// On rejection the reservation is released and the controller searches again.
func (sf *StationFinder) commitReserved() bool {
	base := sf.router.CurrentRoute(sf.vehicleID).Clone()
	pos, err := sf.installDetour(base, sf.target)
	if err != nil {
		sf.warn(events.WarningRouteRejected, sf.target, err)
		sf.catalog.MarkFailed(sf.vehicleID, sf.target, sf.now)
		sf.release(false)
		sf.target = ""
		sf.setPhase(model.PhaseSearching)
		return false
	}
	sf.saved = base
	sf.targetPos = pos
	sf.enRouteAt = sf.tick
	sf.summary.Detours++
	sf.summary.DetourDistance += sf.pending.AddedDistance
	sf.summary.DetourTime += sf.pending.AddedTime
	sf.summary.ChargingStation = sf.target
	sf.endEpisode()
	sf.log.Infof("vehicle %s heading to station %s", sf.vehicleID, sf.target)
	sf.setPhase(model.PhaseEnRoute)
	return true
}

func (sf *StationFinder) installDetour(base model.Route, stationID string) (model.Position, error) {
	st, ok := sf.catalog.Station(stationID)
	if !ok {
		return model.Position{}, fmt.Errorf("%w: station %s unknown", ErrRouteRejected, stationID)
	}
	delta := model.RouteDelta{
		Station: model.Waypoint{ID: Name + ":" + st.ID, Position: st.Position, StationID: st.ID},
		Rejoin:  firstWaypoint(base),
	}
	if _, err := sf.router.RequestDetour(sf.vehicleID, base, delta); err != nil {
		return model.Position{}, err
	}
	return st.Position, nil
}

// approach checks the reservation and the arrival of an en route vehicle. It
// reports whether the vehicle is still en route.
func (sf *StationFinder) approach(pos model.Position) bool {
	if _, ok := sf.admission.Active(sf.handle); !ok {
		sf.loseReservation()
		return false
	}
	if sf.router.Distance(pos, sf.targetPos) > sf.cfg.ArrivalDistance {
		return true
	}
	if err := sf.admission.Arrive(sf.handle, 0); err != nil {
		sf.loseReservation()
		return false
	}
	sf.log.Infof("vehicle %s arrived at station %s", sf.vehicleID, sf.target)
	sf.setPhase(model.PhaseCharging)
	return false
}

// loseReservation drops the current target. The arbiter entry is cancelled so
// the vehicle can be admitted again.
func (sf *StationFinder) loseReservation() {
	sf.warn(events.WarningReservationLost, sf.target, fmt.Errorf("reservation %s no longer held", sf.handle))
	sf.release(false)
	if err := sf.router.RestoreRoute(sf.vehicleID, sf.saved); err != nil {
		sf.log.Warnw("route restore failed", map[string]any{"vehicle": sf.vehicleID, "error": err.Error()})
	}
	sf.target = ""
	sf.setPhase(model.PhaseSearching)
}

// maybeRetarget switches to a clearly better station at a fixed tick
// interval while en route.
func (sf *StationFinder) maybeRetarget(n MoveNotification, state model.EnergyState) {
	every := int64(sf.cfg.RetargetIntervalTicks)
	if every <= 0 {
		return
	}
	if elapsed := sf.tick - sf.enRouteAt; elapsed <= 0 || elapsed%every != 0 {
		return
	}
	current, err := sf.predictor.Margin(energy.Input{
		State:                state,
		DistanceBeyondTarget: sf.router.Distance(n.Position, sf.targetPos),
	})
	if err != nil {
		sf.fail(err)
		return
	}
	ranked, err := sf.rank(n, state)
	if err != nil {
		sf.fail(err)
		return
	}
	if len(ranked) == 0 {
		return
	}
	best := ranked[0]
	if best.LastResort || best.StationID == sf.target || best.FreeSlots == 0 {
		return
	}
	if best.Margin <= current+sf.cfg.RetargetHysteresis {
		return
	}
	sf.switchTarget(best)
}

func (sf *StationFinder) switchTarget(best ranking.Ranked) {
	old := sf.pending
	if err := sf.admission.Cancel(sf.handle); err != nil {
		sf.log.Debugf("vehicle %s: retarget: %v", sf.vehicleID, err)
		return
	}
	sf.handle = ""
	res, err := sf.admission.TryReserve(sf.vehicleID, best.StationID, sf.now, sf.cfg.ArrivalWindow())
	if err != nil {
		sf.catalog.MarkFailed(sf.vehicleID, best.StationID, sf.now)
		sf.reacquire(old)
		return
	}
	sf.handle = res.Handle
	pos, err := sf.installDetour(sf.saved, best.StationID)
	if err != nil {
		sf.warn(events.WarningRouteRejected, best.StationID, err)
		sf.catalog.MarkFailed(sf.vehicleID, best.StationID, sf.now)
		sf.release(false)
		sf.reacquire(old)
		return
	}
	sf.log.Infof("vehicle %s retargeted from %s to %s", sf.vehicleID, sf.target, best.StationID)
	sf.summary.DetourDistance += best.AddedDistance - old.AddedDistance
	sf.summary.DetourTime += best.AddedTime - old.AddedTime
	sf.summary.ChargingStation = best.StationID
	sf.target = best.StationID
	sf.targetPos = pos
	sf.pending = best
	sf.enRouteAt = sf.tick
	sf.publish(events.PhaseEvent{
		VehicleID: sf.vehicleID,
		From:      model.PhaseEnRoute,
		To:        model.PhaseEnRoute,
		StationID: best.StationID,
		Tick:      sf.tick,
		Time:      sf.now,
	})
}

// reacquire takes a slot at the previous target again after a failed
// retarget. The installed route still leads there.
func (sf *StationFinder) reacquire(prev ranking.Ranked) {
	res, err := sf.admission.TryReserve(sf.vehicleID, prev.StationID, sf.now, sf.cfg.ArrivalWindow())
	if err != nil {
		sf.loseReservation()
		return
	}
	sf.handle = res.Handle
}

func (sf *StationFinder) resume() {
	if err := sf.router.RestoreRoute(sf.vehicleID, sf.saved); err != nil {
		sf.log.Warnw("route restore failed, retrying next tick", map[string]any{
			"vehicle": sf.vehicleID,
			"station": sf.target,
			"error":   err.Error(),
		})
		return
	}
	sf.release(true)
	sf.target = ""
	sf.saved = model.Route{}
	sf.endEpisode()
	sf.setPhase(model.PhaseNormal)
}

// fail disables the device for the rest of the trip after a modeling error.
func (sf *StationFinder) fail(err error) {
	sf.log.Errorf("vehicle %s: %v; station finder disabled for this trip", sf.vehicleID, err)
	sf.summary.ModelingFailure = true
	sf.report(events.WarningModeling, sf.target, err)
	if sf.phase == model.PhaseEnRoute {
		if rerr := sf.router.RestoreRoute(sf.vehicleID, sf.saved); rerr != nil {
			sf.log.Warnw("route restore failed", map[string]any{"vehicle": sf.vehicleID, "error": rerr.Error()})
		}
	}
	sf.release(false)
	sf.target = ""
	sf.setPhase(model.PhaseNormal)
	sf.disabled = true
}

func (sf *StationFinder) release(complete bool) {
	if sf.handle == "" {
		return
	}
	var err error
	if complete {
		err = sf.admission.Complete(sf.handle)
	} else {
		err = sf.admission.Cancel(sf.handle)
	}
	if err != nil && !errors.Is(err, reservation.ErrAlreadyReleased) {
		sf.log.Errorf("vehicle %s: release %s: %v", sf.vehicleID, sf.handle, err)
	}
	sf.handle = ""
}

func (sf *StationFinder) endEpisode() {
	sf.failedTicks = 0
	sf.exhaustedWarned = false
	sf.infeasibleWarned = false
}

// rejoin is the waypoint the detour leads back to. En route it comes from the
// route saved before the detour, otherwise from the live route.
func (sf *StationFinder) rejoin() *model.Waypoint {
	if sf.phase == model.PhaseEnRoute {
		return firstWaypoint(sf.saved)
	}
	return firstWaypoint(sf.router.CurrentRoute(sf.vehicleID))
}

func firstWaypoint(r model.Route) *model.Waypoint {
	if len(r.Waypoints) == 0 {
		return nil
	}
	wp := r.Waypoints[0]
	return &wp
}

func (sf *StationFinder) setPhase(to model.Phase) {
	from := sf.phase
	if from == to {
		return
	}
	sf.phase = to
	phaseTransitions.WithLabelValues(from.String(), to.String()).Inc()
	sf.log.Debugw("phase transition", map[string]any{
		"vehicle": sf.vehicleID,
		"from":    from.String(),
		"to":      to.String(),
		"station": sf.target,
		"tick":    sf.tick,
	})
	sf.publish(events.PhaseEvent{
		VehicleID: sf.vehicleID,
		From:      from,
		To:        to,
		StationID: sf.target,
		Tick:      sf.tick,
		Time:      sf.now,
	})
}

func (sf *StationFinder) warn(kind events.WarningKind, stationID string, err error) {
	sf.log.Warnw(err.Error(), map[string]any{
		"vehicle": sf.vehicleID,
		"kind":    string(kind),
		"station": stationID,
		"tick":    sf.tick,
	})
	sf.report(kind, stationID, err)
}

func (sf *StationFinder) report(kind events.WarningKind, stationID string, err error) {
	warningsTotal.WithLabelValues(string(kind)).Inc()
	sf.publish(events.WarningEvent{
		VehicleID: sf.vehicleID,
		Kind:      kind,
		StationID: stationID,
		Err:       err,
		Time:      sf.now,
	})
}

func (sf *StationFinder) publish(ev eventbus.Event) {
	if sf.bus != nil {
		sf.bus.Publish(ev)
	}
}
