package simulation

import (
	"fmt"
	"sync"

	"github.com/kilianp07/stationfinder/core/device"
	"github.com/kilianp07/stationfinder/core/model"
)

// LineRouter routes vehicles along straight segments between waypoints.
type LineRouter struct {
	mu          sync.Mutex
	routes      map[string]model.Route
	unreachable map[string]bool
}

var _ device.Router = (*LineRouter)(nil)

// NewLineRouter creates a router refusing detours to the given stations.
func NewLineRouter(unreachable ...string) *LineRouter {
	r := &LineRouter{routes: map[string]model.Route{}, unreachable: map[string]bool{}}
	for _, id := range unreachable {
		r.unreachable[id] = true
	}
	return r
}

// SetRoute installs the initial route of a vehicle.
func (r *LineRouter) SetRoute(vehicleID string, route model.Route) {
	r.mu.Lock()
	r.routes[vehicleID] = route.Clone()
	r.mu.Unlock()
}

// Remove forgets a vehicle.
func (r *LineRouter) Remove(vehicleID string) {
	r.mu.Lock()
	delete(r.routes, vehicleID)
	r.mu.Unlock()
}

func (r *LineRouter) CurrentRoute(vehicleID string) model.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.routes[vehicleID].Clone()
}

// RequestDetour routes the vehicle through the station, then to the rejoin
// waypoint, then along base.
func (r *LineRouter) RequestDetour(vehicleID string, base model.Route, delta model.RouteDelta) (model.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.routes[vehicleID]; !ok {
		return model.Route{}, fmt.Errorf("%w: unknown vehicle %s", device.ErrRouteRejected, vehicleID)
	}
	if r.unreachable[delta.Station.StationID] {
		return model.Route{}, fmt.Errorf("%w: station %s unreachable", device.ErrRouteRejected, delta.Station.StationID)
	}
	wps := []model.Waypoint{delta.Station}
	if delta.Rejoin != nil && (len(base.Waypoints) == 0 || base.Waypoints[0] != *delta.Rejoin) {
		wps = append(wps, *delta.Rejoin)
	}
	wps = append(wps, base.Waypoints...)
	route := model.Route{Waypoints: wps}
	r.routes[vehicleID] = route
	return route.Clone(), nil
}

func (r *LineRouter) RestoreRoute(vehicleID string, previous model.Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.routes[vehicleID]; !ok {
		return fmt.Errorf("restore route: unknown vehicle %s", vehicleID)
	}
	r.routes[vehicleID] = previous.Clone()
	return nil
}

func (r *LineRouter) Distance(from, to model.Position) float64 { return from.DistanceTo(to) }

// Advance moves the vehicle up to dist meters along its route, dropping the
// waypoints it reaches. It stops at charging stops. The second result is true
// once the route is complete.
func (r *LineRouter) Advance(vehicleID string, pos model.Position, dist float64) (model.Position, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	route := r.routes[vehicleID]
	for dist > 0 && len(route.Waypoints) > 0 {
		next := route.Waypoints[0]
		leg := pos.DistanceTo(next.Position)
		if leg > dist {
			f := dist / leg
			pos = model.Position{
				X: pos.X + (next.Position.X-pos.X)*f,
				Y: pos.Y + (next.Position.Y-pos.Y)*f,
			}
			break
		}
		pos = next.Position
		dist -= leg
		route.Waypoints = route.Waypoints[1:]
		if next.StationID != "" {
			break
		}
	}
	r.routes[vehicleID] = route
	return pos, len(route.Waypoints) == 0
}

// Remaining returns the length of the route still to drive from pos.
func (r *LineRouter) Remaining(vehicleID string, pos model.Position) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0.0
	for _, wp := range r.routes[vehicleID].Waypoints {
		total += pos.DistanceTo(wp.Position)
		pos = wp.Position
	}
	return total
}
