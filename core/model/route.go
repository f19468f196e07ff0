package model

// Waypoint is one stop or via point of a route.
type Waypoint struct {
	ID        string   `json:"id" yaml:"id"`
	Position  Position `json:"position" yaml:"position"`
	StationID string   `json:"station_id,omitempty" yaml:"station_id,omitempty"`
}

// Route is the ordered list of waypoints a vehicle still has to visit.
type Route struct {
	Waypoints []Waypoint `json:"waypoints" yaml:"waypoints"`
}

// Clone returns a deep copy of the route.
func (r Route) Clone() Route {
	if r.Waypoints == nil {
		return Route{}
	}
	cp := make([]Waypoint, len(r.Waypoints))
	copy(cp, r.Waypoints)
	return Route{Waypoints: cp}
}

// Destination returns the last waypoint of the route.
func (r Route) Destination() (Waypoint, bool) {
	if len(r.Waypoints) == 0 {
		return Waypoint{}, false
	}
	return r.Waypoints[len(r.Waypoints)-1], true
}

// Equal reports whether both routes visit the same waypoints in order.
func (r Route) Equal(o Route) bool {
	if len(r.Waypoints) != len(o.Waypoints) {
		return false
	}
	for i := range r.Waypoints {
		if r.Waypoints[i] != o.Waypoints[i] {
			return false
		}
	}
	return true
}

// RouteDelta is the ordered sequence of waypoints inserted in front of the
// remaining route to visit a charging station and rejoin the itinerary.
type RouteDelta struct {
	Station Waypoint
	Rejoin  *Waypoint
}

// Waypoints returns the delta as an ordered list.
func (d RouteDelta) Waypoints() []Waypoint {
	wps := []Waypoint{d.Station}
	if d.Rejoin != nil {
		wps = append(wps, *d.Rejoin)
	}
	return wps
}
