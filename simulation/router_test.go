package simulation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/stationfinder/core/device"
	"github.com/kilianp07/stationfinder/core/model"
)

func wp(id string, x, y float64) model.Waypoint {
	return model.Waypoint{ID: id, Position: model.Position{X: x, Y: y}}
}

func TestLineRouterAdvance(t *testing.T) {
	r := NewLineRouter()
	r.SetRoute("v", model.Route{Waypoints: []model.Waypoint{wp("A", 100, 0), wp("B", 100, 100)}})

	pos, done := r.Advance("v", model.Position{}, 60)
	assert.False(t, done)
	assert.Equal(t, model.Position{X: 60}, pos)
	assert.InDelta(t, 140, r.Remaining("v", pos), 1e-9)

	pos, done = r.Advance("v", pos, 70)
	assert.False(t, done)
	assert.InDelta(t, 100, pos.X, 1e-9)
	assert.InDelta(t, 30, pos.Y, 1e-9)
	assert.Len(t, r.CurrentRoute("v").Waypoints, 1)

	pos, done = r.Advance("v", pos, 500)
	assert.True(t, done)
	assert.Equal(t, model.Position{X: 100, Y: 100}, pos)
	assert.Zero(t, r.Remaining("v", pos))
}

func TestLineRouterStopsAtStation(t *testing.T) {
	r := NewLineRouter()
	r.SetRoute("v", model.Route{Waypoints: []model.Waypoint{wp("A", 100, 0), wp("B", 200, 0)}})
	base := r.CurrentRoute("v")
	st := model.Waypoint{ID: "stationfinder:S", Position: model.Position{X: 50}, StationID: "S"}
	route, err := r.RequestDetour("v", base, model.RouteDelta{Station: st, Rejoin: &base.Waypoints[0]})
	require.NoError(t, err)
	require.Len(t, route.Waypoints, 3, "rejoin equal to the first waypoint is not repeated")
	assert.Equal(t, "S", route.Waypoints[0].StationID)

	pos, done := r.Advance("v", model.Position{}, 1000)
	assert.False(t, done)
	assert.Equal(t, model.Position{X: 50}, pos)
	assert.Equal(t, "A", r.CurrentRoute("v").Waypoints[0].ID)
}

func TestLineRouterDetourWithDistinctRejoin(t *testing.T) {
	r := NewLineRouter()
	base := model.Route{Waypoints: []model.Waypoint{wp("B", 200, 0)}}
	r.SetRoute("v", base)
	rejoin := wp("J", 10, 10)
	route, err := r.RequestDetour("v", base, model.RouteDelta{Station: model.Waypoint{ID: "s", StationID: "S"}, Rejoin: &rejoin})
	require.NoError(t, err)
	ids := []string{}
	for _, w := range route.Waypoints {
		ids = append(ids, w.ID)
	}
	assert.Equal(t, []string{"s", "J", "B"}, ids)
}

func TestLineRouterRejects(t *testing.T) {
	r := NewLineRouter("X")
	r.SetRoute("v", model.Route{Waypoints: []model.Waypoint{wp("B", 1, 0)}})
	_, err := r.RequestDetour("v", r.CurrentRoute("v"), model.RouteDelta{Station: model.Waypoint{StationID: "X"}})
	assert.True(t, errors.Is(err, device.ErrRouteRejected))
	_, err = r.RequestDetour("ghost", model.Route{}, model.RouteDelta{Station: model.Waypoint{StationID: "S"}})
	assert.True(t, errors.Is(err, device.ErrRouteRejected))
	assert.Error(t, r.RestoreRoute("ghost", model.Route{}))

	r.Remove("v")
	assert.Error(t, r.RestoreRoute("v", model.Route{}))
}

func TestLineRouterRestoreAndDistance(t *testing.T) {
	r := NewLineRouter()
	orig := model.Route{Waypoints: []model.Waypoint{wp("B", 3, 4)}}
	r.SetRoute("v", orig)
	_, err := r.RequestDetour("v", orig, model.RouteDelta{Station: model.Waypoint{ID: "s", StationID: "S"}})
	require.NoError(t, err)
	require.NoError(t, r.RestoreRoute("v", orig))
	assert.True(t, r.CurrentRoute("v").Equal(orig))
	assert.Equal(t, 5.0, r.Distance(model.Position{}, model.Position{X: 3, Y: 4}))
	assert.False(t, math.IsNaN(r.Remaining("ghost", model.Position{})))
}
