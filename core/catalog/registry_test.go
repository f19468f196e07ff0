package catalog

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/stationfinder/core/model"
	"github.com/kilianp07/stationfinder/infra/logger"
)

func station(id string, x, y float64, plug string, slots ...float64) model.Station {
	st := model.Station{ID: id, Position: model.Position{X: x, Y: y}, Interface: model.Interface{Plug: plug}}
	for _, p := range slots {
		st.Slots = append(st.Slots, model.Slot{PowerKW: p})
	}
	return st
}

func newRegistry(t *testing.T, cfg Config, stations ...model.Station) *Registry {
	t.Helper()
	reg := NewRegistry(cfg, logger.NopLogger{})
	for _, st := range stations {
		require.NoError(t, reg.Add(st))
	}
	return reg
}

func ids(st []model.Station) []string {
	res := make([]string, len(st))
	for i, s := range st {
		res[i] = s.ID
	}
	return res
}

func TestAddValidation(t *testing.T) {
	reg := NewRegistry(Config{}, logger.NopLogger{})
	assert.Error(t, reg.Add(model.Station{}))
	assert.Error(t, reg.Add(model.Station{ID: "a"}))
	require.NoError(t, reg.Add(station("a", 0, 0, "ccs2", 50)))
	assert.Error(t, reg.Add(station("a", 1, 1, "ccs2", 50)))
	assert.Equal(t, 1, reg.Len())
}

func TestFindCandidatesRadiusAndCompatibility(t *testing.T) {
	reg := newRegistry(t, Config{},
		station("near", 100, 0, "ccs2", 50),
		station("far", 5000, 0, "ccs2", 50),
		station("type2", 0, 200, "type2", 22),
		station("slow", -300, 0, "ccs2", 7),
	)
	got := reg.FindCandidates(Query{VehicleID: "v1", MaxRadius: 1000, Compatibility: model.Compatibility{Plugs: []string{"ccs2"}}})
	assert.Equal(t, []string{"near", "slow"}, ids(got))

	got = reg.FindCandidates(Query{VehicleID: "v1", MaxRadius: 1000, Compatibility: model.Compatibility{MinPowerKW: 20}})
	assert.Equal(t, []string{"near", "type2"}, ids(got))

	got = reg.FindCandidates(Query{VehicleID: "v1", MaxRadius: 10})
	assert.Empty(t, got)
}

func TestFindCandidatesRequiresFreeSlot(t *testing.T) {
	reg := newRegistry(t, Config{SoonFreeSeconds: 60}, station("a", 0, 0, "ccs2", 50), station("b", 10, 0, "ccs2", 50))
	require.NoError(t, reg.SetSlot("a", 0, model.SlotOccupied, 0))
	require.NoError(t, reg.SetSlot("b", 0, model.SlotOccupied, 100*time.Second))

	got := reg.FindCandidates(Query{MaxRadius: 100, Now: 0})
	assert.Empty(t, got)
	got = reg.FindCandidates(Query{MaxRadius: 100, Now: 50 * time.Second})
	assert.Equal(t, []string{"b"}, ids(got))

	require.NoError(t, reg.SetSlot("a", 0, model.SlotFree, 0))
	got = reg.FindCandidates(Query{MaxRadius: 100, Now: 0})
	assert.Equal(t, []string{"a"}, ids(got))
}

func TestCooldownExcludesStation(t *testing.T) {
	reg := newRegistry(t, Config{CooldownSeconds: model.Ptr(120)}, station("a", 0, 0, "ccs2", 50), station("b", 50, 0, "ccs2", 50))
	reg.MarkFailed("v1", "a", 10*time.Second)

	q := Query{VehicleID: "v1", MaxRadius: 100, Now: 20 * time.Second}
	assert.Equal(t, []string{"b"}, ids(reg.FindCandidates(q)))
	// other vehicles are not affected
	q.VehicleID = "v2"
	assert.Equal(t, []string{"a", "b"}, ids(reg.FindCandidates(q)))

	q.VehicleID = "v1"
	q.Now = 130 * time.Second
	assert.Equal(t, []string{"a", "b"}, ids(reg.FindCandidates(q)))

	reg.MarkFailed("v1", "b", 0)
	reg.Forget("v1")
	assert.False(t, reg.InCooldown("v1", "b", time.Second))
}

func TestSetSlotErrors(t *testing.T) {
	reg := newRegistry(t, Config{}, station("a", 0, 0, "ccs2", 50))
	assert.Error(t, reg.SetSlot("x", 0, model.SlotReserved, 0))
	assert.Error(t, reg.SetSlot("a", 3, model.SlotReserved, 0))
	require.NoError(t, reg.SetSlot("a", 0, model.SlotReserved, 5*time.Second))
	st, ok := reg.Station("a")
	require.True(t, ok)
	assert.Equal(t, model.SlotReserved, st.Slots[0].State)
	// copies are detached from the registry
	st.Slots[0].State = model.SlotFree
	st2, _ := reg.Station("a")
	assert.Equal(t, model.SlotReserved, st2.Slots[0].State)
}

func TestIndexMatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var all []model.Station
	for i := 0; i < 300; i++ {
		all = append(all, station(fmt.Sprintf("cs%03d", i), rng.Float64()*10000, rng.Float64()*10000, "ccs2", 50))
	}
	reg := newRegistry(t, Config{}, all...)
	for i := 0; i < 20; i++ {
		pos := model.Position{X: rng.Float64() * 10000, Y: rng.Float64() * 10000}
		radius := 500 + rng.Float64()*1500
		var want []string
		for _, st := range all {
			if st.Position.DistanceTo(pos) <= radius {
				want = append(want, st.ID)
			}
		}
		got := ids(reg.FindCandidates(Query{Position: pos, MaxRadius: radius}))
		if len(want) == 0 {
			assert.Empty(t, got)
			continue
		}
		assert.Equal(t, want, got)
	}
}

func TestZeroCooldownIsKept(t *testing.T) {
	cfg := Config{CooldownSeconds: model.Ptr(0)}
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Duration(0), cfg.Cooldown())

	reg := newRegistry(t, cfg, station("a", 0, 0, "ccs2", 50))
	reg.MarkFailed("v1", "a", 0)
	assert.False(t, reg.InCooldown("v1", "a", 0))

	var unset Config
	unset.SetDefaults()
	assert.Equal(t, 300*time.Second, unset.Cooldown())
}
