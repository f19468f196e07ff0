package simulation

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenarioYAML(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "detour.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, sc.StepSeconds)
	require.Len(t, sc.Stations, 2)
	assert.Equal(t, "ccs2", sc.Stations[0].Interface.Plug)
	assert.Equal(t, 50.0, sc.Stations[0].Slots[0].PowerKW)
	require.Len(t, sc.Vehicles, 1)
	v := sc.Vehicles[0]
	assert.Equal(t, "v1", v.ID)
	assert.Len(t, v.Route, 2)
	assert.Equal(t, 0.15, v.Battery.ConsumptionWhPerM)
	assert.Equal(t, []string{"far"}, sc.Unreachable)
}

func TestDecodeScenarioJSON(t *testing.T) {
	in := `{"stations":[{"id":"S","position":{"x":1,"y":2},"slots":[{"power_kw":11}]}],
"vehicles":[{"id":"v","speed":10,"route":[{"id":"B","position":{"x":100,"y":0}}],
"battery":{"capacity_wh":100,"stored_wh":50,"consumption_wh_per_m":0.1}}]}`
	sc, err := DecodeScenario(strings.NewReader(in), "json")
	require.NoError(t, err)
	assert.Equal(t, 1.0, sc.StepSeconds, "step defaults to one second")
	assert.Equal(t, 2.0, sc.Stations[0].Position.Y)
}

func TestDecodeScenarioErrors(t *testing.T) {
	cases := map[string]string{
		"no route":  `{"vehicles":[{"id":"v","speed":1,"battery":{"capacity_wh":1}}]}`,
		"no speed":  `{"vehicles":[{"id":"v","route":[{"id":"a"}],"battery":{"capacity_wh":1}}]}`,
		"overfull":  `{"vehicles":[{"id":"v","speed":1,"route":[{"id":"a"}],"battery":{"capacity_wh":1,"stored_wh":2}}]}`,
		"duplicate": `{"vehicles":[{"id":"v","speed":1,"route":[{"id":"a"}],"battery":{"capacity_wh":1}},{"id":"v","speed":1,"route":[{"id":"a"}],"battery":{"capacity_wh":1}}]}`,
		"step":      `{"step_seconds":-1}`,
	}
	for name, in := range cases {
		if _, err := DecodeScenario(strings.NewReader(in), "json"); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := DecodeScenario(strings.NewReader(""), "toml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}
