package device

import (
	"fmt"
	"testing"
	"time"

	"github.com/kilianp07/stationfinder/core/catalog"
	"github.com/kilianp07/stationfinder/core/model"
	"github.com/kilianp07/stationfinder/infra/logger"
)

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if c.Share() != 1 || c.MaxCandidates != 5 || c.ArrivalWindow() != 10*time.Minute {
		t.Fatalf("unexpected defaults %+v", c)
	}

	explicit := Config{Vehicles: []string{"v1"}}
	explicit.SetDefaults()
	if explicit.Share() != 0 {
		t.Fatalf("explicit vehicle list must not equip everyone")
	}

	none := Config{Probability: model.Ptr(0.0)}
	none.SetDefaults()
	if none.Share() != 0 {
		t.Fatalf("explicit zero probability overridden: %v", none.Share())
	}
	if Equipped(none, "v1") {
		t.Fatal("probability 0 must equip nobody")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"probability", func(c *Config) { c.Probability = model.Ptr(1.5) }},
		{"reserve", func(c *Config) { c.ReserveFactor = 0.9 }},
		{"radius", func(c *Config) { c.SearchRadius = -1 }},
		{"window", func(c *Config) { c.ArrivalWindowSeconds = -5 }},
		{"candidates", func(c *Config) { c.MaxCandidates = -1 }},
		{"retries", func(c *Config) { c.MaxAdmissionRetries = -1 }},
		{"hysteresis", func(c *Config) { c.Hysteresis = -0.1 }},
		{"retarget", func(c *Config) { c.RetargetIntervalTicks = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.SetDefaults()
			tt.mut(&c)
			if err := c.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestEquipped(t *testing.T) {
	if !Equipped(Config{Probability: model.Ptr(1.0)}, "v1") {
		t.Fatal("probability 1 must equip every vehicle")
	}
	if Equipped(Config{Probability: model.Ptr(0.0)}, "v1") {
		t.Fatal("probability 0 must equip nobody")
	}
	if !Equipped(Config{Probability: model.Ptr(0.0), Vehicles: []string{"bus_7"}}, "bus_7") {
		t.Fatal("listed vehicle must be equipped")
	}

	cfg := Config{Probability: model.Ptr(0.3)}
	n := 0
	for i := 0; i < 2000; i++ {
		id := fmt.Sprintf("veh%d", i)
		eq := Equipped(cfg, id)
		if eq != Equipped(cfg, id) {
			t.Fatalf("draw for %s is not stable", id)
		}
		if eq {
			n++
		}
	}
	if n < 450 || n > 750 {
		t.Fatalf("expected about 600 equipped vehicles, got %d", n)
	}
}

func TestAttach(t *testing.T) {
	e := newEnv(t, catalog.Config{})
	deps := Deps{Catalog: e.reg, Admission: e.arb, Router: e.router, Logger: logger.NopLogger{}}
	b := &fakeBattery{stored: 10, rate: 0.1}

	sf, err := Attach("v1", Config{Vehicles: []string{"v1"}}, deps, b)
	if err != nil || sf == nil {
		t.Fatalf("expected equipped vehicle, got %v %v", sf, err)
	}
	if sf.battery != b {
		t.Fatal("battery not attached")
	}
	sf, err = Attach("v2", Config{Vehicles: []string{"v1"}}, deps, b)
	if err != nil || sf != nil {
		t.Fatalf("expected unequipped vehicle, got %v %v", sf, err)
	}
	if _, err := Attach("v1", Config{Probability: model.Ptr(1.0)}, Deps{}, b); err == nil {
		t.Fatal("expected error for missing deps")
	}
}
