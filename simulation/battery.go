package simulation

import (
	"math"
	"sync"
	"time"

	"github.com/kilianp07/stationfinder/core/device"
	"github.com/kilianp07/stationfinder/core/model"
)

// BatteryDevice is a linear battery: it drains proportionally to the
// distance driven and charges at constant power while the vehicle is parked
// at a station. It implements device.Battery and device.Device.
type BatteryDevice struct {
	mu         sync.Mutex
	capacity   float64
	stored     float64
	rate       float64
	reserve    float64
	last       model.Position
	hasLast    bool
	charging   bool
	powerKW    float64
	since      time.Duration
	onComplete func(early bool)
}

var (
	_ device.Battery = (*BatteryDevice)(nil)
	_ device.Device  = (*BatteryDevice)(nil)
)

// NewBatteryDevice creates a battery from its scenario description.
func NewBatteryDevice(spec BatterySpec) *BatteryDevice {
	return &BatteryDevice{
		capacity: spec.CapacityWh,
		stored:   spec.StoredWh,
		rate:     spec.ConsumptionWhPerM,
		reserve:  spec.ReserveFactor,
	}
}

func (b *BatteryDevice) Name() string { return "battery" }

// SetChargeListener registers the callback invoked when charging ends.
func (b *BatteryDevice) SetChargeListener(f func(early bool)) {
	b.mu.Lock()
	b.onComplete = f
	b.mu.Unlock()
}

// OnMove drains the energy needed for the distance since the last move.
func (b *BatteryDevice) OnMove(n device.MoveNotification) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hasLast {
		b.stored = math.Max(0, b.stored-b.rate*b.last.DistanceTo(n.Position))
	}
	b.last, b.hasLast = n.Position, true
	return true
}

// OnIdle charges while plugged in and reports completion once full.
func (b *BatteryDevice) OnIdle(n device.IdleNotification) bool {
	b.mu.Lock()
	if !b.charging {
		b.mu.Unlock()
		return true
	}
	dt := n.Time - b.since
	b.since = n.Time
	b.stored = math.Min(b.capacity, b.stored+b.powerKW*1000*dt.Hours())
	full := b.stored >= b.capacity
	if full {
		b.charging = false
	}
	cb := b.onComplete
	b.mu.Unlock()
	if full && cb != nil {
		cb(false)
	}
	return true
}

// StartCharging plugs the vehicle in at powerKW from now on.
func (b *BatteryDevice) StartCharging(powerKW float64, now time.Duration) {
	b.mu.Lock()
	b.charging, b.powerKW, b.since = true, powerKW, now
	b.mu.Unlock()
}

// StopCharging unplugs the vehicle before the battery is full.
func (b *BatteryDevice) StopCharging() {
	b.mu.Lock()
	was := b.charging
	b.charging = false
	cb := b.onComplete
	b.mu.Unlock()
	if was && cb != nil {
		cb(true)
	}
}

// Charging reports whether the vehicle is plugged in.
func (b *BatteryDevice) Charging() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.charging
}

// Empty reports whether the battery is depleted.
func (b *BatteryDevice) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stored <= 0
}

func (b *BatteryDevice) StoredEnergy() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stored
}

func (b *BatteryDevice) ConsumptionRateEstimate() float64 { return b.rate }

func (b *BatteryDevice) ReserveFactor() float64 { return b.reserve }
