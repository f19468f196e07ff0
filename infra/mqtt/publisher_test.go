package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/stationfinder/core/events"
	"github.com/kilianp07/stationfinder/core/model"
	"github.com/kilianp07/stationfinder/infra/logger"
	"github.com/kilianp07/stationfinder/internal/eventbus"
)

type sent struct {
	topic   string
	payload map[string]any
}

type recordPublisher struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (r *recordPublisher) Publish(topic string, payload []byte) error {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{topic: topic, payload: m})
	return r.err
}

func (r *recordPublisher) all() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.msgs...)
}

func TestNewEventPublisherValidation(t *testing.T) {
	_, err := NewEventPublisher(nil, "x", logger.NopLogger{})
	require.Error(t, err)
	p, err := NewEventPublisher(&recordPublisher{}, "", logger.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, "stationfinder/vehicle/v1/phase", p.Topic("v1", "phase"))
}

func TestEventPublisherHandle(t *testing.T) {
	rec := &recordPublisher{}
	p, err := NewEventPublisher(rec, "sim", logger.NopLogger{})
	require.NoError(t, err)

	require.NoError(t, p.Handle(events.PhaseEvent{
		VehicleID: "v1", From: model.PhaseSearching, To: model.PhaseReserved, StationID: "cs1", Tick: 7, Time: 7 * time.Second,
	}))
	require.NoError(t, p.Handle(events.WarningEvent{
		VehicleID: "v1", Kind: events.WarningAdmissionExhausted, Err: errors.New("3 ticks"),
	}))
	require.NoError(t, p.Handle(events.SummaryEvent{Summary: model.Summary{VehicleID: "v1", Detours: 1, ChargingStation: "cs1"}}))
	require.NoError(t, p.Handle(42), "unknown events are ignored")

	msgs := rec.all()
	require.Len(t, msgs, 3)
	assert.Equal(t, "sim/vehicle/v1/phase", msgs[0].topic)
	assert.Equal(t, "RESERVED", msgs[0].payload["to"])
	assert.Equal(t, "cs1", msgs[0].payload["station_id"])
	assert.Equal(t, 7.0, msgs[0].payload["tick"])
	assert.NotEmpty(t, msgs[0].payload["message_id"])

	assert.Equal(t, "sim/vehicle/v1/warning", msgs[1].topic)
	assert.Equal(t, "admission_exhausted", msgs[1].payload["kind"])
	assert.Equal(t, "3 ticks", msgs[1].payload["error"])

	assert.Equal(t, "sim/vehicle/v1/summary", msgs[2].topic)
	sum, ok := msgs[2].payload["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "cs1", sum["charging_station"])
	assert.Equal(t, "NORMAL", sum["final_phase"])
}

func TestEventPublisherHandleError(t *testing.T) {
	boom := errors.New("boom")
	p, err := NewEventPublisher(&recordPublisher{err: boom}, "sim", logger.NopLogger{})
	require.NoError(t, err)
	assert.ErrorIs(t, p.Handle(events.PhaseEvent{VehicleID: "v"}), boom)
}

func TestEventPublisherStart(t *testing.T) {
	rec := &recordPublisher{}
	p, err := NewEventPublisher(rec, "sim", logger.NopLogger{})
	require.NoError(t, err)
	bus := eventbus.New()
	ctx, cancel := context.WithCancel(context.Background())
	done := p.Start(ctx, bus)

	bus.Publish(events.PhaseEvent{VehicleID: "v", To: model.PhaseSearching})
	assert.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}
}
