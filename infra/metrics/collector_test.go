package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/stationfinder/core/events"
	coremetrics "github.com/kilianp07/stationfinder/core/metrics"
	"github.com/kilianp07/stationfinder/core/model"
	"github.com/kilianp07/stationfinder/infra/logger"
	"github.com/kilianp07/stationfinder/internal/eventbus"
)

type captureSink struct {
	mu       sync.Mutex
	trips    []coremetrics.TripSummary
	phases   []coremetrics.PhaseTransition
	warnings []coremetrics.Warning
}

func (c *captureSink) RecordTripSummary(ev coremetrics.TripSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trips = append(c.trips, ev)
	return nil
}

func (c *captureSink) RecordPhaseTransition(ev coremetrics.PhaseTransition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phases = append(c.phases, ev)
	return nil
}

func (c *captureSink) RecordWarning(ev coremetrics.Warning) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.warnings = append(c.warnings, ev)
	return nil
}

func (c *captureSink) counts() (int, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.trips), len(c.phases), len(c.warnings)
}

func TestCollectMapsEvents(t *testing.T) {
	sink := &captureSink{}
	now := time.Unix(100, 0)
	require.NoError(t, Collect(sink, events.PhaseEvent{VehicleID: "v", From: model.PhaseNormal, To: model.PhaseSearching, Tick: 3}, now))
	require.NoError(t, Collect(sink, events.WarningEvent{VehicleID: "v", Kind: events.WarningRouteRejected, Err: errors.New("nope")}, now))
	require.NoError(t, Collect(sink, events.SummaryEvent{Summary: model.Summary{VehicleID: "v"}}, now))
	require.NoError(t, Collect(sink, "unrelated", now))

	require.Len(t, sink.phases, 1)
	assert.Equal(t, model.PhaseSearching, sink.phases[0].To)
	assert.Equal(t, int64(3), sink.phases[0].Tick)
	require.Len(t, sink.warnings, 1)
	assert.Equal(t, "route_rejected", sink.warnings[0].Kind)
	assert.Equal(t, "nope", sink.warnings[0].Message)
	require.Len(t, sink.trips, 1)
	assert.Equal(t, now, sink.trips[0].Time)
}

func TestCollectSkipsUnsupportedRecorders(t *testing.T) {
	type summaryOnly struct{ coremetrics.MetricsSink }
	sink := summaryOnly{coremetrics.NopSink{}}
	assert.NoError(t, Collect(sink, events.PhaseEvent{}, time.Now()))
	assert.NoError(t, Collect(sink, events.WarningEvent{}, time.Now()))
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New()
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, sink, logger.NopLogger{})

	bus.Publish(events.PhaseEvent{VehicleID: "v", To: model.PhaseSearching})
	bus.Publish(events.SummaryEvent{Summary: model.Summary{VehicleID: "v"}})
	assert.Eventually(t, func() bool {
		trips, phases, _ := sink.counts()
		return trips == 1 && phases == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestStartEventCollectorNilBus(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, &captureSink{}, nil)
	select {
	case <-done:
	default:
		t.Fatal("expected closed channel for nil bus")
	}
}

type failingSink struct{ coremetrics.NopSink }

func (failingSink) RecordTripSummary(coremetrics.TripSummary) error {
	return errors.New("influx unavailable")
}

type errorLog struct {
	logger.NopLogger
	mu   sync.Mutex
	msgs []string
}

func (l *errorLog) Errorf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, fmt.Sprintf(format, args...))
}

func (l *errorLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.msgs...)
}

func TestStartEventCollectorLogsSinkErrors(t *testing.T) {
	bus := eventbus.New()
	log := &errorLog{}
	done := StartEventCollector(context.Background(), bus, failingSink{}, log)

	bus.Publish(events.SummaryEvent{Summary: model.Summary{VehicleID: "v"}})
	require.Eventually(t, func() bool { return len(log.all()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, log.all()[0], "influx unavailable")

	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}
