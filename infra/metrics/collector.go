package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/stationfinder/core/events"
	coremetrics "github.com/kilianp07/stationfinder/core/metrics"
	"github.com/kilianp07/stationfinder/infra/logger"
	"github.com/kilianp07/stationfinder/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards station finder
// events to the sink. It stops when the context is canceled or the bus is
// closed. Sink errors are logged. The returned channel is closed once the
// collector has stopped.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.New("metrics-collector")
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := Collect(sink, ev, time.Now()); err != nil {
					log.Errorf("metrics: %v", err)
				}
			}
		}
	}()
	return done
}

// Collect records one bus event on the sink. Unknown events are ignored.
func Collect(sink coremetrics.MetricsSink, ev eventbus.Event, now time.Time) error {
	switch e := ev.(type) {
	case events.SummaryEvent:
		return sink.RecordTripSummary(coremetrics.TripSummary{Summary: e.Summary, Time: now})
	case events.PhaseEvent:
		if r, ok := sink.(coremetrics.PhaseRecorder); ok {
			return r.RecordPhaseTransition(coremetrics.PhaseTransition{
				VehicleID: e.VehicleID,
				From:      e.From,
				To:        e.To,
				StationID: e.StationID,
				Tick:      e.Tick,
				Time:      now,
			})
		}
	case events.WarningEvent:
		if r, ok := sink.(coremetrics.WarningRecorder); ok {
			msg := ""
			if e.Err != nil {
				msg = e.Err.Error()
			}
			return r.RecordWarning(coremetrics.Warning{
				VehicleID: e.VehicleID,
				Kind:      string(e.Kind),
				StationID: e.StationID,
				Message:   msg,
				Time:      now,
			})
		}
	}
	return nil
}
