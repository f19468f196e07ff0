package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/kilianp07/stationfinder/core/events"
	"github.com/kilianp07/stationfinder/core/logger"
	"github.com/kilianp07/stationfinder/core/model"
	coremqtt "github.com/kilianp07/stationfinder/core/mqtt"
	"github.com/kilianp07/stationfinder/internal/eventbus"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// message is the JSON envelope of every published event.
type message struct {
	MessageID string         `json:"message_id"`
	Type      string         `json:"type"`
	VehicleID string         `json:"vehicle_id"`
	Tick      int64          `json:"tick,omitempty"`
	SimTimeS  float64        `json:"sim_time_s,omitempty"`
	From      string         `json:"from,omitempty"`
	To        string         `json:"to,omitempty"`
	StationID string         `json:"station_id,omitempty"`
	Kind      string         `json:"kind,omitempty"`
	Error     string         `json:"error,omitempty"`
	Summary   *model.Summary `json:"summary,omitempty"`
}

// EventPublisher forwards device events from the bus to MQTT topics below
// <prefix>/vehicle/<id>/: "phase", "warning" and "summary".
type EventPublisher struct {
	pub    Publisher
	prefix string
	log    logger.Logger
}

// NewEventPublisher creates a publisher writing below prefix.
func NewEventPublisher(pub Publisher, prefix string, log logger.Logger) (*EventPublisher, error) {
	if pub == nil || log == nil {
		return nil, fmt.Errorf("mqtt: nil parameter provided to NewEventPublisher")
	}
	if prefix == "" {
		prefix = "stationfinder"
	}
	return &EventPublisher{pub: pub, prefix: prefix, log: log}, nil
}

// Start consumes the bus until ctx is canceled or the bus is closed. The
// returned channel is closed once the publisher has stopped.
func (p *EventPublisher) Start(ctx context.Context, bus eventbus.EventBus) <-chan struct{} {
	done := make(chan struct{})
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
				if err := p.Handle(ev); err != nil {
					p.log.Errorf("mqtt: %v", err)
				}
			}
		}
	}()
	return done
}

// Handle publishes one event. Events of other types are ignored.
func (p *EventPublisher) Handle(ev eventbus.Event) error {
	var (
		kind string
		msg  message
	)
	switch e := ev.(type) {
	case events.PhaseEvent:
		kind = "phase"
		msg = message{
			VehicleID: e.VehicleID,
			Tick:      e.Tick,
			SimTimeS:  e.Time.Seconds(),
			From:      e.From.String(),
			To:        e.To.String(),
			StationID: e.StationID,
		}
	case events.WarningEvent:
		kind = "warning"
		msg = message{
			VehicleID: e.VehicleID,
			SimTimeS:  e.Time.Seconds(),
			StationID: e.StationID,
			Kind:      string(e.Kind),
		}
		if e.Err != nil {
			msg.Error = e.Err.Error()
		}
	case events.SummaryEvent:
		kind = "summary"
		sum := e.Summary
		msg = message{VehicleID: sum.VehicleID, Summary: &sum}
	default:
		return nil
	}
	msg.MessageID = uuid.NewString()
	msg.Type = kind
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.pub.Publish(p.Topic(msg.VehicleID, kind), payload)
}

// Topic returns the topic of an event kind for a vehicle.
func (p *EventPublisher) Topic(vehicleID, kind string) string {
	return fmt.Sprintf("%s/vehicle/%s/%s", p.prefix, vehicleID, kind)
}
