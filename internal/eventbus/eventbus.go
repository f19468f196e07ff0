// Package eventbus carries device events to observers such as the MQTT
// publisher and the metrics collector.
package eventbus

// Event represents an arbitrary event passed on the bus.
type Event = any

// EventBus is the untyped publish/subscribe contract shared by producers and
// consumers that handle several event types.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the default EventBus implementation.
type Bus = TypedBus[Event]

// New creates a new Bus.
func New() *Bus { return NewTyped[Event]() }

var _ EventBus = (*Bus)(nil)
