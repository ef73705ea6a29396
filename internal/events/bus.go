package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for in-process broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers of its concrete type.
// A nil bus drops the event.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	switch e := ev.(type) {
	case StreamStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case RecordingStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case SlotStartedEvent:
		event.Publish(b.dispatcher, e)
	case SlotExitedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type named by its parameter.
// Returns an unsubscribe function; unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e SlotExitedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(StreamStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RecordingStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SlotStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SlotExitedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel forwards events of type T into ch, dropping them when
// ch is full. Used by SSE handlers that select over a channel.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
