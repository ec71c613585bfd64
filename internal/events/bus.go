package events

import (
	"github.com/kelindar/event"
)

// Bus delivers in-process events over a kelindar/event dispatcher.
// A subscriber sees the events of its type in publish order.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{dispatcher: event.NewDispatcher()}
}

// Publish hands ev to the subscribers of its concrete type.
// The dispatcher is generic, so every event type needs a case here.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case DownloadEvent:
		event.Publish(b.dispatcher, e)
	case UpdateStatusEvent:
		event.Publish(b.dispatcher, e)
	case AppReadyEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// On subscribes handler to events of type T and returns its unsubscribe function.
func On[T Event](b *Bus, handler func(T)) func() {
	return event.Subscribe(b.dispatcher, handler)
}
