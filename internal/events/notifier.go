package events

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// HandlerFunc is a function that handles an event.
type HandlerFunc func(event Event)

// Notifier dispatches events to named handlers synchronously and in
// registration order. A handler that panics is isolated: the panic is
// logged and the remaining handlers still run, so one failing observer
// can never abort the monitor loop or starve its peers.
type Notifier struct {
	mu       sync.RWMutex
	handlers map[Type][]handlerEntry
}

type handlerEntry struct {
	name    string
	handler HandlerFunc
}

// NewNotifier creates an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		handlers: make(map[Type][]handlerEntry),
	}
}

// Subscribe registers a handler for an event type. The name identifies
// the handler for Unsubscribe and for logging.
func (n *Notifier) Subscribe(eventType Type, name string, handler HandlerFunc) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.handlers[eventType] = append(n.handlers[eventType], handlerEntry{
		name:    name,
		handler: handler,
	})

	log.Debug().
		Str("event", string(eventType)).
		Str("handler", name).
		Msg("subscribed to event")
}

// Unsubscribe removes a named handler from an event type.
func (n *Notifier) Unsubscribe(eventType Type, name string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	handlers, exists := n.handlers[eventType]
	if !exists {
		return
	}

	filtered := make([]handlerEntry, 0, len(handlers))
	for _, h := range handlers {
		if h.name != name {
			filtered = append(filtered, h)
		}
	}
	n.handlers[eventType] = filtered
}

// Publish delivers an event to every subscribed handler, in registration
// order, on the caller's goroutine. It returns once all handlers ran.
func (n *Notifier) Publish(event Event) {
	n.mu.RLock()
	handlers := make([]handlerEntry, len(n.handlers[event.Type]))
	copy(handlers, n.handlers[event.Type])
	n.mu.RUnlock()

	for _, h := range handlers {
		n.invoke(h, event)
	}
}

// invoke runs one handler inside its own failure boundary.
func (n *Notifier) invoke(h handlerEntry, event Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("event", string(event.Type)).
				Str("handler", h.name).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	h.handler(event)
}

// HandlerCount returns the number of handlers registered for a type.
func (n *Notifier) HandlerCount(eventType Type) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.handlers[eventType])
}
