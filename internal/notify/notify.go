// Package notify carries mutation outcome events to external consumers
// (status lines, logs). Events are fire-and-forget: handlers have no
// bearing on reconciliation state and must not block it.
package notify

import (
	"sync"
	"time"
)

// Kind identifies which mutation an event reports on.
type Kind string

const (
	KindCreated Kind = "created"
	KindUpdated Kind = "updated"
	KindToggled Kind = "toggled"
	KindDeleted Kind = "deleted"
)

// Outcome is the mutation's verdict.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one discrete mutation outcome.
type Event struct {
	Kind    Kind
	Outcome Outcome
	TaskID  string
	Title   string
	// Err is set on failure.
	Err string
	// Transient marks a retryable failure.
	Transient bool
	At        time.Time
}

// Handler processes one event.
type Handler func(Event)

// Dispatcher fans events out to registered handlers. Pass "*" as the
// kind to receive all events.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
}

// NewDispatcher returns an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[Kind][]Handler)}
}

// On registers a handler for a specific kind, or "*" for all kinds.
func (d *Dispatcher) On(kind Kind, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[kind] = append(d.handlers[kind], h)
}

// Emit delivers the event to matching handlers.
func (d *Dispatcher) Emit(ev Event) {
	d.mu.RLock()
	handlers := make([]Handler, 0, len(d.handlers[ev.Kind])+len(d.handlers["*"]))
	handlers = append(handlers, d.handlers[ev.Kind]...)
	handlers = append(handlers, d.handlers["*"]...)
	d.mu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
}
