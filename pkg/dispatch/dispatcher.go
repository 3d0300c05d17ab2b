package dispatch

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nestquant/nestquant/internal/observability"
	"github.com/rs/zerolog"
)

// Kind identifies a task lifecycle event. The set is closed so that the
// payload carried by Event is checked at compile time instead of being a
// stringly-typed name plus arbitrary args.
type Kind string

const (
	// KindTaskAdded fires when a task enters the admission queue.
	KindTaskAdded Kind = "taskAdded"
	// KindTaskCanceled fires when a caller cancels a task.
	KindTaskCanceled Kind = "taskCanceled"
)

// Event is a single task lifecycle notification.
type Event struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	TaskID    string    `json:"task_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent creates an event for a task with a fresh ID and UTC timestamp.
func NewEvent(kind Kind, taskID string) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
	}
}

// Handler reacts to a single event. Returning an error aborts the
// remainder of the emission.
type Handler func(Event) error

// AgentHandler is the controlling agent's event surface. The dispatcher
// references the agent; it does not own its lifecycle.
type AgentHandler interface {
	HandleTaskAdded(taskID string) error
	HandleTaskCanceled(taskID string) error
}

// Dispatcher binds event kinds to handlers and fans emissions out to them.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
	logger   zerolog.Logger
}

// New creates an empty dispatcher.
func New(logger zerolog.Logger) *Dispatcher {
	observability.EnsureRegistered()

	return &Dispatcher{
		handlers: make(map[Kind][]Handler),
		logger:   logger.With().Str("component", "dispatch").Logger(),
	}
}

// On registers handler for kind. Multiple registrations accumulate and
// fire in registration order.
func (d *Dispatcher) On(kind Kind, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[kind] = append(d.handlers[kind], handler)
}

// Off removes all handlers for kind.
func (d *Dispatcher) Off(kind Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.handlers, kind)
}

// Emit invokes every handler bound to event.Kind synchronously, in
// registration order. The first handler error is returned and stops the
// fan-out; there is no isolation between handlers. Emit does not return
// until every invoked handler has returned.
func (d *Dispatcher) Emit(event Event) error {
	d.mu.RLock()
	handlers := append([]Handler(nil), d.handlers[event.Kind]...)
	d.mu.RUnlock()

	observability.RecordEventEmit(string(event.Kind))

	if len(handlers) == 0 {
		return nil
	}

	d.logger.Debug().
		Str("kind", string(event.Kind)).
		Str("taskId", event.TaskID).
		Int("handlers", len(handlers)).
		Msg("Emitting event")

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			observability.RecordHandlerError(string(event.Kind))
			d.logger.Error().
				Str("kind", string(event.Kind)).
				Str("taskId", event.TaskID).
				Err(err).
				Msg("Event handler failed")
			return err
		}
	}

	return nil
}

// RegisterAgentHandlers binds the canonical event kinds to the agent's
// matching handler methods. Convenience over On; not a separate mechanism.
func (d *Dispatcher) RegisterAgentHandlers(agent AgentHandler) {
	d.On(KindTaskAdded, func(e Event) error {
		return agent.HandleTaskAdded(e.TaskID)
	})
	d.On(KindTaskCanceled, func(e Event) error {
		return agent.HandleTaskCanceled(e.TaskID)
	})

	d.logger.Debug().Msg("Agent event handlers registered")
}

// HandlerCount returns the number of handlers bound to kind.
func (d *Dispatcher) HandlerCount(kind Kind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[kind])
}
