package events

import (
	"context"
	"fmt"

	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

// Handler processes an event delivered back into this process by the
// workflow engine.
type Handler func(ctx context.Context, data Payload) error

// Registry maps event names to handlers. It replaces decorator-style
// listener tagging with an explicit table populated once at startup;
// delayed execution stays with the workflow engine.
type Registry struct {
	handlers map[string]Handler
	logger   *logging.Logger
}

func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register binds a handler to an event name. Rebinding an already
// registered name is a programming error.
func (r *Registry) Register(eventName string, h Handler) {
	if h == nil {
		panic(fmt.Sprintf("events: nil handler for %q", eventName))
	}
	if _, dup := r.handlers[eventName]; dup {
		panic(fmt.Sprintf("events: duplicate handler for %q", eventName))
	}
	r.handlers[eventName] = h
}

// Dispatch invokes the handler for the event, if any. Unknown events and
// handler errors are logged and swallowed; inbound automation is best
// effort by design.
func (r *Registry) Dispatch(ctx context.Context, eventName string, data Payload) {
	h, ok := r.handlers[eventName]
	if !ok {
		r.logger.Warn("no handler registered for event", "event", eventName)
		return
	}
	if err := h(ctx, data); err != nil {
		r.logger.Error("event handler failed", "event", eventName, "error", err)
	}
}

// Registered reports whether a handler exists for the event name.
func (r *Registry) Registered(eventName string) bool {
	_, ok := r.handlers[eventName]
	return ok
}
