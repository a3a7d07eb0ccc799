// Package events reports fallback, transport, and guard events from the
// capture, translation, and playback controllers.
package events

import (
	"log/slog"
	"sync"
)

// Kind classifies one reported event.
type Kind string

const (
	KindFallbackUsed   Kind = "fallback_used"
	KindTransportError Kind = "transport_error"
	KindGuardRejected  Kind = "guard_rejected"
	KindNotice         Kind = "notice"
)

// Event is one observable occurrence. Requested/Substitute are set for
// fallbacks, Err for transport errors.
type Event struct {
	Kind       Kind
	Component  string
	Message    string
	Requested  string
	Substitute string
	Err        error
}

// Observer receives controller events. Implementations must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) {
	f(e)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Observe(Event) {}

// Fallback builds a fallback substitution event.
func Fallback(component, requested, substitute, message string) Event {
	return Event{
		Kind:       KindFallbackUsed,
		Component:  component,
		Requested:  requested,
		Substitute: substitute,
		Message:    message,
	}
}

// Transport builds a transport failure event.
func Transport(component, message string, err error) Event {
	return Event{Kind: KindTransportError, Component: component, Message: message, Err: err}
}

// Guard builds a concurrency-guard rejection event.
func Guard(component, message string) Event {
	return Event{Kind: KindGuardRejected, Component: component, Message: message}
}

// LogObserver writes events to a structured logger.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) Observe(e Event) {
	if o.Logger == nil {
		return
	}
	fields := []any{"kind", e.Kind, "component", e.Component}
	if e.Requested != "" {
		fields = append(fields, "requested", e.Requested)
	}
	if e.Substitute != "" {
		fields = append(fields, "substitute", e.Substitute)
	}
	if e.Err != nil {
		fields = append(fields, "error", e.Err.Error())
	}

	switch e.Kind {
	case KindTransportError:
		o.Logger.Warn(e.Message, fields...)
	case KindGuardRejected:
		o.Logger.Debug(e.Message, fields...)
	default:
		o.Logger.Info(e.Message, fields...)
	}
}

// Fanout delivers each event to every observer in order.
type Fanout []Observer

func (f Fanout) Observe(e Event) {
	for _, o := range f {
		if o != nil {
			o.Observe(e)
		}
	}
}

// Recorder keeps events in memory; tests and status queries read it back.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a snapshot of recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfKind returns recorded events matching kind.
func (r *Recorder) OfKind(kind Kind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0)
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Notice builds an informational event.
func Notice(component, message string) Event {
	return Event{Kind: KindNotice, Component: component, Message: message}
}
