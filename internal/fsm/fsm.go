// Package fsm defines the recognition capture state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle      State = "idle"
	StateOpening   State = "opening"
	StateListening State = "listening"
	StateError     State = "error"
)

const (
	EventStart  Event = "start"
	EventOpened Event = "opened"
	EventAbort  Event = "abort"
	EventStop   Event = "stop"
	EventFail   Event = "fail"
	EventReset  Event = "reset"
)

// Transition returns the state reached by applying event to current.
// Opening only guards an in-flight start; it never outlives one Start call.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateOpening, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateOpening:
		switch event {
		case EventOpened:
			return StateListening, nil
		case EventAbort:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateListening:
		switch event {
		case EventStop:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateError:
		switch event {
		case EventReset:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
