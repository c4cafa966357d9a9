// Package fsm models the board bootstrap lifecycle.
package fsm

import "fmt"

type State string

type Event string

const (
	StatePending   State = "pending"
	StateLoading   State = "loading"
	StateSeeding   State = "seeding"
	StateRepairing State = "repairing"
	StateReady     State = "ready"
	StateError     State = "error"
)

const (
	EventLoad   Event = "load"
	EventSeed   Event = "seed"
	EventRepair Event = "repair"
	EventDone   Event = "done"
	EventFail   Event = "fail"
	EventRetry  Event = "retry"
)

// Transition returns the state reached by applying event to current.
func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateError, nil
	}

	switch current {
	case StatePending:
		switch event {
		case EventLoad:
			return StateLoading, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateLoading:
		switch event {
		case EventSeed:
			return StateSeeding, nil
		case EventRepair:
			return StateRepairing, nil
		case EventDone:
			return StateReady, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateSeeding, StateRepairing:
		switch event {
		case EventDone:
			return StateReady, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateReady:
		return current, invalidTransition(current, event)
	case StateError:
		switch event {
		case EventRetry:
			return StatePending, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Ready reports whether the board may be shown.
func (s State) Ready() bool {
	return s == StateReady
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
