// Package fsm holds the pure transition tables for the listening and reply cycles.
package fsm

import "fmt"

// ListenState is the recognizer lifecycle as believed by the session.
type ListenState string

// ListenEvent drives ListenState transitions.
type ListenEvent string

const (
	ListenIdle      ListenState = "idle"
	ListenListening ListenState = "listening"
)

const (
	ListenStart   ListenEvent = "start"
	ListenPartial ListenEvent = "partial"
	ListenEnded   ListenEvent = "ended"
	ListenError   ListenEvent = "error"
)

// ReplyState tracks whether a generation request is outstanding.
type ReplyState string

// ReplyEvent drives ReplyState transitions.
type ReplyEvent string

const (
	ReplyReady    ReplyState = "ready"
	ReplyAwaiting ReplyState = "awaiting_reply"
)

const (
	ReplySubmit  ReplyEvent = "submit"
	ReplyOutcome ReplyEvent = "outcome"
)

// Listen returns the next listening state. The current state is returned unchanged with an
// error when the event is not accepted.
func Listen(current ListenState, event ListenEvent) (ListenState, error) {
	switch current {
	case ListenIdle:
		switch event {
		case ListenStart:
			return ListenListening, nil
		default:
			return current, invalidTransition(string(current), string(event))
		}
	case ListenListening:
		switch event {
		case ListenPartial:
			return ListenListening, nil
		case ListenEnded, ListenError:
			return ListenIdle, nil
		default:
			return current, invalidTransition(string(current), string(event))
		}
	default:
		return current, fmt.Errorf("unknown listen state %q", current)
	}
}

// Reply returns the next reply-cycle state. A second submit while awaiting is rejected.
func Reply(current ReplyState, event ReplyEvent) (ReplyState, error) {
	switch current {
	case ReplyReady:
		switch event {
		case ReplySubmit:
			return ReplyAwaiting, nil
		default:
			return current, invalidTransition(string(current), string(event))
		}
	case ReplyAwaiting:
		switch event {
		case ReplyOutcome:
			return ReplyReady, nil
		default:
			return current, invalidTransition(string(current), string(event))
		}
	default:
		return current, fmt.Errorf("unknown reply state %q", current)
	}
}

func invalidTransition(state, event string) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
