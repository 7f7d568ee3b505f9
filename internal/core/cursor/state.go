package cursor

import (
	"errors"
	"slices"
	"time"

	"github.com/vietddude/harvester/internal/core/domain"
)

// State is an alias for domain.CursorState for internal use.
type State = domain.CursorState

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ValidTransitions defines allowed state transitions.
// Key is the current state, value is the list of valid next states.
// Halted, completed, terminated and cancelled are terminal.
var ValidTransitions = map[State][]State{
	domain.CursorStateInit: {domain.CursorStateRequesting},
	domain.CursorStateRequesting: {
		domain.CursorStateWaiting,
		domain.CursorStateHalted,
		domain.CursorStateCompleted,
		domain.CursorStateTerminated,
		domain.CursorStateCancelled,
	},
	domain.CursorStateWaiting: {
		domain.CursorStateRequesting,
		domain.CursorStateCancelled,
	},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to State) bool {
	return slices.Contains(ValidTransitions[from], to)
}

// IsTerminal reports whether no further requests may be issued from s.
func IsTerminal(s State) bool {
	switch s {
	case domain.CursorStateHalted,
		domain.CursorStateCompleted,
		domain.CursorStateTerminated,
		domain.CursorStateCancelled:
		return true
	}
	return false
}

// Transition represents a state change with metadata.
type Transition struct {
	From      State
	To        State
	Reason    string
	Timestamp time.Time
}

// NewTransition creates a new transition record.
func NewTransition(from, to State, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// IsValid returns true if this transition is allowed by the state machine.
func (t Transition) IsValid() bool {
	return CanTransition(t.From, t.To)
}

// StateDescription returns a human-readable description of a state.
func StateDescription(s State) string {
	switch s {
	case domain.CursorStateInit:
		return "Initializing - run created, no request sent yet"
	case domain.CursorStateRequesting:
		return "Requesting - fetching the next page"
	case domain.CursorStateWaiting:
		return "Waiting - server asked to retry later"
	case domain.CursorStateHalted:
		return "Halted - out of local storage, free space and restart"
	case domain.CursorStateCompleted:
		return "Completed - no more pages or request budget reached"
	case domain.CursorStateTerminated:
		return "Terminated - unexpected protocol or transport condition"
	case domain.CursorStateCancelled:
		return "Cancelled - stopped by shutdown"
	default:
		return "Unknown state"
	}
}
