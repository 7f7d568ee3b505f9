package cursor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/harvester/internal/core/domain"
)

var (
	// ErrNotRequesting is returned when advancing a cursor outside the requesting state.
	ErrNotRequesting = errors.New("cursor is not requesting")

	// ErrCursorExhausted is returned when advancing past the final page.
	ErrCursorExhausted = errors.New("cursor has no further pages")
)

// Tracker holds the resumption cursor and harvest state of one run.
// The cursor lives only in memory; nothing is persisted across restarts.
type Tracker struct {
	mu            sync.RWMutex
	cursor        domain.Cursor
	stateCallback func(Transition)
	metrics       *MetricsCollector
}

// Get returns a snapshot of the cursor.
func (t *Tracker) Get() domain.Cursor {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor.State
}

// Advance records a stored page and moves to the next resumption token.
// ok=false marks the final page.
func (t *Tracker) Advance(token string, ok bool) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cursor.State != domain.CursorStateRequesting {
		return t.cursor.Requests, fmt.Errorf("%w: state %s", ErrNotRequesting, t.cursor.State)
	}
	if t.cursor.Requests > 0 && !t.cursor.HasToken {
		return t.cursor.Requests, ErrCursorExhausted
	}

	now := time.Now()
	t.cursor.Token = token
	t.cursor.HasToken = ok
	t.cursor.Requests++
	t.cursor.UpdatedAt = now
	t.metrics.RecordPage(t.cursor.Requests, now)

	return t.cursor.Requests, nil
}

// SetState transitions the tracker to a new state.
func (t *Tracker) SetState(newState State, reason string) error {
	t.mu.Lock()
	from := t.cursor.State
	if !CanTransition(from, newState) {
		t.mu.Unlock()
		return fmt.Errorf(
			"%w: cannot transition from %s to %s",
			ErrInvalidTransition,
			from,
			newState,
		)
	}

	transition := NewTransition(from, newState, reason)
	t.cursor.State = newState
	t.cursor.UpdatedAt = transition.Timestamp
	t.metrics.RecordTransition(transition)
	callback := t.stateCallback
	t.mu.Unlock()

	if callback != nil {
		callback(transition)
	}
	return nil
}

// GetMetrics returns throughput and state history.
func (t *Tracker) GetMetrics() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.metrics.GetMetrics()
}

// SetStateChangeCallback registers a callback for state changes.
func (t *Tracker) SetStateChangeCallback(fn func(Transition)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stateCallback = fn
}
