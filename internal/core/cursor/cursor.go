// Package cursor tracks the resumption position of a harvest run.
//
// # Purpose
//
// The cursor remembers where the harvester is in a paginated ListRecords
// response chain:
//   - Token: the server-issued resumption token for the next page
//   - Requests: how many pages have been stored so far
//   - State: what the harvest loop is doing (requesting, waiting, stopped)
//
// # State Machine
//
// Only valid transitions are allowed:
//
//	INIT → REQUESTING → WAITING → REQUESTING (valid)
//	REQUESTING → HALTED | COMPLETED | TERMINATED | CANCELLED (terminal)
//	HALTED → REQUESTING (invalid - a halted run must be restarted)
//
// Wait-retries never advance the cursor: Advance is only called after a page
// has been stored, so Requests counts stored pages exactly.
//
// # Quick Start
//
//	tracker := cursor.NewTracker("")
//	tracker.SetState(cursor.StateRequesting, "run started")
//	tracker.Advance("token-2", true)   // page 1 stored, next token known
//	tracker.Advance("", false)         // page 2 stored, list complete
//	tracker.SetState(cursor.StateCompleted, "no resumption token")
//
// Cursor state is kept in memory only.
package cursor

import (
	"github.com/vietddude/harvester/internal/core/domain"
)

// Cursor represents the harvest position of a run.
type Cursor = domain.Cursor

// CursorState represents the current state of the cursor.
type CursorState = domain.CursorState

// State constants re-exported for convenience.
const (
	StateInit       = domain.CursorStateInit
	StateRequesting = domain.CursorStateRequesting
	StateWaiting    = domain.CursorStateWaiting
	StateHalted     = domain.CursorStateHalted
	StateCompleted  = domain.CursorStateCompleted
	StateTerminated = domain.CursorStateTerminated
	StateCancelled  = domain.CursorStateCancelled
)

// NewTracker creates a tracker positioned at startToken.
// An empty startToken means the run begins with an initial ListRecords request.
func NewTracker(startToken string) *Tracker {
	return &Tracker{
		cursor: domain.Cursor{
			Token:    startToken,
			HasToken: startToken != "",
			State:    domain.CursorStateInit,
		},
		metrics: NewMetricsCollector(100),
	}
}

// NewMetricsCollector creates a new metrics collector with the given window size.
func NewMetricsCollector(windowSize int) *MetricsCollector {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &MetricsCollector{
		windowSize:  windowSize,
		pageTimes:   make([]pageRecord, 0, windowSize),
		transitions: make([]Transition, 0, 10),
	}
}
