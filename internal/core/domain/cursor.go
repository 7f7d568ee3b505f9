package domain

import "time"

// Cursor is the in-memory resumption position of a harvest run.
// HasToken is false before the first page and after the final page.
type Cursor struct {
	Token     string
	HasToken  bool
	Requests  int
	State     CursorState
	UpdatedAt time.Time
}

type CursorState string

const (
	CursorStateInit       CursorState = "init"
	CursorStateRequesting CursorState = "requesting"
	CursorStateWaiting    CursorState = "waiting"
	CursorStateHalted     CursorState = "halted"
	CursorStateCompleted  CursorState = "completed"
	CursorStateTerminated CursorState = "terminated"
	CursorStateCancelled  CursorState = "cancelled"
)
