package domain

import (
	"fmt"
	"time"
)

// EventType identifies what happened in one harvest iteration.
type EventType string

const (
	EventPageStored    EventType = "page_stored"
	EventWaitScheduled EventType = "wait_scheduled"
	EventHalted        EventType = "halted"
	EventCompleted     EventType = "completed"
	EventTerminated    EventType = "terminated"
	EventCancelled     EventType = "cancelled"
)

// AllEventTypes lists every event type in emission order of a typical run.
var AllEventTypes = []EventType{
	EventPageStored,
	EventWaitScheduled,
	EventHalted,
	EventCompleted,
	EventTerminated,
	EventCancelled,
}

// ParseEventType validates a raw event type name.
func ParseEventType(raw string) (EventType, error) {
	for _, t := range AllEventTypes {
		if string(t) == raw {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown event type %q", raw)
}

// Event is the inspectable record of one iteration's outcome.
type Event struct {
	RunID     string        `json:"run_id"`
	Iteration int           `json:"iteration"`
	Type      EventType     `json:"type"`
	Source    string        `json:"source"`
	Requests  int           `json:"requests"`
	Sequence  int           `json:"sequence,omitempty"`
	Bytes     int64         `json:"bytes,omitempty"`
	Token     string        `json:"token,omitempty"`
	Wait      time.Duration `json:"wait,omitempty"`
	Status    int           `json:"status,omitempty"`
	Error     string        `json:"error,omitempty"`
	EmittedAt time.Time     `json:"emitted_at"`
}
