package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/harvester/internal/core/domain"
)

// NoTokenSentinel is written to the resumption log when a page carries no token.
const NoTokenSentinel = "<none>"

// ResumptionLogName is the append-only log of resumption tokens.
const ResumptionLogName = "resumption"

// Storage persists harvested payloads under a capacity limit.
type Storage interface {
	// AvailableCapacity returns the bytes that may still be stored.
	// It is recomputed on every call.
	AvailableCapacity() (int64, error)

	// HasSpace reports whether payload fits in the available capacity.
	HasSpace(payload []byte) (bool, error)

	// Store persists payload under the next sequence number and returns it.
	// It fails with *domain.StorageExhaustedError, consuming no sequence
	// number, when the payload does not fit at call time.
	Store(payload []byte) (int, error)

	// LogResumption appends a token (or NoTokenSentinel when ok is false) to
	// the resumption log. The log is never read back by a running harvest.
	LogResumption(token string, ok bool) error
}

// EventRepository records harvest events for later inspection.
type EventRepository interface {
	// Save saves an event
	Save(ctx context.Context, event *domain.Event) error

	// ListRuns returns a summary of the most recent runs. When types is not
	// empty only runs with at least one event of those types are listed.
	ListRuns(ctx context.Context, limit int, types ...domain.EventType) ([]RunSummary, error)
}

// RunSummary aggregates the events of one run.
type RunSummary struct {
	RunID     string    `db:"run_id"`
	Source    string    `db:"source"`
	Stored    int       `db:"stored"`
	LastEvent string    `db:"last_event"`
	StartedAt time.Time `db:"started_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PartName returns the file name of the payload with the given sequence number.
func PartName(seq int) string {
	return fmt.Sprintf("part_%04d", seq)
}
