package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/infra/storage"
)

// EventRepo implements storage.EventRepository using PostgreSQL.
type EventRepo struct {
	db *DB
}

var _ storage.EventRepository = (*EventRepo)(nil)

// NewEventRepo creates a new PostgreSQL event repository.
func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

type eventRow struct {
	RunID     string    `db:"run_id"`
	Iteration int       `db:"iteration"`
	EventType string    `db:"event_type"`
	Source    string    `db:"source"`
	Requests  int       `db:"requests"`
	Sequence  int       `db:"sequence"`
	Bytes     int64     `db:"bytes"`
	Token     string    `db:"token"`
	WaitMS    int64     `db:"wait_ms"`
	Status    int       `db:"status"`
	Error     string    `db:"error"`
	EmittedAt time.Time `db:"emitted_at"`
}

const insertEvent = `
INSERT INTO harvest_events
    (run_id, iteration, event_type, source, requests, sequence, bytes, token, wait_ms, status, error, emitted_at)
VALUES
    (:run_id, :iteration, :event_type, :source, :requests, :sequence, :bytes, :token, :wait_ms, :status, :error, :emitted_at)`

// Save saves an event to the database.
func (r *EventRepo) Save(ctx context.Context, event *domain.Event) error {
	row := eventRow{
		RunID:     event.RunID,
		Iteration: event.Iteration,
		EventType: string(event.Type),
		Source:    event.Source,
		Requests:  event.Requests,
		Sequence:  event.Sequence,
		Bytes:     event.Bytes,
		Token:     event.Token,
		WaitMS:    event.Wait.Milliseconds(),
		Status:    event.Status,
		Error:     event.Error,
		EmittedAt: event.EmittedAt,
	}
	if row.EmittedAt.IsZero() {
		row.EmittedAt = time.Now()
	}

	if _, err := r.db.NamedExecContext(ctx, insertEvent, row); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

const listRuns = `
SELECT
    run_id,
    MIN(source) AS source,
    COUNT(*) FILTER (WHERE event_type = 'page_stored') AS stored,
    (ARRAY_AGG(event_type ORDER BY iteration DESC, id DESC))[1] AS last_event,
    MIN(emitted_at) AS started_at,
    MAX(emitted_at) AS updated_at
FROM harvest_events
GROUP BY run_id
HAVING cardinality($1::text[]) = 0 OR bool_or(event_type = ANY($1::text[]))
ORDER BY MAX(emitted_at) DESC
LIMIT $2`

// ListRuns returns the most recently active runs, optionally only those that
// emitted one of types. Summaries always aggregate all events of a run.
func (r *EventRepo) ListRuns(ctx context.Context, limit int, types ...domain.EventType) ([]storage.RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}

	var runs []storage.RunSummary
	if err := r.db.SelectContext(ctx, &runs, listRuns, pq.Array(names), limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// DeleteOlderThan removes events emitted before cutoff.
func (r *EventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM harvest_events WHERE emitted_at < $1", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return res.RowsAffected()
}
