package emitter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vietddude/harvester/internal/core/domain"
)

// Emitter defines the interface for reporting harvest events.
type Emitter interface {
	// Emit sends a single event
	Emit(ctx context.Context, event *domain.Event) error

	// Close releases the emitter's resources
	Close() error
}

// LogEmitter writes every event to a slog logger.
type LogEmitter struct {
	log *slog.Logger
}

// NewLogEmitter creates an emitter logging through l, or slog.Default when nil.
func NewLogEmitter(l *slog.Logger) *LogEmitter {
	if l == nil {
		l = slog.Default()
	}
	return &LogEmitter{log: l.With("component", "events")}
}

func (e *LogEmitter) Emit(ctx context.Context, event *domain.Event) error {
	attrs := []any{
		"run_id", event.RunID,
		"iteration", event.Iteration,
		"requests", event.Requests,
	}
	if event.Sequence > 0 {
		attrs = append(attrs, "seq", event.Sequence, "bytes", event.Bytes)
	}
	if event.Token != "" {
		attrs = append(attrs, "token", event.Token)
	}
	if event.Wait > 0 {
		attrs = append(attrs, "wait", event.Wait)
	}
	if event.Status != 0 {
		attrs = append(attrs, "status", event.Status)
	}

	switch event.Type {
	case domain.EventTerminated:
		e.log.ErrorContext(ctx, "Harvest terminated", append(attrs, "error", event.Error)...)
	case domain.EventHalted:
		e.log.WarnContext(ctx, "Harvest halted", append(attrs, "reason", event.Error)...)
	case domain.EventWaitScheduled:
		e.log.InfoContext(ctx, "Server asked to wait", attrs...)
	case domain.EventCompleted:
		e.log.InfoContext(ctx, "Harvest completed", attrs...)
	case domain.EventCancelled:
		e.log.InfoContext(ctx, "Harvest cancelled", attrs...)
	default:
		e.log.DebugContext(ctx, "Page stored", attrs...)
	}
	return nil
}

func (e *LogEmitter) Close() error { return nil }

// MultiEmitter fans an event out to several emitters. Every emitter sees
// every event; failures are joined.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter ignores nil emitters.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	m := &MultiEmitter{}
	for _, e := range emitters {
		if e != nil {
			m.emitters = append(m.emitters, e)
		}
	}
	return m
}

// Add appends an emitter.
func (m *MultiEmitter) Add(e Emitter) {
	if e != nil {
		m.emitters = append(m.emitters, e)
	}
}

// Len returns the number of emitters.
func (m *MultiEmitter) Len() int {
	return len(m.emitters)
}

func (m *MultiEmitter) Emit(ctx context.Context, event *domain.Event) error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiEmitter) Close() error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
