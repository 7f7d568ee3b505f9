package emitter

import (
	"context"
	"fmt"

	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/infra/storage"
)

// Publisher appends events to a stream.
type Publisher interface {
	Publish(ctx context.Context, event *domain.Event) (string, error)
	Close() error
}

// StreamEmitter publishes events to a stream such as a Redis stream.
type StreamEmitter struct {
	pub Publisher
}

func NewStreamEmitter(pub Publisher) *StreamEmitter {
	return &StreamEmitter{pub: pub}
}

func (e *StreamEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if _, err := e.pub.Publish(ctx, event); err != nil {
		return fmt.Errorf("stream emitter: %w", err)
	}
	return nil
}

func (e *StreamEmitter) Close() error {
	return e.pub.Close()
}

// LedgerEmitter saves events to an event repository.
type LedgerEmitter struct {
	repo   storage.EventRepository
	closer func() error
}

// NewLedgerEmitter creates a ledger emitter. closer may be nil.
func NewLedgerEmitter(repo storage.EventRepository, closer func() error) *LedgerEmitter {
	return &LedgerEmitter{repo: repo, closer: closer}
}

func (e *LedgerEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if err := e.repo.Save(ctx, event); err != nil {
		return fmt.Errorf("ledger emitter: %w", err)
	}
	return nil
}

func (e *LedgerEmitter) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer()
}

// Func adapts a function to Emitter.
type Func func(ctx context.Context, event *domain.Event) error

func (f Func) Emit(ctx context.Context, event *domain.Event) error { return f(ctx, event) }

func (f Func) Close() error { return nil }
