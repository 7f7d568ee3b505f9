package metrics

import (
	"context"

	"github.com/vietddude/harvester/internal/core/domain"
)

// Emitter turns harvest events into Prometheus samples.
type Emitter struct{}

func NewEmitter() *Emitter {
	return &Emitter{}
}

func (Emitter) Emit(ctx context.Context, event *domain.Event) error {
	switch event.Type {
	case domain.EventPageStored:
		PagesStored.WithLabelValues(event.Source).Inc()
		BytesStored.WithLabelValues(event.Source).Add(float64(event.Bytes))
	case domain.EventWaitScheduled:
		WaitSignals.WithLabelValues(event.Source).Inc()
	case domain.EventCompleted, domain.EventHalted, domain.EventTerminated, domain.EventCancelled:
		RunsFinished.WithLabelValues(event.Source, string(event.Type)).Inc()
	}
	return nil
}

func (Emitter) Close() error { return nil }
