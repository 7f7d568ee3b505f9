package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vietddude/harvester/internal/core/domain"
)

func TestEmitter_CountsEvents(t *testing.T) {
	src := "http://metrics.test/oai"
	e := NewEmitter()
	ctx := context.Background()

	_ = e.Emit(ctx, &domain.Event{Source: src, Type: domain.EventPageStored, Bytes: 40})
	_ = e.Emit(ctx, &domain.Event{Source: src, Type: domain.EventPageStored, Bytes: 60})
	_ = e.Emit(ctx, &domain.Event{Source: src, Type: domain.EventWaitScheduled})
	_ = e.Emit(ctx, &domain.Event{Source: src, Type: domain.EventHalted})

	if got := testutil.ToFloat64(PagesStored.WithLabelValues(src)); got != 2 {
		t.Errorf("expected 2 pages, got %v", got)
	}
	if got := testutil.ToFloat64(BytesStored.WithLabelValues(src)); got != 100 {
		t.Errorf("expected 100 bytes, got %v", got)
	}
	if got := testutil.ToFloat64(WaitSignals.WithLabelValues(src)); got != 1 {
		t.Errorf("expected 1 wait signal, got %v", got)
	}
	if got := testutil.ToFloat64(RunsFinished.WithLabelValues(src, "halted")); got != 1 {
		t.Errorf("expected 1 halted run, got %v", got)
	}
}
