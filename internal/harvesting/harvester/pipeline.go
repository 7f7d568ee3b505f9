package harvester

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/harvester/internal/core/cursor"
	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/harvesting/metrics"
)

// stepResult is the outcome of one iteration. A zero value means keep going.
type stepResult struct {
	done   bool
	stop   StopReason
	cause  error
	status int
}

// Run harvests until the list is exhausted, the budget is reached, storage
// runs out, an unhandled condition occurs or ctx is cancelled.
//
// A halted run returns a nil error; Report.Cause carries the storage error.
// A terminated run returns its cause. A cancelled run returns ctx.Err().
func (h *Harvester) Run(ctx context.Context) (Report, error) {
	if !h.running.CompareAndSwap(false, true) {
		return Report{}, ErrAlreadyRunning
	}
	defer h.running.Store(false)

	report := Report{RunID: h.cfg.RunID, Source: h.cfg.Source, StartedAt: time.Now()}

	if err := h.tracker.SetState(cursor.StateRequesting, "run started"); err != nil {
		return report, err
	}
	h.log.Info("Harvest started",
		"source", h.cfg.Source,
		"start_token", h.cfg.StartToken,
		"max_requests", h.cfg.MaxRequests,
		"suggested_wait", h.cfg.SuggestedWait,
	)

	for {
		if err := ctx.Err(); err != nil {
			return h.finish(ctx, report, stepResult{done: true, stop: StopCancelled, cause: err})
		}

		h.iteration++
		res := h.step(ctx)

		pause := max(h.cfg.SuggestedWait, h.pending)
		h.pending = 0

		if res.done {
			final, err := h.finish(ctx, report, res)
			if res.stop != StopCancelled {
				// The outcome is settled; cancellation only cuts the pause short.
				_ = h.pause(ctx, pause)
			}
			return final, err
		}

		if err := h.tracker.SetState(cursor.StateWaiting, "pause before next request"); err != nil {
			return h.finish(ctx, report, stepResult{done: true, stop: StopTerminated, cause: err})
		}
		if err := h.pause(ctx, pause); err != nil {
			return h.finish(ctx, report, stepResult{done: true, stop: StopCancelled, cause: err})
		}
		if err := h.tracker.SetState(cursor.StateRequesting, "pause elapsed"); err != nil {
			return h.finish(ctx, report, stepResult{done: true, stop: StopTerminated, cause: err})
		}
	}
}

// step executes one request/store iteration.
func (h *Harvester) step(ctx context.Context) stepResult {
	c := h.tracker.Get()

	start := time.Now()
	var (
		out domain.Outcome
		err error
	)
	if c.HasToken {
		out, err = h.cfg.Client.ResumeListRecords(ctx, c.Token)
	} else {
		out, err = h.cfg.Client.ListRecords(ctx, h.cfg.Params)
	}
	metrics.RequestLatency.WithLabelValues(h.cfg.Source).Observe(time.Since(start).Seconds())

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stepResult{done: true, stop: StopCancelled, cause: ctxErr}
		}
		metrics.RequestsTotal.WithLabelValues(h.cfg.Source, "error").Inc()
		return terminated(fmt.Errorf("request failed: %w", err), 0)
	}
	metrics.RequestsTotal.WithLabelValues(h.cfg.Source, outcomeLabel(out)).Inc()

	d := Classify(out)
	switch d.Action {
	case ActionTerminate:
		return terminated(d.Err, d.Status)

	case ActionWait:
		h.waits.Add(1)
		h.consecutiveWaits++
		if h.cfg.MaxWaitRetries > 0 && h.consecutiveWaits > h.cfg.MaxWaitRetries {
			return terminated(fmt.Errorf("%w: %d in a row", domain.ErrTooManyWaits, h.consecutiveWaits), d.Status)
		}
		h.pending = d.Wait
		h.emit(ctx, domain.Event{
			Type:   domain.EventWaitScheduled,
			Token:  c.Token,
			Wait:   d.Wait,
			Status: d.Status,
		})
		return stepResult{}
	}

	h.consecutiveWaits = 0

	seq, err := h.cfg.Storage.Store(d.Payload)
	if errors.Is(err, domain.ErrStorageExhausted) {
		return stepResult{done: true, stop: StopHalted, cause: err}
	}
	if err != nil {
		return terminated(fmt.Errorf("store page: %w", err), 0)
	}

	token, ok, err := h.cfg.Client.ExtractCursor(d.Payload)
	if err != nil {
		return terminated(fmt.Errorf("extract resumption token from part %d: %w", seq, err), 0)
	}
	if err := h.cfg.Storage.LogResumption(token, ok); err != nil {
		return terminated(fmt.Errorf("log resumption token: %w", err), 0)
	}
	requests, err := h.tracker.Advance(token, ok)
	if err != nil {
		return terminated(err, 0)
	}

	h.emit(ctx, domain.Event{
		Type:     domain.EventPageStored,
		Sequence: seq,
		Bytes:    int64(len(d.Payload)),
		Token:    token,
		Status:   d.Status,
	})

	if h.cfg.MaxRequests > 0 && requests >= h.cfg.MaxRequests {
		return stepResult{done: true, stop: StopBudgetReached}
	}
	if !ok {
		return stepResult{done: true, stop: StopCompleted}
	}
	return stepResult{}
}

func terminated(cause error, status int) stepResult {
	return stepResult{done: true, stop: StopTerminated, cause: cause, status: status}
}

// finish moves the tracker to its terminal state, reports the final event and
// builds the report.
func (h *Harvester) finish(ctx context.Context, report Report, res stepResult) (Report, error) {
	var (
		state cursor.State
		typ   domain.EventType
		err   error
	)
	switch res.stop {
	case StopCompleted, StopBudgetReached:
		state, typ = cursor.StateCompleted, domain.EventCompleted
	case StopHalted:
		state, typ = cursor.StateHalted, domain.EventHalted
	case StopCancelled:
		state, typ, err = cursor.StateCancelled, domain.EventCancelled, res.cause
	default:
		state, typ, err = cursor.StateTerminated, domain.EventTerminated, res.cause
	}

	if serr := h.tracker.SetState(state, string(res.stop)); serr != nil {
		h.log.Warn("Unexpected state transition", "error", serr)
	}
	if res.cause != nil {
		h.lastErr.Store(res.cause.Error())
	}

	ev := domain.Event{Type: typ, Status: res.status}
	if res.cause != nil {
		ev.Error = res.cause.Error()
	}
	h.emit(context.WithoutCancel(ctx), ev)

	c := h.tracker.Get()
	report.Iterations = h.iteration
	report.Requests = c.Requests
	report.Waits = int(h.waits.Load())
	report.Stop = res.stop
	report.LastToken = c.Token
	report.HasToken = c.HasToken
	report.Cause = res.cause
	report.FinishedAt = time.Now()

	h.log.Info("Harvest finished",
		"stop", report.Stop,
		"requests", report.Requests,
		"waits", report.Waits,
		"iterations", report.Iterations,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)

	return report, err
}

func (h *Harvester) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	h.log.Debug("Pausing", "duration", d)
	metrics.WaitSeconds.WithLabelValues(h.cfg.Source).Add(d.Seconds())
	return h.cfg.Sleep(ctx, d)
}

// emit stamps and forwards an event. Emitter failures never affect the run.
func (h *Harvester) emit(ctx context.Context, ev domain.Event) {
	ev.RunID = h.cfg.RunID
	ev.Source = h.cfg.Source
	ev.Iteration = h.iteration
	ev.Requests = h.tracker.Get().Requests
	ev.EmittedAt = time.Now()

	if err := h.cfg.Emitter.Emit(ctx, &ev); err != nil {
		h.log.Warn("Failed to emit event", "type", ev.Type, "error", err)
	}
}
