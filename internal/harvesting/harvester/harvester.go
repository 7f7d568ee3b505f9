// Package harvester runs the request/store loop of one harvest run.
//
// One run owns one cursor and one storage handle. Requests are issued one at
// a time; the only suspension point is the pause between iterations, which
// is interruptible through the run's context.
package harvester

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vietddude/harvester/internal/core/cursor"
	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/harvesting/emitter"
	"github.com/vietddude/harvester/internal/infra/oai"
	"github.com/vietddude/harvester/internal/infra/storage"
)

// ErrAlreadyRunning is returned when Run is called on a running harvester.
var ErrAlreadyRunning = errors.New("harvester already running")

// Requester is the part of the protocol client the loop depends on.
type Requester interface {
	ListRecords(ctx context.Context, p oai.ListRecordsParams) (domain.Outcome, error)
	ResumeListRecords(ctx context.Context, token string) (domain.Outcome, error)
	ExtractCursor(payload []byte) (token string, ok bool, err error)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// StopReason says why a run ended.
type StopReason string

const (
	StopCompleted     StopReason = "completed"
	StopBudgetReached StopReason = "budget_reached"
	StopHalted        StopReason = "halted"
	StopTerminated    StopReason = "terminated"
	StopCancelled     StopReason = "cancelled"
)

// Config holds harvester configuration
type Config struct {
	RunID  string
	Source string

	// Params shape the initial ListRecords request.
	Params oai.ListRecordsParams

	// StartToken resumes a previous run from a known resumption token.
	StartToken string

	// MaxRequests caps stored pages; 0 means unbounded.
	MaxRequests int

	// SuggestedWait is the minimum pause between requests.
	SuggestedWait time.Duration

	// MaxWaitRetries caps consecutive wait signals for one cursor; 0 means unbounded.
	MaxWaitRetries int

	Client  Requester
	Storage storage.Storage
	Emitter emitter.Emitter
	Sleep   SleepFunc
	Logger  *slog.Logger
}

// Report summarises a finished run.
type Report struct {
	RunID      string
	Source     string
	Iterations int
	Requests   int // pages stored and counted against the budget
	Waits      int
	Stop       StopReason
	LastToken  string
	HasToken   bool
	Cause      error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Status is a live view of a run.
type Status struct {
	RunID          string       `json:"run_id"`
	Source         string       `json:"source"`
	Running        bool         `json:"running"`
	State          cursor.State `json:"state"`
	Requests       int          `json:"requests"`
	Waits          int          `json:"waits"`
	Token          string       `json:"token,omitempty"`
	PagesPerSecond float64      `json:"pages_per_second"`
	LastError      string       `json:"last_error,omitempty"`
}

// Harvester drives one harvest run.
type Harvester struct {
	cfg     Config
	tracker *cursor.Tracker
	log     *slog.Logger
	running atomic.Bool

	iteration        int
	waits            atomic.Int64
	consecutiveWaits int
	pending          time.Duration
	lastErr          atomic.Value // string
}

// New validates cfg and creates a harvester positioned at cfg.StartToken.
func New(cfg Config) (*Harvester, error) {
	if cfg.Client == nil {
		return nil, errors.New("harvester: client is required")
	}
	if cfg.Storage == nil {
		return nil, errors.New("harvester: storage is required")
	}
	if cfg.MaxRequests < 0 {
		return nil, fmt.Errorf("harvester: max requests must not be negative, got %d", cfg.MaxRequests)
	}
	if cfg.SuggestedWait < 0 {
		return nil, fmt.Errorf("harvester: suggested wait must not be negative, got %s", cfg.SuggestedWait)
	}
	if cfg.MaxWaitRetries < 0 {
		return nil, fmt.Errorf("harvester: max wait retries must not be negative, got %d", cfg.MaxWaitRetries)
	}
	if cfg.Emitter == nil {
		cfg.Emitter = emitter.NewMultiEmitter()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Harvester{
		cfg:     cfg,
		tracker: cursor.NewTracker(cfg.StartToken),
		log:     cfg.Logger.With("component", "harvester", "run_id", cfg.RunID),
	}, nil
}

// Tracker exposes the run's cursor tracker.
func (h *Harvester) Tracker() *cursor.Tracker {
	return h.tracker
}

// GetStatus returns the current status.
func (h *Harvester) GetStatus() Status {
	c := h.tracker.Get()
	s := Status{
		RunID:          h.cfg.RunID,
		Source:         h.cfg.Source,
		Running:        h.running.Load(),
		State:          c.State,
		Requests:       c.Requests,
		Waits:          int(h.waits.Load()),
		Token:          c.Token,
		PagesPerSecond: h.tracker.GetMetrics().PagesPerSecond,
	}
	if v, ok := h.lastErr.Load().(string); ok {
		s.LastError = v
	}
	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
