package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/harvester/internal/core/config"
	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/core/worker"
	"github.com/vietddude/harvester/internal/harvesting/emitter"
	"github.com/vietddude/harvester/internal/harvesting/harvester"
	"github.com/vietddude/harvester/internal/harvesting/health"
	"github.com/vietddude/harvester/internal/harvesting/metrics"
	"github.com/vietddude/harvester/internal/infra/oai"
	redisclient "github.com/vietddude/harvester/internal/infra/redis"
	"github.com/vietddude/harvester/internal/infra/storage"
	"github.com/vietddude/harvester/internal/infra/storage/postgres"
)

// App wires one harvest run together with its reporting surfaces.
type App struct {
	cfg          Config
	runID        string
	transport    *oai.HTTPTransport
	client       *oai.Client
	store        *storage.LocalStorage
	harvester    *harvester.Harvester
	emitter      *emitter.MultiEmitter
	healthMon    *health.Monitor
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// Config holds the application configuration.
type Config struct {
	RunID    string // generated when empty
	Port     int    // 0 disables the health server
	Source   config.SourceConfig
	Harvest  config.HarvestConfig
	Redis    redisclient.Config
	Database postgres.Config

	// Transport overrides the HTTP transport, mainly for tests.
	Transport oai.Transport
	// Measure overrides free-space measurement, mainly for tests.
	Measure storage.MeasureFunc
	// Sleep overrides the pause between requests, mainly for tests.
	Sleep harvester.SleepFunc
}

// NewApp creates an App with all dependencies initialized.
func NewApp(ctx context.Context, cfg Config) (*App, error) {
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	a := &App{
		cfg:   cfg,
		runID: runID,
		log:   slog.Default().With("component", "app", "run_id", runID),
	}

	// 1. Storage
	opts := []storage.Option{storage.WithCapacityFraction(cfg.Harvest.CapacityFraction)}
	if cfg.Measure != nil {
		opts = append(opts, storage.WithMeasure(cfg.Measure))
	}
	store, err := storage.NewLocalStorage(cfg.Harvest.OutputDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	a.store = store

	// 2. Protocol client
	transport := cfg.Transport
	if transport == nil {
		a.transport = oai.NewHTTPTransport(cfg.Source.URL, cfg.Source.Timeout)
		transport = a.transport
		a.log.Info("Harvesting over HTTP", "endpoint", a.transport.Endpoint(), "timeout", cfg.Source.Timeout)
	}
	a.client = oai.NewClient(transport, oai.NewXMLParser())

	// 3. Event emitters
	a.emitter = emitter.NewMultiEmitter(emitter.NewLogEmitter(nil), metrics.NewEmitter())

	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		a.db = db
		if err := db.Migrate(ctx); err != nil {
			_ = a.Close()
			return nil, err
		}
		a.emitter.Add(emitter.NewLedgerEmitter(postgres.NewEventRepo(db), nil))
		a.log.Info("Recording events to PostgreSQL")
	}

	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = rc
		a.emitter.Add(emitter.NewStreamEmitter(rc))
		a.log.Info("Publishing events to Redis stream", "stream", rc.Stream())
	}

	// 4. Harvester
	h, err := harvester.New(harvester.Config{
		RunID:  runID,
		Source: cfg.Source.URL,
		Params: oai.ListRecordsParams{
			MetadataPrefix: cfg.Source.MetadataPrefix,
			From:           cfg.Source.From,
			Until:          cfg.Source.Until,
			Set:            cfg.Source.Set,
		},
		StartToken:     cfg.Harvest.StartToken,
		MaxRequests:    cfg.Harvest.MaxRequests,
		SuggestedWait:  cfg.Harvest.SuggestedWait,
		MaxWaitRetries: cfg.Harvest.MaxWaitRetries,
		Client:         a.client,
		Storage:        store,
		Emitter:        a.emitter,
		Sleep:          cfg.Sleep,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.harvester = h

	// 5. Health
	var th health.TransportHealth
	if a.transport != nil {
		th = a.transport
	}
	a.healthMon = health.NewMonitor(h, th, store)
	if cfg.Port > 0 {
		a.healthServer = health.NewServer(a.healthMon, cfg.Port)
	}

	return a, nil
}

// RunID returns the identifier of the run.
func (a *App) RunID() string {
	return a.runID
}

// Harvester returns the run's harvester.
func (a *App) Harvester() *harvester.Harvester {
	return a.harvester
}

// Run probes the source if configured, then harvests until the run stops.
// The health server, when enabled, lives exactly as long as the run.
func (a *App) Run(ctx context.Context) (harvester.Report, error) {
	if a.cfg.Source.Identify {
		if err := a.identify(ctx); err != nil {
			return harvester.Report{RunID: a.runID, Source: a.cfg.Source.URL, Stop: harvester.StopTerminated, Cause: err}, err
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	if a.healthServer != nil {
		g.Go(func() error {
			a.log.Info("Health server listening", "port", a.cfg.Port)
			if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("Health server failed", "error", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return a.healthServer.Stop(shutdownCtx)
		})
	}

	if a.db != nil {
		a.db.StartMetricsCollector(gctx)
		if a.cfg.Database.Retention > 0 {
			pruner := worker.NewPruner(a.cfg.Database.Retention, postgres.NewEventRepo(a.db))
			g.Go(func() error {
				pruner.Start(gctx)
				return nil
			})
		}
	}

	var (
		report harvester.Report
		runErr error
	)
	g.Go(func() error {
		defer cancel()
		report, runErr = a.harvester.Run(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		a.log.Warn("Shutdown error", "error", err)
	}

	a.saveRun(context.WithoutCancel(ctx), report)
	return report, runErr
}

func (a *App) identify(ctx context.Context) error {
	out, err := a.client.Identify(ctx)
	if err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	switch o := out.(type) {
	case domain.Success:
		a.log.Info("Source identified", "bytes", len(o.Payload))
		return nil
	case domain.TransportError:
		return fmt.Errorf("identify: %w", &domain.UnhandledStatusError{StatusCode: o.StatusCode})
	case domain.ApplicationError:
		return fmt.Errorf("identify: %w", &domain.UnhandledApplicationError{Code: o.Code, Text: o.Text})
	default:
		return fmt.Errorf("identify: unexpected outcome %T", out)
	}
}

func (a *App) saveRun(ctx context.Context, r harvester.Report) {
	if a.redisClient == nil {
		return
	}
	rec := &redisclient.RunRecord{
		RunID:     r.RunID,
		Source:    r.Source,
		Requests:  r.Requests,
		Stored:    r.Requests,
		Waits:     r.Waits,
		Stop:      string(r.Stop),
		LastToken: r.LastToken,
		UpdatedAt: r.FinishedAt,
	}
	if r.Cause != nil {
		rec.Error = r.Cause.Error()
	}
	if err := a.redisClient.SaveRun(ctx, rec); err != nil {
		a.log.Warn("Failed to save run summary", "error", err)
	}
}

// Close releases every connection the App opened.
func (a *App) Close() error {
	var errs []error
	if a.emitter != nil {
		// Closes the Redis client through its stream emitter.
		errs = append(errs, a.emitter.Close())
	} else if a.redisClient != nil {
		errs = append(errs, a.redisClient.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.transport != nil {
		errs = append(errs, a.transport.Close())
	}
	return errors.Join(errs...)
}
