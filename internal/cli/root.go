package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/harvester/internal/control"
	"github.com/vietddude/harvester/internal/core/config"
	"github.com/vietddude/harvester/internal/harvesting/harvester"
)

// Exit codes of a harvest run.
const (
	ExitOK         = 0
	ExitTerminated = 1
	ExitHalted     = 2
	ExitCancelled  = 130
)

var (
	cfgPath string
	isDebug bool

	sourceURL   string
	waitSeconds int
	startToken  string
	outputDir   string
	maxRequests int
	port        int
	identify    bool
)

var rootCmd = &cobra.Command{
	Use:   "harvester",
	Short: "OAI-PMH harvester",
	Long: `Harvester downloads every ListRecords page of an OAI-PMH repository into
numbered part files, following resumption tokens and honouring server
Retry-After signals, until the list ends, the request budget is spent or the
disk is nearly full.`,
	RunE:          runHarvest,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(ExitTerminated)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")

	f := rootCmd.Flags()
	f.StringVarP(&sourceURL, "source", "s", "", "OAI-PMH base URL")
	f.IntVarP(&waitSeconds, "wait", "w", 0, "minimum seconds between requests")
	f.StringVarP(&startToken, "token", "t", "", "resumption token to start from")
	f.StringVarP(&outputDir, "directory", "d", "", "output directory for part files")
	f.IntVarP(&maxRequests, "max", "m", 0, "maximum pages to store (0 = unbounded)")
	f.IntVar(&port, "port", 0, "health and metrics port (0 = disabled)")
	f.BoolVar(&identify, "identify", false, "probe the source with Identify before harvesting")
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// loadConfig reads the config file, then lets explicitly set flags override it.
func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source.URL = sourceURL
	}
	if flags.Changed("wait") {
		cfg.Harvest.SuggestedWait = time.Duration(waitSeconds) * time.Second
	}
	if flags.Changed("token") {
		cfg.Harvest.StartToken = startToken
	}
	if flags.Changed("directory") {
		cfg.Harvest.OutputDir = outputDir
	}
	if flags.Changed("max") {
		cfg.Harvest.MaxRequests = maxRequests
	}
	if flags.Changed("port") {
		cfg.Server.Port = port
	}
	if flags.Changed("identify") {
		cfg.Source.Identify = identify
	}
	return cfg, nil
}

func setupLogging(cfg *config.AppConfig) {
	slogLevel := slog.LevelInfo
	switch {
	case isDebug || cfg.Logging.Level == "debug":
		slogLevel = slog.LevelDebug
	case cfg.Logging.Level == "warn":
		slogLevel = slog.LevelWarn
	case cfg.Logging.Level == "error":
		slogLevel = slog.LevelError
	}

	if cfg.Logging.Format == "json" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})))
		return
	}
	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		return &exitError{code: ExitTerminated, err: err}
	}
	setupLogging(cfg)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		return &exitError{code: ExitTerminated, err: err}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := control.NewApp(ctx, control.Config{
		Port:     cfg.Server.Port,
		Source:   cfg.Source,
		Harvest:  cfg.Harvest,
		Redis:    cfg.Redis,
		Database: cfg.Database,
	})
	if err != nil {
		slog.Error("Failed to initialize harvester", "error", err)
		return &exitError{code: ExitTerminated, err: err}
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("Error during shutdown", "error", err)
		}
	}()

	slog.Info("Harvester started", "run_id", app.RunID(), "source", cfg.Source.URL, "dir", cfg.Harvest.OutputDir)

	report, err := app.Run(ctx)
	return summarize(report, err)
}

// summarize prints the outcome and maps it to an exit code.
func summarize(r harvester.Report, err error) error {
	attrs := []any{
		"run_id", r.RunID,
		"stop", r.Stop,
		"requests", r.Requests,
		"waits", r.Waits,
	}
	if r.HasToken {
		attrs = append(attrs, "resume_token", r.LastToken)
	}

	switch r.Stop {
	case harvester.StopCompleted, harvester.StopBudgetReached:
		slog.Info("Harvest finished", attrs...)
		return nil
	case harvester.StopHalted:
		slog.Warn("Harvest halted, free disk space and restart with the resume token", append(attrs, "cause", r.Cause)...)
		return &exitError{code: ExitHalted, err: r.Cause}
	case harvester.StopCancelled:
		slog.Info("Harvest cancelled", attrs...)
		return &exitError{code: ExitCancelled, err: err}
	default:
		slog.Error("Harvest terminated", append(attrs, "error", err)...)
		if err == nil {
			err = errors.New("harvest terminated")
		}
		return &exitError{code: ExitTerminated, err: err}
	}
}
