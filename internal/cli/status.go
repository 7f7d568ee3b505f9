package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/harvester/internal/core/config"
	"github.com/vietddude/harvester/internal/core/domain"
	redisclient "github.com/vietddude/harvester/internal/infra/redis"
	"github.com/vietddude/harvester/internal/infra/storage"
	"github.com/vietddude/harvester/internal/infra/storage/postgres"
)

var (
	statusDir    string
	statusLimit  int
	statusEvents []string
	streamCount  int64
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what a harvest directory holds and recent runs",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusDir, "directory", "d", "", "harvest output directory")
	statusCmd.Flags().IntVarP(&statusLimit, "limit", "n", 10, "number of recent runs to list")
	statusCmd.Flags().StringSliceVar(&statusEvents, "event", nil, "only list ledger runs that emitted one of these event types")
	statusCmd.Flags().Int64Var(&streamCount, "events", 0, "also print this many recent events from the Redis stream")
	rootCmd.AddCommand(statusCmd)
}

// DirStatus summarises a harvest output directory.
type DirStatus struct {
	Parts      int
	Highest    int
	Bytes      int64
	LastToken  string
	HasToken   bool
	LogPresent bool
}

// InspectDir reads the part files and resumption log of dir.
func InspectDir(dir string) (DirStatus, error) {
	var st DirStatus

	parts, err := storage.ScanParts(dir)
	if err != nil {
		return st, err
	}
	st.Parts = len(parts)
	for _, n := range parts {
		info, err := os.Stat(filepath.Join(dir, storage.PartName(n)))
		if err != nil {
			return st, err
		}
		st.Bytes += info.Size()
		st.Highest = n
	}

	if _, err := os.Stat(filepath.Join(dir, storage.ResumptionLogName)); err == nil {
		st.LogPresent = true
	}
	st.LastToken, st.HasToken, err = storage.LastResumption(dir)
	return st, err
}

func printDirStatus(w io.Writer, dir string, st DirStatus) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(tw, "DIRECTORY\t%s\n", dir)
	_, _ = fmt.Fprintf(tw, "PARTS\t%d\n", st.Parts)
	if st.Parts > 0 {
		_, _ = fmt.Fprintf(tw, "HIGHEST\t%s\n", storage.PartName(st.Highest))
	}
	_, _ = fmt.Fprintf(tw, "BYTES\t%d\n", st.Bytes)
	switch {
	case st.HasToken:
		_, _ = fmt.Fprintf(tw, "RESUME TOKEN\t%s\n", st.LastToken)
	case st.LogPresent:
		_, _ = fmt.Fprintf(tw, "RESUME TOKEN\t%s (list complete)\n", storage.NoTokenSentinel)
	default:
		_, _ = fmt.Fprintln(tw, "RESUME TOKEN\t-")
	}
	_ = tw.Flush()
}

// parseEventTypes validates the --event values.
func parseEventTypes(raw []string) ([]domain.EventType, error) {
	types := make([]domain.EventType, 0, len(raw))
	for _, r := range raw {
		t, err := domain.ParseEventType(strings.TrimSpace(r))
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	types, err := parseEventTypes(statusEvents)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return err
	}

	dir := statusDir
	if dir == "" {
		dir = cfg.Harvest.OutputDir
	}
	out := cmd.OutOrStdout()

	if dir != "" {
		st, err := InspectDir(dir)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", dir, err)
		}
		printDirStatus(out, dir, st)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cfg.Database.URL != "" {
		if err := printLedgerRuns(ctx, out, cfg.Database, types); err != nil {
			slog.Error("Failed to list runs from database", "error", err)
		}
	}
	if cfg.Redis.URL != "" {
		if err := printStreamRuns(ctx, out, cfg.Redis); err != nil {
			slog.Error("Failed to list runs from redis", "error", err)
		}
	}
	return nil
}

func printLedgerRuns(ctx context.Context, out io.Writer, dbCfg postgres.Config, types []domain.EventType) error {
	db, err := postgres.NewDB(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	runs, err := postgres.NewEventRepo(db).ListRuns(ctx, statusLimit, types...)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "\nRUN\tSOURCE\tSTORED\tLAST EVENT\tUPDATED")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			r.RunID, r.Source, r.Stored, r.LastEvent, r.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func printStreamRuns(ctx context.Context, out io.Writer, redisCfg redisclient.Config) error {
	rc, err := redisclient.NewClient(redisCfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = rc.Close()
	}()

	runs, err := rc.RecentRuns(ctx, int64(statusLimit))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "\nRUN\tSOURCE\tSTORED\tSTOP\tRESUME TOKEN\tUPDATED")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
			r.RunID, r.Source, r.Stored, r.Stop, r.LastToken, r.UpdatedAt.Format(time.RFC3339))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if streamCount <= 0 {
		return nil
	}
	events, err := rc.Recent(ctx, streamCount)
	if err != nil {
		return err
	}
	printEvents(out, events)
	return nil
}

func printEvents(out io.Writer, events []domain.Event) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "\nEMITTED\tRUN\tITERATION\tTYPE\tDETAIL")
	for _, e := range events {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			e.EmittedAt.Format(time.RFC3339), e.RunID, e.Iteration, e.Type, eventDetail(e))
	}
	_ = w.Flush()
}

func eventDetail(e domain.Event) string {
	switch e.Type {
	case domain.EventPageStored:
		return fmt.Sprintf("%s (%d bytes)", storage.PartName(e.Sequence), e.Bytes)
	case domain.EventWaitScheduled:
		return fmt.Sprintf("wait %s (status %d)", e.Wait, e.Status)
	default:
		return e.Error
	}
}
