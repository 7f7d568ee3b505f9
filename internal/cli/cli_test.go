package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/harvesting/harvester"
)

func TestSummarize_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		r    harvester.Report
		err  error
		code int
	}{
		{"completed", harvester.Report{Stop: harvester.StopCompleted}, nil, ExitOK},
		{"budget", harvester.Report{Stop: harvester.StopBudgetReached, HasToken: true, LastToken: "x"}, nil, ExitOK},
		{"halted", harvester.Report{Stop: harvester.StopHalted, Cause: &domain.StorageExhaustedError{Attempted: 70, Available: 60}}, nil, ExitHalted},
		{"cancelled", harvester.Report{Stop: harvester.StopCancelled}, context.Canceled, ExitCancelled},
		{"terminated", harvester.Report{Stop: harvester.StopTerminated}, &domain.UnhandledStatusError{StatusCode: 500}, ExitTerminated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := summarize(tt.r, tt.err)
			if tt.code == ExitOK {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			var ee *exitError
			if !errors.As(err, &ee) {
				t.Fatalf("expected exitError, got %v", err)
			}
			if ee.code != tt.code {
				t.Errorf("expected exit code %d, got %d", tt.code, ee.code)
			}
			if ee.Error() == "" {
				t.Error("expected a message")
			}
		})
	}
}

func writeHarvestDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"part_0001":  "aaaa",
		"part_0002":  "bbbbbb",
		"resumption": "tok|1\ntok|2\n",
		"notes.txt":  "ignored",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestInspectDir(t *testing.T) {
	dir := writeHarvestDir(t)

	st, err := InspectDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if st.Parts != 2 || st.Highest != 2 || st.Bytes != 10 {
		t.Errorf("unexpected status %+v", st)
	}
	if !st.HasToken || st.LastToken != "tok|2" {
		t.Errorf("expected resume token tok|2, got %+v", st)
	}

	var buf bytes.Buffer
	printDirStatus(&buf, dir, st)
	if !strings.Contains(buf.String(), "part_0002") || !strings.Contains(buf.String(), "tok|2") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestParseEventTypes(t *testing.T) {
	types, err := parseEventTypes([]string{"halted", " terminated "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(types) != 2 || types[0] != domain.EventHalted || types[1] != domain.EventTerminated {
		t.Errorf("unexpected types %v", types)
	}

	if _, err := parseEventTypes([]string{"exploded"}); err == nil {
		t.Error("expected unknown event type to be rejected")
	}
	if types, err := parseEventTypes(nil); err != nil || len(types) != 0 {
		t.Errorf("expected no filter, got %v (%v)", types, err)
	}
}

func TestPrintEvents(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	events := []domain.Event{
		{RunID: "r1", Iteration: 2, Type: domain.EventWaitScheduled, Wait: 30 * time.Second, Status: 503, EmittedAt: at},
		{RunID: "r1", Iteration: 1, Type: domain.EventPageStored, Sequence: 7, Bytes: 40, EmittedAt: at},
		{RunID: "r1", Iteration: 3, Type: domain.EventTerminated, Error: "unhandled transport status", EmittedAt: at},
	}

	var buf bytes.Buffer
	printEvents(&buf, events)
	out := buf.String()
	for _, want := range []string{"2024-01-02T03:04:05Z", "wait 30s (status 503)", "part_0007 (40 bytes)", "unhandled transport status"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestLastTokenCommand(t *testing.T) {
	dir := writeHarvestDir(t)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"last-token", dir})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if strings.TrimSpace(out.String()) != "tok|2" {
		t.Errorf("expected tok|2, got %q", out.String())
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
source:
  url: "http://file.test/oai"
harvest:
  output_dir: "/from/file"
  max_requests: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	oldCfg := cfgPath
	cfgPath = path
	t.Cleanup(func() { cfgPath = oldCfg })

	if err := rootCmd.Flags().Set("directory", "/from/flag"); err != nil {
		t.Fatal(err)
	}
	if err := rootCmd.Flags().Set("wait", "3"); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(rootCmd)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Source.URL != "http://file.test/oai" {
		t.Errorf("file value lost: %s", cfg.Source.URL)
	}
	if cfg.Harvest.OutputDir != "/from/flag" {
		t.Errorf("flag did not override: %s", cfg.Harvest.OutputDir)
	}
	if cfg.Harvest.MaxRequests != 5 {
		t.Errorf("unset flag must not override file: %d", cfg.Harvest.MaxRequests)
	}
	if cfg.Harvest.SuggestedWait.Seconds() != 3 {
		t.Errorf("expected 3s wait, got %s", cfg.Harvest.SuggestedWait)
	}
}
