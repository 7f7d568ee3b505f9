package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/harvester/internal/core/domain"
)

// These tests need a live server: REDIS_URL=redis://localhost:6379/0 go test ./...
func liveClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	c, err := NewClient(Config{URL: url, Stream: "harvester:test:" + uuid.NewString()})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		c.rdb.Del(ctx, c.stream, c.runsKey())
		_ = c.Close()
	})
	return c
}

func TestClient_PublishAndRecent(t *testing.T) {
	c := liveClient(t)
	ctx := context.Background()

	for i, typ := range []domain.EventType{domain.EventPageStored, domain.EventCompleted} {
		_, err := c.Publish(ctx, &domain.Event{
			RunID:     "run-1",
			Iteration: i + 1,
			Type:      typ,
			EmittedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	events, err := c.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != domain.EventCompleted {
		t.Errorf("expected newest event first, got %s", events[0].Type)
	}
}

func TestClient_Runs(t *testing.T) {
	c := liveClient(t)
	ctx := context.Background()

	older := &RunRecord{RunID: "a", Stop: "completed", UpdatedAt: time.Now().Add(-time.Minute)}
	newer := &RunRecord{RunID: "b", Stop: "halted", UpdatedAt: time.Now()}
	for _, r := range []*RunRecord{older, newer} {
		if err := c.SaveRun(ctx, r); err != nil {
			t.Fatalf("save run: %v", err)
		}
		t.Cleanup(func() { c.rdb.Del(context.Background(), c.runKey(r.RunID)) })
	}

	runs, err := c.RecentRuns(ctx, 5)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "b" {
		t.Errorf("unexpected runs: %+v", runs)
	}
}

func TestNewFromRedis_Defaults(t *testing.T) {
	c := NewFromRedis(nil, "", 0)
	if c.Stream() != "harvester:events" {
		t.Errorf("unexpected stream %s", c.Stream())
	}
	if c.maxLen != DefaultMaxLen {
		t.Errorf("unexpected max len %d", c.maxLen)
	}
}
