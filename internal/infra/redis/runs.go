package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RunRecord is the last known summary of a harvest run.
type RunRecord struct {
	RunID     string    `json:"run_id"`
	Source    string    `json:"source"`
	Requests  int       `json:"requests"`
	Stored    int       `json:"stored"`
	Waits     int       `json:"waits"`
	Stop      string    `json:"stop"`
	LastToken string    `json:"last_token,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

const runTTL = 7 * 24 * time.Hour

func (c *Client) runsKey() string {
	return c.stream + ":runs"
}

func (c *Client) runKey(id string) string {
	return fmt.Sprintf("%s:run:%s", c.stream, id)
}

// SaveRun stores a run summary and indexes it by update time.
func (c *Client) SaveRun(ctx context.Context, rec *RunRecord) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, c.runKey(rec.RunID), data, runTTL)
	pipe.ZAdd(ctx, c.runsKey(), redis.Z{
		Score:  float64(rec.UpdatedAt.Unix()),
		Member: rec.RunID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit run summaries, most recent first.
// Expired summaries are dropped from the index as they are found.
func (c *Client) RecentRuns(ctx context.Context, limit int64) ([]RunRecord, error) {
	ids, err := c.rdb.ZRevRange(ctx, c.runsKey(), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}

	runs := make([]RunRecord, 0, len(ids))
	for _, id := range ids {
		data, err := c.rdb.Get(ctx, c.runKey(id)).Bytes()
		if err == redis.Nil {
			c.rdb.ZRem(ctx, c.runsKey(), id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get run %s: %w", id, err)
		}

		var rec RunRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run %s: %w", id, err)
		}
		runs = append(runs, rec)
	}
	return runs, nil
}
