package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/harvester/internal/core/domain"
)

// DefaultMaxLen bounds the event stream length.
const DefaultMaxLen = 10000

// Client publishes harvest events to a Redis stream.
type Client struct {
	rdb    redis.UniversalClient
	stream string
	maxLen int64
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	Stream   string `yaml:"stream"`
	MaxLen   int64  `yaml:"max_len"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewFromRedis(rdb, cfg.Stream, cfg.MaxLen), nil
}

// NewFromRedis wraps an existing connection.
func NewFromRedis(rdb redis.UniversalClient, stream string, maxLen int64) *Client {
	if stream == "" {
		stream = "harvester:events"
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Client{rdb: rdb, stream: stream, maxLen: maxLen}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Stream returns the stream key events are appended to.
func (c *Client) Stream() string {
	return c.stream
}

// Publish appends an event to the stream and returns its entry ID.
func (c *Client) Publish(ctx context.Context, event *domain.Event) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	id, err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream,
		MaxLen: c.maxLen,
		Approx: true,
		Values: map[string]any{
			"run_id": event.RunID,
			"type":   string(event.Type),
			"event":  string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd failed: %w", err)
	}
	return id, nil
}

// Recent returns up to count events, newest first.
func (c *Client) Recent(ctx context.Context, count int64) ([]domain.Event, error) {
	msgs, err := c.rdb.XRevRangeN(ctx, c.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange failed: %w", err)
	}

	events := make([]domain.Event, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["event"].(string)
		if !ok {
			continue
		}
		var ev domain.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			return nil, fmt.Errorf("decode event %s: %w", m.ID, err)
		}
		events = append(events, ev)
	}
	return events, nil
}
