// Package redis provides the Redis-backed session store together with the
// client hooks that meter and guard every command.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DoVri/Topps/internal/adapter/metrics"
	"github.com/DoVri/Topps/internal/platform/retry"
	goredis "github.com/redis/go-redis/v9"
)

var pingPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Redis not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

// Client wraps a go-redis client with the metrics and circuit breaker hooks
// installed.
type Client struct {
	rdb     *goredis.Client
	breaker *CircuitBreakerHook
}

// NewClient parses redisURL (e.g. "redis://localhost:6379/0"), installs the
// hooks and waits until the server answers PING. m may be nil.
func NewClient(ctx context.Context, redisURL string, m *metrics.RedisMetrics) (*Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	breaker := NewCircuitBreakerHook(m)
	rdb.AddHook(NewMetricsHook(m))
	rdb.AddHook(breaker)

	err = retry.Do(ctx, pingPolicy, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.InfoContext(ctx, "Connected to redis", "addr", opts.Addr, "db", opts.DB)
	return &Client{rdb: rdb, breaker: breaker}, nil
}

// Ping verifies the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Breaker exposes the circuit breaker hook; its Check backs the readiness probe.
func (c *Client) Breaker() *CircuitBreakerHook {
	return c.breaker
}
