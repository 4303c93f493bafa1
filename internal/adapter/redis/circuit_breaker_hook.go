package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DoVri/Topps/internal/adapter/metrics"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned for commands rejected while the breaker is open
// or probing.
var ErrCircuitOpen = errors.New("redis circuit breaker open")

// BreakerSettings tunes the breaker. It trips once at least MinRequests
// commands were seen in the current Interval and FailureRatio of them failed,
// then stays open for OpenTimeout before letting one probe through.
type BreakerSettings struct {
	MinRequests  uint32
	FailureRatio float64
	Interval     time.Duration
	OpenTimeout  time.Duration
}

var DefaultBreakerSettings = BreakerSettings{
	MinRequests:  5,
	FailureRatio: 0.6,
	Interval:     10 * time.Second,
	OpenTimeout:  30 * time.Second,
}

// CircuitBreakerHook implements redis.Hook and fails commands fast while
// Redis is unavailable. A redis.Nil reply counts as success.
type CircuitBreakerHook struct {
	cb *gobreaker.CircuitBreaker
}

var _ goredis.Hook = (*CircuitBreakerHook)(nil)

func NewCircuitBreakerHook(m *metrics.RedisMetrics) *CircuitBreakerHook {
	return NewCircuitBreakerHookWithSettings(DefaultBreakerSettings, m)
}

func NewCircuitBreakerHookWithSettings(s BreakerSettings, m *metrics.RedisMetrics) *CircuitBreakerHook {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis",
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.Requests >= s.MinRequests &&
				float64(c.TotalFailures)/float64(c.Requests) >= s.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, goredis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed",
				"component", name,
				"from", from.String(),
				"to", to.String(),
			)
			m.BreakerChanged(to.String(), stateToFloat(to))
		},
	})
	return &CircuitBreakerHook{cb: cb}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// DialHook is not guarded; dials happen inside a guarded command.
func (h *CircuitBreakerHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return next
}

func (h *CircuitBreakerHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		_, err := h.cb.Execute(func() (any, error) {
			return nil, next(ctx, cmd)
		})
		return breakerError(err)
	}
}

func (h *CircuitBreakerHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		_, err := h.cb.Execute(func() (any, error) {
			return nil, next(ctx, cmds)
		})
		return breakerError(err)
	}
}

func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrCircuitOpen, err)
	}
	return err
}

// State returns the current breaker state ("closed", "half-open" or "open").
func (h *CircuitBreakerHook) State() string {
	return h.cb.State().String()
}

// Check fails with ErrCircuitOpen while the breaker is open, so readiness
// reports a Redis outage before the next command is rejected.
func (h *CircuitBreakerHook) Check(_ context.Context) error {
	if h.cb.State() == gobreaker.StateOpen {
		return ErrCircuitOpen
	}
	return nil
}
