package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoVri/Topps/internal/adapter/filestore"
	"github.com/DoVri/Topps/internal/adapter/httpserver"
	"github.com/DoVri/Topps/internal/adapter/metrics"
	"github.com/DoVri/Topps/internal/adapter/redis"
	"github.com/DoVri/Topps/internal/domain"
	"github.com/DoVri/Topps/internal/platform/config"
	"github.com/DoVri/Topps/internal/platform/logging"
	"github.com/DoVri/Topps/internal/registry"
	"github.com/DoVri/Topps/internal/session"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRegistry(ctx context.Context, cfg *config.Config, promRegistry *prometheus.Registry) *registry.Registry {
	policy, err := registry.ParsePolicy(cfg.RegistryPolicy)
	if err != nil {
		slog.Error("Invalid registry policy", "error", err)
		os.Exit(1)
	}
	defaults, err := registry.ParseEntries(cfg.DefaultServers)
	if err != nil {
		slog.Error("Invalid default servers", "error", err)
		os.Exit(1)
	}

	opts := []registry.Option{
		registry.WithPolicy(policy),
		registry.WithMetrics(metrics.NewRegistryMetrics(promRegistry)),
	}
	if cfg.PersistRegistry() {
		repo := filestore.NewServerRepository(cfg.RegistryFile)
		opts = append(opts, registry.WithRepository(repo))
		slog.Info("Persisting added servers", "file", repo.Path())
	}

	reg, err := registry.New(defaults, opts...)
	if err != nil {
		slog.Error("Failed to create server registry", "error", err)
		os.Exit(1)
	}

	loadCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := reg.Load(loadCtx); err != nil {
		slog.Error("Failed to restore persisted servers, starting with defaults", "error", err)
	}

	slog.Info("Server registry ready", "servers", len(reg.List()), "policy", reg.Policy().String(), "persist", cfg.PersistRegistry())
	return reg
}

type sessionBackend struct {
	store        domain.SessionStore
	healthChecks []httpserver.HealthCheck
	memory       *session.MemoryStore
	close        func()
}

func setupSessions(ctx context.Context, cfg *config.Config, clock clockwork.Clock, promRegistry *prometheus.Registry) sessionBackend {
	if cfg.RedisURL == "" {
		store := session.NewMemoryStore(cfg.SessionMaxAge, clock)
		slog.Info("Using in-memory session store", "ttl", cfg.SessionMaxAge)
		return sessionBackend{store: store, memory: store, close: func() {}}
	}

	connectCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	client, err := redis.NewClient(connectCtx, cfg.RedisURL, metrics.NewRedisMetrics(promRegistry))
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	slog.Info("Using Redis session store", "ttl", cfg.SessionMaxAge)
	return sessionBackend{
		store: redis.NewSessionStore(client, cfg.SessionMaxAge, clock),
		healthChecks: []httpserver.HealthCheck{
			{Name: "redis_breaker", Check: client.Breaker().Check},
			{Name: "redis", Check: client.Ping},
		},
		close: func() { _ = client.Close() },
	}
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	promRegistry := metrics.NewRegistry()

	reg := setupRegistry(ctx, cfg, promRegistry)

	sessions := setupSessions(ctx, cfg, clock, promRegistry)
	defer sessions.close()

	srv, err := httpserver.NewServer(cfg, reg, sessions.store, promRegistry, sessions.healthChecks)
	if err != nil {
		slog.Error("Failed to create server", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if sessions.memory != nil && cfg.SessionSweepInterval > 0 {
		g.Go(func() error {
			sessions.memory.RunSweeper(gctx, cfg.SessionSweepInterval)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		sessions.close()
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
