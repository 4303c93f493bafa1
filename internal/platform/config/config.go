package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const minProductionSecretLen = 32

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"5000"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	SessionSecret        string        `env:"SESSION_SECRET"`
	SessionMaxAge        time.Duration `env:"SESSION_MAX_AGE" default:"24h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" default:"10m"`
	RedisURL             string        `env:"REDIS_URL"`

	// An empty REGISTRY_FILE keeps added servers in memory only.
	RegistryFile   string `env:"REGISTRY_FILE" default:"data/servers.json"`
	RegistryPolicy string `env:"REGISTRY_POLICY" default:"port"`
	DefaultServers string `env:"DEFAULT_SERVERS" default:"MazdaPS=mazda.privates.icu:17091,RunPS=runps.privates.icu:17092"`

	CredentialMinLength int `env:"CREDENTIAL_MIN_LENGTH" default:"1"`

	// 100 requests per 15 minutes per client IP.
	RateLimitPerSecond float64 `env:"RATE_LIMIT_PER_SECOND" default:"0.1111"`
	RateLimitBurst     int     `env:"RATE_LIMIT_BURST" default:"100"`

	WelcomeText string `env:"WELCOME_TEXT" default:"Welcome to MazdaPS Multi-Server Login URL!"`
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// PersistRegistry reports whether added servers are written to RegistryFile.
func (c *Config) PersistRegistry() bool {
	return strings.TrimSpace(c.RegistryFile) != ""
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if cfg.IsProduction() && len(cfg.SessionSecret) < minProductionSecretLen {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in production", minProductionSecretLen)
	}
	if cfg.SessionMaxAge <= 0 {
		return errors.New("SESSION_MAX_AGE must be positive")
	}
	if cfg.SessionSweepInterval < 0 {
		return errors.New("SESSION_SWEEP_INTERVAL must not be negative")
	}
	switch cfg.RegistryPolicy {
	case "port", "name":
	default:
		return fmt.Errorf("REGISTRY_POLICY must be 'port' or 'name', got %q", cfg.RegistryPolicy)
	}
	if strings.TrimSpace(cfg.DefaultServers) == "" {
		return errors.New("DEFAULT_SERVERS must list at least one server")
	}
	if cfg.CredentialMinLength < 1 {
		return errors.New("CREDENTIAL_MIN_LENGTH must be at least 1")
	}
	if cfg.RateLimitPerSecond < 0 {
		return errors.New("RATE_LIMIT_PER_SECOND must not be negative")
	}
	if cfg.RateLimitPerSecond > 0 && cfg.RateLimitBurst < 1 {
		return errors.New("RATE_LIMIT_BURST must be at least 1 when rate limiting is enabled")
	}
	return nil
}
