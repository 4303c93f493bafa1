package httpserver

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/DoVri/Topps/internal/adapter/metrics"
	"github.com/DoVri/Topps/internal/domain"
	"github.com/DoVri/Topps/internal/platform/config"
	"github.com/DoVri/Topps/web"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type serverRegistry interface {
	Add(ctx context.Context, name string, port int, serverDomain string) (domain.ServerEntry, error)
	Remove(ctx context.Context, m domain.Matcher) (domain.ServerEntry, error)
	List() []domain.ServerEntry
	ResolveByHost(host string) domain.ServerEntry
	Fallback() domain.ServerEntry
	IsDefault(e domain.ServerEntry) bool
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	registry serverRegistry
	sessions domain.SessionStore

	templates *template.Template

	cookieStore    *sessions.CookieStore
	httpMetrics    *metrics.HTTPMetrics
	loginMetrics   *metrics.LoginMetrics
	metricsHandler http.Handler
	healthChecks   []HealthCheck
	startTime      time.Time
}

// NewServer wires the routes. promRegistry may be nil, in which case no
// metrics are recorded and /metrics is not mounted.
func NewServer(cfg *config.Config, registry serverRegistry, sessionStore domain.SessionStore, promRegistry *prometheus.Registry, healthChecks []HealthCheck) (*Server, error) {
	templates, err := template.ParseFS(web.TemplateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = echo.ExtractIPFromXFFHeader()

	srv := &Server{
		echo:         e,
		config:       cfg,
		registry:     registry,
		sessions:     sessionStore,
		templates:    templates,
		cookieStore:  setupCookieStore(cfg),
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}
	if promRegistry != nil {
		srv.httpMetrics = metrics.NewHTTPMetrics(promRegistry, routeAliases)
		srv.loginMetrics = metrics.NewLoginMetrics(promRegistry)
		srv.metricsHandler = metrics.Handler(promRegistry)
	}

	srv.registerRoutes()

	return srv, nil
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets the server be driven directly, e.g. by httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) renderTemplate(c echo.Context, name string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.ErrorContext(c.Request().Context(), "Template execution failed", "path", c.Request().URL.Path, "error", err)
		if err := c.String(http.StatusInternalServerError, "Failed to render page"); err != nil {
			return fmt.Errorf("failed to send error response: %w", err)
		}
		return nil
	}
	if err := c.HTMLBlob(http.StatusOK, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to send HTML response: %w", err)
	}
	return nil
}
