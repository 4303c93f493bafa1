package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	gzipLevel    = 5
	maxBodyLimit = "64K"
)

// routeAliases maps the alternate spellings the game client and tooling use
// to the endpoint they are reported under.
var routeAliases = map[string]string{
	"/player/growid/checktoken": "/player/growid/checkToken",
	"/add-servers":              "/addlist",
	"/delete-servers":           "/deletelist",
}

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	if s.httpMetrics != nil {
		s.echo.Use(s.httpMetrics.Middleware())
	}
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderXRequestedWith,
			echo.HeaderContentType,
			echo.HeaderAccept,
		},
	}))
	s.echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: gzipLevel,
		Skipper: func(c echo.Context) bool {
			return c.Request().Header.Get("X-No-Compression") != ""
		},
	}))
	s.echo.Use(middleware.BodyLimit(maxBodyLimit))
	s.echo.Use(newRateLimiter(s.config.RateLimitPerSecond, s.config.RateLimitBurst))
	s.echo.Use(ErrorHandlingMiddleware())

	s.echo.GET("/", s.handleWelcome)

	s.registerHealthRoutes()
	s.registerPlayerRoutes()
	s.registerRegistryRoutes()
}

func (s *Server) handleWelcome(c echo.Context) error {
	if err := c.String(http.StatusOK, s.config.WelcomeText); err != nil {
		return fmt.Errorf("failed to write welcome response: %w", err)
	}
	return nil
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/health/")
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}
