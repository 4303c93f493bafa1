package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/DoVri/Topps/internal/domain"
	"github.com/DoVri/Topps/internal/platform/config"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

// The cookie only carries the session ID; the record lives in the session store.
const (
	sessionName  = "topps-session"
	sessionKeyID = "sid"
)

func setupCookieStore(cfg *config.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// cookieSession returns the decoded cookie, or a fresh one if it is missing or
// fails verification.
func (s *Server) cookieSession(c echo.Context) *sessions.Session {
	cookie, err := s.cookieStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.DebugContext(c.Request().Context(), "Discarding unreadable session cookie", "error", err)
	}
	return cookie
}

// currentSession resolves the request's cookie to a live session.
func (s *Server) currentSession(c echo.Context) (domain.Session, bool) {
	sid, ok := s.cookieSession(c).Values[sessionKeyID].(string)
	if !ok || sid == "" {
		return domain.Session{}, false
	}

	sess, err := s.sessions.Lookup(c.Request().Context(), sid)
	if err != nil {
		if !errors.Is(err, domain.ErrSessionNotFound) && !errors.Is(err, domain.ErrSessionExpired) {
			slog.WarnContext(c.Request().Context(), "Session lookup failed", "error", err)
		}
		return domain.Session{}, false
	}
	return sess, true
}

// startSession destroys any session the client already holds and issues a
// new one for growID.
func (s *Server) startSession(c echo.Context, growID string) (domain.Session, error) {
	ctx := c.Request().Context()
	cookie := s.cookieSession(c)

	if old, ok := cookie.Values[sessionKeyID].(string); ok && old != "" {
		if err := s.sessions.Destroy(ctx, old); err != nil {
			slog.WarnContext(ctx, "Failed to destroy previous session", "error", err)
		}
	}

	sess, err := s.sessions.Create(ctx, growID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to create session: %w", err)
	}

	cookie.Values[sessionKeyID] = sess.ID
	if err := cookie.Save(c.Request(), c.Response()); err != nil {
		_ = s.sessions.Destroy(ctx, sess.ID)
		return domain.Session{}, fmt.Errorf("failed to save session cookie: %w", err)
	}
	return sess, nil
}

// endSession expires the cookie and destroys the server-side session. The
// cookie is expired even when the store cannot be reached.
func (s *Server) endSession(c echo.Context) error {
	ctx := c.Request().Context()
	cookie := s.cookieSession(c)

	sid, _ := cookie.Values[sessionKeyID].(string)

	delete(cookie.Values, sessionKeyID)
	cookie.Options.MaxAge = -1
	if err := cookie.Save(c.Request(), c.Response()); err != nil {
		return fmt.Errorf("failed to expire session cookie: %w", err)
	}

	if sid != "" {
		if err := s.sessions.Destroy(ctx, sid); err != nil {
			return fmt.Errorf("failed to destroy session: %w", err)
		}
	}
	return nil
}
