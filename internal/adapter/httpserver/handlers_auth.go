package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/DoVri/Topps/internal/domain"
	apperrors "github.com/DoVri/Topps/internal/platform/errors"
	"github.com/DoVri/Topps/internal/token"
	"github.com/labstack/echo/v4"
)

const (
	validatePath = "/player/growid/login/validate"

	statusSuccess    = "success"
	accountValidated = "Account Validated."
	accountType      = "growtopia"
	accountAge       = 2
)

// accountResponse is the envelope the game client parses after validation
// and token refresh.
type accountResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Token       string `json:"token"`
	URL         string `json:"url"`
	AccountType string `json:"accountType"`
	AccountAge  int    `json:"accountAge"`
}

func (s *Server) registerPlayerRoutes() {
	s.echo.Any(dashboardPath, s.handleDashboard)
	s.echo.Any(validatePath, s.handleValidate)
	s.echo.Any("/player/growid/checkToken", s.handleCheckToken)
	s.echo.Any("/player/growid/checktoken", s.handleCheckToken)
	s.echo.GET("/player/logout", s.handleLogout)
}

// handleValidate accepts any GrowID/password pair. Both empty asks for a
// registration token and creates no session.
func (s *Server) handleValidate(c echo.Context) error {
	ctx := c.Request().Context()

	params, err := requestParams(c)
	if err != nil {
		s.loginMetrics.Validation("rejected")
		return err
	}

	cred := domain.Credential{
		Token:      params[token.KeyToken],
		GrowID:     strings.TrimSpace(params[token.KeyGrowID]),
		Password:   params[token.KeyPassword],
		ServerPort: strings.TrimSpace(params[token.KeyServerPort]),
	}

	if cred.ServerPort == "" {
		cred.ServerPort = strconv.Itoa(int(s.registry.Fallback().Port))
	} else if port, err := strconv.Atoi(cred.ServerPort); err != nil || !domain.ValidPort(port) {
		s.loginMetrics.Validation("rejected")
		return apperrors.ValidationError("invalid server_port").WithField("server_port", cred.ServerPort)
	}

	if cred.IsRegistration() {
		s.loginMetrics.Validation("registration")
		slog.InfoContext(ctx, "Registration token issued", "server_port", cred.ServerPort)
		return s.sendAccount(c, token.Encode(token.FromCredential(cred)))
	}

	if err := s.checkCredential(cred); err != nil {
		s.loginMetrics.Validation("rejected")
		return err
	}

	if _, err := s.startSession(c, cred.GrowID); err != nil {
		return apperrors.InternalError("failed to start session", err)
	}

	s.loginMetrics.Validation("ok")
	slog.InfoContext(ctx, "Player validated", "grow_id", cred.GrowID, "server_port", cred.ServerPort)
	return s.sendAccount(c, token.Encode(token.FromCredential(cred)))
}

func (s *Server) checkCredential(cred domain.Credential) error {
	minLen := max(s.config.CredentialMinLength, 1)

	switch {
	case cred.GrowID == "":
		return apperrors.ValidationError("growId is required")
	case cred.Password == "":
		return apperrors.ValidationError("password is required")
	case utf8.RuneCountInString(cred.GrowID) < minLen:
		return apperrors.ValidationError(fmt.Sprintf("growId must be at least %d characters", minLen)).
			WithField("min_length", minLen)
	case utf8.RuneCountInString(cred.Password) < minLen:
		return apperrors.ValidationError(fmt.Sprintf("password must be at least %d characters", minLen)).
			WithField("min_length", minLen)
	}
	return nil
}

// handleCheckToken re-issues a previously validated token with a fresh
// _token. Anything it cannot decode sends the client back to the dashboard.
func (s *Server) handleCheckToken(c echo.Context) error {
	ctx := c.Request().Context()

	params, err := requestParams(c)
	if err != nil {
		return s.redirectToDashboard(c, err)
	}

	fields, err := token.Decode(params["refreshToken"])
	if err == nil {
		err = token.Require(fields, token.KeyGrowID, token.KeyPassword)
	}
	if err != nil {
		return s.redirectToDashboard(c, err)
	}

	if clientData, ok := params["clientData"]; ok {
		fields = token.Refresh(fields, clientData)
	}

	cred := token.ToCredential(fields)
	s.loginMetrics.TokenRefresh("ok")
	slog.InfoContext(ctx, "Token refreshed", "grow_id", cred.GrowID, "server_port", cred.ServerPort)
	return s.sendAccount(c, token.Encode(fields))
}

func (s *Server) redirectToDashboard(c echo.Context, cause error) error {
	s.loginMetrics.TokenRefresh("redirect")
	slog.InfoContext(c.Request().Context(), "Token refresh rejected, redirecting to dashboard", "error", cause)
	if err := c.Redirect(http.StatusFound, dashboardPath); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) handleLogout(c echo.Context) error {
	if err := s.endSession(c); err != nil {
		slog.WarnContext(c.Request().Context(), "Logout could not clear session", "error", err)
	}
	s.loginMetrics.Logout()

	if err := c.Redirect(http.StatusFound, dashboardPath); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) sendAccount(c echo.Context, encoded string) error {
	resp := accountResponse{
		Status:      statusSuccess,
		Message:     accountValidated,
		Token:       encoded,
		URL:         "",
		AccountType: accountType,
		AccountAge:  accountAge,
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write account response: %w", err)
	}
	return nil
}
