package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/DoVri/Topps/internal/domain"
	"github.com/DoVri/Topps/internal/token"
	"github.com/labstack/echo/v4"
)

const dashboardPath = "/player/login/dashboard"

// Login states shown by the dashboard.
const (
	stateAnonymous       = "anonymous"
	statePendingValidate = "pending_validate"
	stateAuthenticated   = "authenticated"
)

type dashboardData struct {
	State       string
	GrowID      string
	ServerName  string
	ServerPort  uint16
	Servers     []domain.ServerEntry
	Fields      map[string]string
	ValidateURL string
}

type dashboardResponse struct {
	State      string `json:"state"`
	LoggedIn   bool   `json:"loggedIn"`
	GrowID     string `json:"growId"`
	ServerName string `json:"serverName"`
}

func (s *Server) handleDashboard(c echo.Context) error {
	fields := token.ParseBody(rawDashboardBody(c))
	growID, password := token.BodyCredentials(fields)
	server := s.registry.ResolveByHost(c.Request().Host)

	state := stateAnonymous
	if sess, ok := s.currentSession(c); ok {
		state = stateAuthenticated
		growID = sess.GrowID
	} else if growID != "" && password != "" {
		state = statePendingValidate
	}

	if wantsJSON(c) {
		resp := dashboardResponse{
			State:      state,
			LoggedIn:   state == stateAuthenticated,
			GrowID:     growID,
			ServerName: server.Name,
		}
		if err := c.JSON(http.StatusOK, resp); err != nil {
			return fmt.Errorf("failed to write dashboard response: %w", err)
		}
		return nil
	}

	return s.renderTemplate(c, "dashboard.html", dashboardData{
		State:       state,
		GrowID:      growID,
		ServerName:  server.Name,
		ServerPort:  server.Port,
		Servers:     s.registry.List(),
		Fields:      fields.Map(),
		ValidateURL: validatePath,
	})
}

func wantsJSON(c echo.Context) bool {
	if c.QueryParam("format") == "json" {
		return true
	}
	return strings.Contains(c.Request().Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}
