package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/DoVri/Topps/internal/domain"
	apperrors "github.com/DoVri/Topps/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

type serverView struct {
	Name      string `json:"name"`
	Port      uint16 `json:"port"`
	Domain    string `json:"domain,omitempty"`
	Protected bool   `json:"protected"`
}

type serversResponse struct {
	Status  string       `json:"status"`
	Message string       `json:"message"`
	Servers []serverView `json:"servers"`
}

type serversErrorResponse struct {
	apperrors.ErrorResponse
	Servers []serverView `json:"servers"`
}

func (s *Server) registerRegistryRoutes() {
	s.echo.GET("/addlist", s.handleAddServer)
	s.echo.GET("/add-servers", s.handleAddServer)
	s.echo.GET("/deletelist", s.handleDeleteServer)
	s.echo.GET("/delete-servers", s.handleDeleteServer)
}

// handleAddServer reads name (or server), port and an optional domain (or add).
func (s *Server) handleAddServer(c echo.Context) error {
	name := firstNonEmpty(c.QueryParam("name"), c.QueryParam("server"))
	serverDomain := firstNonEmpty(c.QueryParam("domain"), c.QueryParam("add"))
	portParam := firstNonEmpty(c.QueryParam("port"))

	if name == "" || portParam == "" {
		return s.writeRegistryError(c, apperrors.ValidationError("Missing required parameters: name, port"))
	}
	port, err := strconv.Atoi(portParam)
	if err != nil {
		return s.writeRegistryError(c, apperrors.ValidationError("Invalid port number").WithField("port", portParam))
	}

	entry, err := s.registry.Add(c.Request().Context(), name, port, serverDomain)
	if err != nil {
		return s.writeRegistryError(c, err)
	}

	slog.InfoContext(c.Request().Context(), "Server added", "name", entry.Name, "port", entry.Port, "domain", entry.Domain)
	return s.writeServers(c, fmt.Sprintf("Server %s added successfully.", entry))
}

// handleDeleteServer removes the first entry matching every given field of
// name, port and domain (or remove).
func (s *Server) handleDeleteServer(c echo.Context) error {
	m := domain.Matcher{
		Domain: firstNonEmpty(c.QueryParam("domain"), c.QueryParam("remove")),
		Name:   firstNonEmpty(c.QueryParam("name")),
	}
	if portParam := firstNonEmpty(c.QueryParam("port")); portParam != "" {
		port, err := strconv.Atoi(portParam)
		if err != nil || !domain.ValidPort(port) {
			return s.writeRegistryError(c, apperrors.ValidationError("Invalid port number").WithField("port", portParam))
		}
		m.Port = port
	}

	removed, err := s.registry.Remove(c.Request().Context(), m)
	if err != nil {
		return s.writeRegistryError(c, err)
	}

	slog.InfoContext(c.Request().Context(), "Server deleted", "name", removed.Name, "port", removed.Port, "domain", removed.Domain)
	return s.writeServers(c, fmt.Sprintf("Server %s deleted successfully.", removed))
}

func (s *Server) writeServers(c echo.Context, message string) error {
	resp := serversResponse{
		Status:  statusSuccess,
		Message: message,
		Servers: s.serverViews(),
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to write servers response: %w", err)
	}
	return nil
}

// serverViews lists the registry, flagging the entries that cannot be removed.
func (s *Server) serverViews() []serverView {
	entries := s.registry.List()
	views := make([]serverView, 0, len(entries))
	for _, e := range entries {
		views = append(views, serverView{
			Name:      e.Name,
			Port:      e.Port,
			Domain:    e.Domain,
			Protected: s.registry.IsDefault(e),
		})
	}
	return views
}

// writeRegistryError answers like HandleError but also lists the current
// servers, as the registry endpoints always do.
func (s *Server) writeRegistryError(c echo.Context, err error) error {
	appErr := registryError(err)
	logError(c, appErr)

	resp := serversErrorResponse{
		ErrorResponse: appErr.ToResponse(),
		Servers:       s.serverViews(),
	}
	if err := c.JSON(appErr.HTTPStatus(), resp); err != nil {
		return fmt.Errorf("failed to write error response: %w", err)
	}
	return nil
}

func registryError(err error) *apperrors.Error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrInvalidPort):
		return apperrors.ValidationError("Invalid port number").WithField("reason", err.Error())
	case errors.Is(err, domain.ErrInvalidName):
		return apperrors.ValidationError("Server name is required")
	case errors.Is(err, domain.ErrEmptyMatcher):
		return apperrors.ValidationError("Missing required parameter: domain, name or port to identify the server")
	case errors.Is(err, domain.ErrPortInUse):
		return apperrors.ConflictError("Port already in use").WithField("reason", err.Error())
	case errors.Is(err, domain.ErrDuplicateName):
		return apperrors.ConflictError("Server name already in use").WithField("reason", err.Error())
	case errors.Is(err, domain.ErrServerNotFound):
		return apperrors.NotFoundError("Server matching criteria not found.")
	case errors.Is(err, domain.ErrProtectedDefault):
		return apperrors.ForbiddenError("Default servers cannot be removed").WithField("reason", err.Error())
	default:
		return apperrors.InternalError("internal server error", err)
	}
}
