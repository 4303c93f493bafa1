package httpserver

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DoVri/Topps/internal/domain"
	"github.com/DoVri/Topps/internal/platform/config"
	"github.com/DoVri/Topps/internal/registry"
	"github.com/DoVri/Topps/internal/session"
	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockRegistry struct {
	addFn     func(ctx context.Context, name string, port int, serverDomain string) (domain.ServerEntry, error)
	removeFn  func(ctx context.Context, m domain.Matcher) (domain.ServerEntry, error)
	listFn    func() []domain.ServerEntry
	resolveFn func(host string) domain.ServerEntry
}

var mockFallback = domain.ServerEntry{Name: "MazdaPS", Port: 17091, Domain: "mazda.privates.icu"}

func (m *mockRegistry) Add(ctx context.Context, name string, port int, serverDomain string) (domain.ServerEntry, error) {
	if m.addFn != nil {
		return m.addFn(ctx, name, port, serverDomain)
	}
	return domain.ServerEntry{}, errors.New("not implemented")
}

func (m *mockRegistry) Remove(ctx context.Context, matcher domain.Matcher) (domain.ServerEntry, error) {
	if m.removeFn != nil {
		return m.removeFn(ctx, matcher)
	}
	return domain.ServerEntry{}, errors.New("not implemented")
}

func (m *mockRegistry) List() []domain.ServerEntry {
	if m.listFn != nil {
		return m.listFn()
	}
	return []domain.ServerEntry{mockFallback}
}

func (m *mockRegistry) ResolveByHost(host string) domain.ServerEntry {
	if m.resolveFn != nil {
		return m.resolveFn(host)
	}
	return mockFallback
}

func (m *mockRegistry) Fallback() domain.ServerEntry {
	return mockFallback
}

func (m *mockRegistry) IsDefault(e domain.ServerEntry) bool {
	return e == mockFallback
}

type mockSessionStore struct {
	createFn  func(ctx context.Context, growID string) (domain.Session, error)
	lookupFn  func(ctx context.Context, id string) (domain.Session, error)
	destroyFn func(ctx context.Context, id string) error
}

func (m *mockSessionStore) Create(ctx context.Context, growID string) (domain.Session, error) {
	if m.createFn != nil {
		return m.createFn(ctx, growID)
	}
	return domain.Session{}, errors.New("not implemented")
}

func (m *mockSessionStore) Lookup(ctx context.Context, id string) (domain.Session, error) {
	if m.lookupFn != nil {
		return m.lookupFn(ctx, id)
	}
	return domain.Session{}, domain.ErrSessionNotFound
}

func (m *mockSessionStore) Destroy(ctx context.Context, id string) error {
	if m.destroyFn != nil {
		return m.destroyFn(ctx, id)
	}
	return nil
}

// --- Test helpers ---

var testDefaults = []domain.ServerEntry{
	{Name: "MazdaPS", Port: 17091, Domain: "mazda.privates.icu"},
	{Name: "RunPS", Port: 17092, Domain: "runps.privates.icu"},
}

type testEnv struct {
	srv      *Server
	registry *registry.Registry
	sessions *session.MemoryStore
	clock    *clockwork.FakeClock
}

func newTestConfig() *config.Config {
	return &config.Config{
		AppEnv:              "test",
		Port:                "5000",
		SessionSecret:       "test-secret-key-32-bytes-long!!!",
		SessionMaxAge:       time.Hour,
		CredentialMinLength: 1,
		WelcomeText:         "Welcome to MazdaPS Multi-Server Login URL!",
	}
}

// newTestEnv builds a server on a real registry and an in-memory session
// store driven by a fake clock.
func newTestEnv(t *testing.T, opts ...func(*Server)) *testEnv {
	t.Helper()

	reg, err := registry.New(testDefaults)
	require.NoError(t, err)
	clock := clockwork.NewFakeClock()
	store := session.NewMemoryStore(time.Hour, clock)

	srv := newTestServer(t, reg, store, opts...)
	return &testEnv{srv: srv, registry: reg, sessions: store, clock: clock}
}

func newTestServer(t *testing.T, reg serverRegistry, store domain.SessionStore, opts ...func(*Server)) *Server {
	t.Helper()

	tmpl := template.Must(template.New("dashboard.html").Parse(
		`Dashboard {{.State}} {{.ServerName}} {{.GrowID}}{{range .Servers}} [{{.Name}}:{{.Port}}]{{end}}`))

	cfg := newTestConfig()
	cookieStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	cookieStore.Options = &sessions.Options{
		Path:   "/",
		MaxAge: 3600,
	}

	srv := &Server{
		echo:        echo.New(),
		config:      cfg,
		registry:    reg,
		sessions:    store,
		templates:   tmpl,
		cookieStore: cookieStore,
		startTime:   time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

func withConfig(mutate func(*config.Config)) func(*Server) {
	return func(s *Server) {
		mutate(s.config)
	}
}

// serve runs req through the full middleware stack.
func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

// withCookies copies the cookies set on rec onto req.
func withCookies(req *http.Request, rec *httptest.ResponseRecorder) *http.Request {
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionName {
			return c
		}
	}
	return nil
}
