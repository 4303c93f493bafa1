package httpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DoVri/Topps/internal/domain"
	"github.com/DoVri/Topps/internal/platform/config"
	"github.com/DoVri/Topps/internal/token"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAccount(t *testing.T, rec *httptest.ResponseRecorder) accountResponse {
	t.Helper()
	var resp accountResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodedToken(t *testing.T, encoded string) string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	return string(raw)
}

func TestValidate_Success(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.srv, formRequest(http.MethodPost, validatePath, url.Values{
		"_token":      {"abc"},
		"growId":      {"Tester"},
		"password":    {"pass1"},
		"server_port": {"17092"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeAccount(t, rec)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "Account Validated.", resp.Message)
	assert.Equal(t, "", resp.URL)
	assert.Equal(t, "growtopia", resp.AccountType)
	assert.Equal(t, 2, resp.AccountAge)
	assert.Equal(t, "_token=abc&growId=Tester&password=pass1&server_port=17092", decodedToken(t, resp.Token))

	require.NotNil(t, sessionCookie(rec))
}

func TestValidate_JSONBody(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.srv, jsonRequest(http.MethodPost, validatePath, `{"growId":"Tester","password":"pass1"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	tok := decodedToken(t, decodeAccount(t, rec).Token)
	assert.Contains(t, tok, "growId=Tester&password=pass1")
	assert.Contains(t, tok, "server_port=17091", "defaults to the fallback server")
}

func TestValidate_NumericServerPortInJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.srv, jsonRequest(http.MethodPost, validatePath, `{"growId":"Tester","password":"pass1","server_port":17092}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodedToken(t, decodeAccount(t, rec).Token), "server_port=17092")
}

func TestValidate_QueryFallback(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.srv, httptest.NewRequest(http.MethodGet, validatePath+"?growId=Tester&password=pass1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodedToken(t, decodeAccount(t, rec).Token), "growId=Tester&password=pass1")
}

func TestValidate_EmptyPassword(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.srv, jsonRequest(http.MethodPost, validatePath, `{"growId":"Tester","password":""}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp["status"])
	assert.Equal(t, "password is required", resp["message"])
	assert.Nil(t, sessionCookie(rec))
	assert.Equal(t, 0, env.sessions.Len())
}

func TestValidate_EmptyGrowID(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.srv, jsonRequest(http.MethodPost, validatePath, `{"growId":" ","password":"pass1"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "growId is required")
}

func TestValidate_MinLength(t *testing.T) {
	env := newTestEnv(t, withConfig(func(cfg *config.Config) { cfg.CredentialMinLength = 4 }))

	rec := serve(env.srv, jsonRequest(http.MethodPost, validatePath, `{"growId":"Tes","password":"pass1"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "growId must be at least 4 characters")

	rec = serve(env.srv, jsonRequest(http.MethodPost, validatePath, `{"growId":"Tester","password":"abc"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "password must be at least 4 characters")

	rec = serve(env.srv, jsonRequest(http.MethodPost, validatePath, `{"growId":"Test","password":"abcd"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestValidate_Registration(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.srv, formRequest(http.MethodPost, validatePath, url.Values{"_token": {"xyz"}}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeAccount(t, rec)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "_token=xyz&growId=&password=&server_port=17091", decodedToken(t, resp.Token))
	assert.Nil(t, sessionCookie(rec))
	assert.Equal(t, 0, env.sessions.Len())
}

func TestValidate_InvalidServerPort(t *testing.T) {
	env := newTestEnv(t)

	for _, port := range []string{"abc", "0", "70000"} {
		t.Run(port, func(t *testing.T) {
			rec := serve(env.srv, formRequest(http.MethodPost, validatePath, url.Values{
				"growId": {"Tester"}, "password": {"pass1"}, "server_port": {port},
			}))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "invalid server_port")
		})
	}
}

func TestValidate_MalformedJSON(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.srv, jsonRequest(http.MethodPost, validatePath, `{"growId":`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON body")
}

func TestValidate_RotatesSession(t *testing.T) {
	env := newTestEnv(t)
	form := url.Values{"growId": {"Tester"}, "password": {"pass1"}}

	first := serve(env.srv, formRequest(http.MethodPost, validatePath, form))
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, 1, env.sessions.Len())

	second := serve(env.srv, withCookies(formRequest(http.MethodPost, validatePath, form), first))
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, 1, env.sessions.Len(), "the previous session is destroyed")
	assert.NotEqual(t, sessionCookie(first).Value, sessionCookie(second).Value)
}

func TestValidate_SessionStoreFailure(t *testing.T) {
	store := &mockSessionStore{
		createFn: func(context.Context, string) (domain.Session, error) {
			return domain.Session{}, errors.New("redis down")
		},
	}
	srv := newTestServer(t, &mockRegistry{}, store)

	rec := serve(srv, jsonRequest(http.MethodPost, validatePath, `{"growId":"Tester","password":"pass1"}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"internal"`)
	assert.NotContains(t, rec.Body.String(), "redis down")
}

func TestCheckToken_RefreshesToken(t *testing.T) {
	env := newTestEnv(t)
	original := token.Encode(token.NewFields(
		token.KeyToken, "old",
		token.KeyGrowID, "Tester",
		token.KeyPassword, "pass1",
		token.KeyServerPort, "17091",
	))

	rec := serve(env.srv, formRequest(http.MethodPost, "/player/growid/checkToken", url.Values{
		"refreshToken": {original},
		"clientData":   {"client-data"},
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeAccount(t, rec)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 2, resp.AccountAge)

	fields, err := token.Decode(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("client-data")), fields.Get(token.KeyToken))
	assert.Equal(t, "Tester", fields.Get(token.KeyGrowID))
	assert.Equal(t, "pass1", fields.Get(token.KeyPassword))
	assert.Equal(t, []string{token.KeyToken, token.KeyGrowID, token.KeyPassword, token.KeyServerPort}, fields.Keys())
}

func TestCheckToken_WithoutClientDataKeepsToken(t *testing.T) {
	env := newTestEnv(t)
	original := token.Encode(token.NewFields(token.KeyGrowID, "Tester", token.KeyPassword, "pass1"))

	rec := serve(env.srv, jsonRequest(http.MethodPost, "/player/growid/checktoken", `{"refreshToken":"`+original+`"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, original, decodeAccount(t, rec).Token)
}

func TestCheckToken_UnescapedPlusInFormBody(t *testing.T) {
	env := newTestEnv(t)
	issued := token.Encode(token.NewFields(
		token.KeyGrowID, "Tester",
		token.KeyPassword, "pass>>>",
		token.KeyServerPort, "17091",
	))
	require.Contains(t, issued, "+")

	req := httptest.NewRequest(http.MethodPost, "/player/growid/checkToken",
		strings.NewReader("refreshToken="+issued+"&clientData=abc"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := serve(env.srv, req)

	require.Equal(t, http.StatusOK, rec.Code)
	fields, err := token.Decode(decodeAccount(t, rec).Token)
	require.NoError(t, err)
	assert.Equal(t, "Tester", fields.Get(token.KeyGrowID))
	assert.Equal(t, "pass>>>", fields.Get(token.KeyPassword))
}

func TestCheckToken_RedirectsOnBadToken(t *testing.T) {
	env := newTestEnv(t)

	tests := map[string]string{
		"missing":        "",
		"not base64":     "!!!not-base64!!!",
		"missing fields": base64.StdEncoding.EncodeToString([]byte("growId=Tester")),
	}
	for name, refreshToken := range tests {
		t.Run(name, func(t *testing.T) {
			rec := serve(env.srv, formRequest(http.MethodPost, "/player/growid/checkToken", url.Values{
				"refreshToken": {refreshToken},
			}))
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, dashboardPath, rec.Header().Get("Location"))
		})
	}
}

func TestLogout_DestroysSession(t *testing.T) {
	env := newTestEnv(t)

	login := serve(env.srv, jsonRequest(http.MethodPost, validatePath, `{"growId":"Tester","password":"pass1"}`))
	require.Equal(t, http.StatusOK, login.Code)
	require.Equal(t, 1, env.sessions.Len())

	rec := serve(env.srv, withCookies(httptest.NewRequest(http.MethodGet, "/player/logout", nil), login))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, dashboardPath, rec.Header().Get("Location"))
	assert.Equal(t, 0, env.sessions.Len())
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestLogout_ExpiresCookieWhenStoreFails(t *testing.T) {
	destroyed := 0
	store := &mockSessionStore{
		createFn: func(_ context.Context, growID string) (domain.Session, error) {
			return domain.Session{ID: "sid-1", GrowID: growID, LoggedIn: true}, nil
		},
		destroyFn: func(context.Context, string) error {
			destroyed++
			return errors.New("redis down")
		},
	}
	srv := newTestServer(t, &mockRegistry{}, store)

	login := serve(srv, jsonRequest(http.MethodPost, validatePath, `{"growId":"Tester","password":"pass1"}`))
	require.Equal(t, http.StatusOK, login.Code)

	rec := serve(srv, withCookies(httptest.NewRequest(http.MethodGet, "/player/logout", nil), login))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, 1, destroyed)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestLogout_WithoutSession(t *testing.T) {
	env := newTestEnv(t)

	rec := serve(env.srv, httptest.NewRequest(http.MethodGet, "/player/logout", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestSession_ExpiresAfterTTL(t *testing.T) {
	env := newTestEnv(t)

	login := serve(env.srv, jsonRequest(http.MethodPost, validatePath, `{"growId":"Tester","password":"pass1"}`))
	require.Equal(t, http.StatusOK, login.Code)

	req := withCookies(httptest.NewRequest(http.MethodGet, dashboardPath+"?format=json", nil), login)
	assert.Contains(t, serve(env.srv, req).Body.String(), `"state":"authenticated"`)

	env.clock.Advance(time.Hour)
	req = withCookies(httptest.NewRequest(http.MethodGet, dashboardPath+"?format=json", nil), login)
	assert.Contains(t, serve(env.srv, req).Body.String(), `"state":"anonymous"`)
}
