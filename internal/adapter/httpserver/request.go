package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/DoVri/Topps/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

const maxBodyBytes = 64 << 10

// requestParams merges the query string with a form or JSON body. Body values
// win over query values; repeated keys keep their first value.
func requestParams(c echo.Context) (map[string]string, error) {
	params := make(map[string]string)
	for k, v := range c.QueryParams() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	ctype := c.Request().Header.Get(echo.HeaderContentType)
	switch {
	case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
		body, err := readBody(c)
		if err != nil {
			return nil, err
		}
		if len(strings.TrimSpace(body)) == 0 {
			return params, nil
		}
		var raw map[string]any
		if err := json.Unmarshal([]byte(body), &raw); err != nil {
			return nil, apperrors.ValidationError("invalid JSON body")
		}
		for k, v := range raw {
			params[k] = jsonString(v)
		}

	case strings.HasPrefix(ctype, echo.MIMEApplicationForm), strings.HasPrefix(ctype, echo.MIMEMultipartForm):
		form, err := c.FormParams()
		if err != nil {
			return nil, apperrors.ValidationError("invalid form body")
		}
		for k, v := range form {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
	}
	return params, nil
}

func readBody(c echo.Context) (string, error) {
	if c.Request().Body == nil {
		return "", nil
	}
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read request body: %w", err)
	}
	return string(data), nil
}

// rawDashboardBody returns the client's delimited body. The client posts it
// as form-urlencoded, so it is unescaped when it decodes cleanly.
func rawDashboardBody(c echo.Context) string {
	body, err := readBody(c)
	if err != nil {
		return ""
	}
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationForm) {
		if unescaped, err := url.QueryUnescape(body); err == nil {
			body = unescaped
		}
	}
	return body
}

func jsonString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
