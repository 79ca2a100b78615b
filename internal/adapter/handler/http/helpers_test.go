package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kauecavalcante/chef-de-geladeira/internal/middleware/auth"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testUserID = "firebase-uid-1"
	testEmail  = "cozinheiro@example.com"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(zap.NewNop())
	return e
}

// serve sends a request through e. When authenticated is set the request
// carries the test user the way the JWT middleware would leave it.
func serve(e *echo.Echo, method, path, body string, authenticated bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authenticated {
		req = req.WithContext(auth.WithUser(req.Context(), &auth.AuthUser{UserID: testUserID, Email: testEmail}))
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type echoRoutes struct {
	e *echo.Echo
}

func (r *echoRoutes) serve(method, path, body string, authenticated bool) *httptest.ResponseRecorder {
	return serve(r.e, method, path, body, authenticated)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
