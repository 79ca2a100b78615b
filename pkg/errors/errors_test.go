package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestToHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"resource exhausted", NewAppError(ErrResourceExhausted, "limit reached", nil), http.StatusTooManyRequests, ErrResourceExhausted},
		{"upstream", NewAppError(ErrUpstream, "model failed", fmt.Errorf("boom")), http.StatusInternalServerError, ErrUpstream},
		{"wrapped not found", Wrap(NewAppError(ErrNotFound, "missing", nil), "portal"), http.StatusNotFound, ErrNotFound},
		{"plain error", fmt.Errorf("plain"), http.StatusInternalServerError, ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := ToHTTPError(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.Code)
			body, ok := httpErr.Message.(echo.Map)
			assert.True(t, ok)
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestValidationErrorDetails(t *testing.T) {
	err := NewValidationError("invalid request", map[string]string{"ingredients": "is required"})

	httpErr := ToHTTPError(err)

	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	body := httpErr.Message.(echo.Map)
	assert.Equal(t, map[string]string{"ingredients": "is required"}, body["details"])
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrNotFound, CodeOf(fmt.Errorf("outer: %w", NewAppError(ErrNotFound, "x", nil))))
	assert.Equal(t, ErrInternal, CodeOf(fmt.Errorf("plain")))
}

func TestLogError(t *testing.T) {
	t.Run("client fault is a warning carrying code and details", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		err := NewValidationError("invalid request", map[string]string{"ingredients": "required"})

		LogError(zap.New(core), err, "Request failed", zap.String("path", "/api/v1/recipes"))

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
		fields := entry.ContextMap()
		assert.Equal(t, ErrInvalidArgument, fields["code"])
		assert.Equal(t, "/api/v1/recipes", fields["path"])
		assert.Contains(t, fields, "details")
	})

	t.Run("plain error is logged as internal", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		LogError(zap.New(core), fmt.Errorf("connection refused"), "Webhook processing failed")

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, zapcore.ErrorLevel, entry.Level)
		assert.Equal(t, ErrInternal, entry.ContextMap()["code"])
		assert.NotContains(t, entry.ContextMap(), "details")
	})

	t.Run("nil error logs nothing", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)

		LogError(zap.New(core), nil, "unused")

		assert.Equal(t, 0, logs.Len())
	})
}
