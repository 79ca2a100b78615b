package http

import (
	"errors"
	"net/http"

	"github.com/kauecavalcante/chef-de-geladeira/internal/middleware/auth"
	apperrors "github.com/kauecavalcante/chef-de-geladeira/pkg/errors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// bindAndValidate decodes the request body into req and runs the echo validator.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) && httpErr.Code == http.StatusRequestEntityTooLarge {
			return err
		}
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "Corpo da requisição inválido.", err)
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

// currentUser returns the user set by the JWT middleware.
func currentUser(c echo.Context) (*auth.AuthUser, error) {
	user, err := auth.GetUserFromContext(c)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrUnauthenticated, "Não autorizado.", err)
	}
	return user, nil
}

// NewHTTPErrorHandler renders every handler error as {"error", "code", "details"}.
// Server-side failures are logged with their internal cause.
func NewHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		httpErr := apperrors.ToHTTPError(err)
		if httpErr.Code >= http.StatusInternalServerError {
			apperrors.LogError(logger, err, "Request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", httpErr.Code))
		}

		body := httpErr.Message
		if msg, ok := body.(string); ok {
			body = echo.Map{"error": msg, "code": apperrors.CodeOf(apperrors.FromHTTPError(httpErr))}
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(httpErr.Code)
		} else {
			writeErr = c.JSON(httpErr.Code, body)
		}
		if writeErr != nil {
			logger.Error("Failed to write error response", zap.Error(writeErr))
		}
	}
}
