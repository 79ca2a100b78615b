package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// AttemptRecorder records an invalid request in the background.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, userID string)
}

type AbuseHandler struct {
	recorder AttemptRecorder
}

func NewAbuseHandler(recorder AttemptRecorder) *AbuseHandler {
	return &AbuseHandler{recorder: recorder}
}

// ReportInvalidRequest handles POST /api/v1/abuse-reports. The response does
// not depend on whether the update succeeds.
func (h *AbuseHandler) ReportInvalidRequest(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	h.recorder.RecordAttempt(c.Request().Context(), user.UserID)

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
