package http

import (
	"context"
	"net/http"

	"github.com/kauecavalcante/chef-de-geladeira/internal/usecase"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ProfileManager is the profile use case the handler depends on.
type ProfileManager interface {
	GetProfile(ctx context.Context, userID, email string) (*usecase.ProfileView, error)
	UpdateProfile(ctx context.Context, userID, email string, displayName *string, preferences []string) error
	UpdatePreferences(ctx context.Context, userID, email string, preferences []string) error
}

type ProfileHandler struct {
	profiles ProfileManager
	logger   *zap.Logger
}

func NewProfileHandler(profiles ProfileManager, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profiles: profiles,
		logger:   logger,
	}
}

// UpdateProfileRequest leaves a field nil when the client omitted it.
type UpdateProfileRequest struct {
	DisplayName        *string  `json:"displayName" validate:"omitempty,max=100"`
	DietaryPreferences []string `json:"dietaryPreferences" validate:"omitempty,max=20,dive,max=50"`
}

type UpdatePreferencesRequest struct {
	DietaryPreferences []string `json:"dietaryPreferences" validate:"max=20,dive,max=50"`
}

// GetProfile handles GET /api/v1/profile.
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	view, err := h.profiles.GetProfile(c.Request().Context(), user.UserID, user.Email)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, view)
}

// UpdateProfile handles PUT /api/v1/profile.
func (h *ProfileHandler) UpdateProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.profiles.UpdateProfile(c.Request().Context(), user.UserID, user.Email, req.DisplayName, req.DietaryPreferences); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// UpdatePreferences handles PUT /api/v1/profile/preferences.
func (h *ProfileHandler) UpdatePreferences(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req UpdatePreferencesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.profiles.UpdatePreferences(c.Request().Context(), user.UserID, user.Email, req.DietaryPreferences); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
