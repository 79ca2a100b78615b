package http

import (
	"context"
	"net/http"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// IngredientChecker is the ingredient use case the handler depends on.
type IngredientChecker interface {
	ValidateIngredients(ctx context.Context, userID, email, ingredients string, preferences []string) (*entity.ConflictReport, error)
	FilterIngredients(ctx context.Context, ingredients string) (*entity.IngredientClassification, error)
	SaveException(ctx context.Context, userID, email, preference, ingredient string) (string, error)
}

type IngredientHandler struct {
	ingredients IngredientChecker
	logger      *zap.Logger
}

func NewIngredientHandler(ingredients IngredientChecker, logger *zap.Logger) *IngredientHandler {
	return &IngredientHandler{
		ingredients: ingredients,
		logger:      logger,
	}
}

type ValidateIngredientsRequest struct {
	Ingredients string   `json:"ingredients" validate:"required,max=1000"`
	Preferences []string `json:"preferences" validate:"max=20,dive,max=50"`
}

type FilterIngredientsRequest struct {
	Ingredients string `json:"ingredients" validate:"required,max=1000"`
}

type SaveExceptionRequest struct {
	Preference string `json:"preference" validate:"required,max=50"`
	Ingredient string `json:"ingredient" validate:"required,max=100"`
}

type SaveExceptionResponse struct {
	Preference string `json:"preference"`
	Ingredient string `json:"ingredient"`
}

// ValidateIngredients handles POST /api/v1/ingredients/validate.
func (h *IngredientHandler) ValidateIngredients(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req ValidateIngredientsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	report, err := h.ingredients.ValidateIngredients(c.Request().Context(), user.UserID, user.Email, req.Ingredients, req.Preferences)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report)
}

// FilterIngredients handles POST /api/v1/ingredients/filter. It is public and
// rate limited per client IP.
func (h *IngredientHandler) FilterIngredients(c echo.Context) error {
	var req FilterIngredientsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.ingredients.FilterIngredients(c.Request().Context(), req.Ingredients)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// SaveException handles POST /api/v1/ingredients/exceptions.
func (h *IngredientHandler) SaveException(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req SaveExceptionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	stored, err := h.ingredients.SaveException(c.Request().Context(), user.UserID, user.Email, req.Preference, req.Ingredient)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, SaveExceptionResponse{
		Preference: req.Preference,
		Ingredient: stored,
	})
}
