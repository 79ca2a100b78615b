package http

import (
	"context"
	"net/http"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	"github.com/kauecavalcante/chef-de-geladeira/internal/usecase"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RecipeGenerator is the recipe use case the handler depends on.
type RecipeGenerator interface {
	Generate(ctx context.Context, in usecase.GenerateRecipeInput) (*entity.Recipe, error)
	ListRecipes(ctx context.Context, userID, email string) ([]entity.Recipe, error)
}

type RecipeHandler struct {
	recipes RecipeGenerator
	logger  *zap.Logger
}

func NewRecipeHandler(recipes RecipeGenerator, logger *zap.Logger) *RecipeHandler {
	return &RecipeHandler{
		recipes: recipes,
		logger:  logger,
	}
}

type GenerateRecipeRequest struct {
	Ingredients        string   `json:"ingredients" validate:"required,max=1000"`
	Styles             []string `json:"styles" validate:"max=10,dive,max=50"`
	ConflictResolution string   `json:"conflictResolution" validate:"omitempty,oneof=assume_compliant suggest_alternatives ignore_preference save_exception"`
}

type ListRecipesResponse struct {
	Recipes []entity.Recipe `json:"recipes"`
}

// GenerateRecipe handles POST /api/v1/recipes.
func (h *RecipeHandler) GenerateRecipe(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req GenerateRecipeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	recipe, err := h.recipes.Generate(c.Request().Context(), usecase.GenerateRecipeInput{
		UserID:             user.UserID,
		Email:              user.Email,
		Ingredients:        req.Ingredients,
		Styles:             req.Styles,
		ConflictResolution: entity.ConflictResolution(req.ConflictResolution),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, recipe)
}

// ListRecipes handles GET /api/v1/recipes.
func (h *RecipeHandler) ListRecipes(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	recipes, err := h.recipes.ListRecipes(c.Request().Context(), user.UserID, user.Email)
	if err != nil {
		return err
	}
	if recipes == nil {
		recipes = []entity.Recipe{}
	}

	return c.JSON(http.StatusOK, ListRecipesResponse{Recipes: recipes})
}
