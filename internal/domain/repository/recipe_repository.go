package repository

import (
	"context"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
)

// RecipeRepository persists generated recipes.
type RecipeRepository interface {
	Save(ctx context.Context, recipe *entity.Recipe) error
	// ListByUser returns the user's recipes newest first. limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]entity.Recipe, error)
}
