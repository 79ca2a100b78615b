package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/model"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type recipeRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewRecipeRepository(db *gorm.DB, logger *zap.Logger) repository.RecipeRepository {
	return &recipeRepository{
		db:     db,
		logger: logger,
	}
}

func (r *recipeRepository) Save(ctx context.Context, recipe *entity.Recipe) error {
	id, err := uuid.Parse(recipe.ID)
	if err != nil {
		return fmt.Errorf("invalid recipe id %q: %w", recipe.ID, err)
	}

	m := &model.Recipe{
		ID:           id,
		UserID:       recipe.UserID,
		Title:        recipe.Title,
		Description:  recipe.Description,
		Servings:     recipe.Servings,
		Time:         recipe.Time,
		Ingredients:  datatypes.JSONSlice[string](recipe.Ingredients),
		Instructions: datatypes.JSONSlice[string](recipe.Instructions),
		ImagePrompt:  recipe.ImagePrompt,
		CreatedAt:    recipe.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		r.logger.Error("Failed to save recipe",
			zap.String("user_id", recipe.UserID),
			zap.String("recipe_id", recipe.ID),
			zap.Error(err))
		return err
	}
	return nil
}

func (r *recipeRepository) ListByUser(ctx context.Context, userID string, limit int) ([]entity.Recipe, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []model.Recipe
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	recipes := make([]entity.Recipe, 0, len(rows))
	for _, m := range rows {
		recipes = append(recipes, entity.Recipe{
			ID:           m.ID.String(),
			UserID:       m.UserID,
			Title:        m.Title,
			Description:  m.Description,
			Servings:     m.Servings,
			Time:         m.Time,
			Ingredients:  []string(m.Ingredients),
			Instructions: []string(m.Instructions),
			ImagePrompt:  m.ImagePrompt,
			CreatedAt:    m.CreatedAt,
		})
	}
	return recipes, nil
}
