package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	domainErrors "github.com/kauecavalcante/chef-de-geladeira/internal/domain/errors"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/repository"
	"github.com/kauecavalcante/chef-de-geladeira/internal/metrics"
	"github.com/kauecavalcante/chef-de-geladeira/internal/prompt"
	apperrors "github.com/kauecavalcante/chef-de-geladeira/pkg/errors"
	"go.uber.org/zap"
)

// DefaultFreeHistoryLimit is how many recent recipes a free user can list.
const DefaultFreeHistoryLimit = 3

// GenerateRecipeInput is a recipe generation request.
type GenerateRecipeInput struct {
	UserID             string
	Email              string
	Ingredients        string
	Styles             []string
	ConflictResolution entity.ConflictResolution
}

// RecipeService generates recipes behind the entitlement gate and keeps the
// user's recipe history.
type RecipeService struct {
	profiles     *ProfileService
	gate         *EntitlementGate
	recipes      repository.RecipeRepository
	llm          provider.LanguageModel
	prompts      *prompt.Catalogue
	historyLimit int
	logger       *zap.Logger
	now          func() time.Time
}

func NewRecipeService(
	profiles *ProfileService,
	gate *EntitlementGate,
	recipes repository.RecipeRepository,
	llm provider.LanguageModel,
	prompts *prompt.Catalogue,
	historyLimit int,
	logger *zap.Logger,
) *RecipeService {
	if historyLimit <= 0 {
		historyLimit = DefaultFreeHistoryLimit
	}
	return &RecipeService{
		profiles:     profiles,
		gate:         gate,
		recipes:      recipes,
		llm:          llm,
		prompts:      prompts,
		historyLimit: historyLimit,
		logger:       logger,
		now:          time.Now,
	}
}

// Generate checks the entitlement, asks the model for a recipe, stores it and
// counts it against the free allowance. Nothing is counted when generation fails.
func (s *RecipeService) Generate(ctx context.Context, in GenerateRecipeInput) (*entity.Recipe, error) {
	record, err := s.profiles.EnsureProfile(ctx, in.UserID, in.Email)
	if err != nil {
		return nil, err
	}

	if err := s.gate.Check(ctx, record); err != nil {
		return nil, err
	}

	rendered, err := s.prompts.Render(prompt.Recipe, recipePromptData(record, in))
	if err != nil {
		return nil, fmt.Errorf("failed to build recipe prompt: %w", err)
	}

	start := time.Now()
	raw, err := s.llm.Complete(ctx, provider.CompletionRequest{
		System: rendered.System,
		Prompt: rendered.User,
		JSON:   true,
	})
	if err != nil {
		metrics.LLMRequestDuration.WithLabelValues(string(prompt.Recipe), "error").Observe(time.Since(start).Seconds())
		metrics.RecipesGeneratedTotal.WithLabelValues("upstream_error").Inc()
		s.logger.Error("Recipe generation failed",
			zap.String("user_id", in.UserID),
			zap.Error(err))
		return nil, apperrors.NewAppError(apperrors.ErrUpstream, "Não foi possível gerar a receita.", fmt.Errorf("%w: %v", domainErrors.ErrUpstream, err))
	}
	metrics.LLMRequestDuration.WithLabelValues(string(prompt.Recipe), "ok").Observe(time.Since(start).Seconds())

	recipe, err := parseRecipe(raw)
	if err != nil {
		metrics.RecipesGeneratedTotal.WithLabelValues("malformed").Inc()
		s.logger.Error("Model returned an unusable recipe",
			zap.String("user_id", in.UserID),
			zap.Int("response_length", len(raw)),
			zap.Error(err))
		return nil, apperrors.NewAppError(apperrors.ErrUpstream, "Não foi possível gerar a receita.", err)
	}

	recipe.ID = uuid.NewString()
	recipe.UserID = in.UserID
	recipe.CreatedAt = s.now().UTC()

	if err := s.recipes.Save(ctx, recipe); err != nil {
		metrics.RecipesGeneratedTotal.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("failed to save recipe: %w", err)
	}

	if err := s.gate.RecordGeneration(ctx, record); err != nil {
		// The recipe is already stored; the user keeps it.
		s.logger.Error("Failed to count recipe generation",
			zap.String("user_id", in.UserID),
			zap.String("recipe_id", recipe.ID),
			zap.Error(err))
	}

	metrics.RecipesGeneratedTotal.WithLabelValues("ok").Inc()
	s.logger.Info("Recipe generated",
		zap.String("user_id", in.UserID),
		zap.String("recipe_id", recipe.ID),
		zap.String("plan", string(record.Plan)),
		zap.Int("recipe_count", record.RecipeCount))

	return recipe, nil
}

// ListRecipes returns the user's history newest first, truncated for free users.
func (s *RecipeService) ListRecipes(ctx context.Context, userID, email string) ([]entity.Recipe, error) {
	record, err := s.profiles.EnsureProfile(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	limit := 0
	if !record.IsPremium() {
		limit = s.historyLimit
	}

	recipes, err := s.recipes.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, nil
}

// recipePromptData applies dietary preferences only for premium records, as
// read from the store, so a client cannot unlock personalization.
func recipePromptData(record *entity.UserSubscriptionRecord, in GenerateRecipeInput) prompt.RecipeData {
	data := prompt.RecipeData{
		Ingredients: strings.TrimSpace(in.Ingredients),
		Styles:      in.Styles,
	}

	if !record.IsPremium() || len(record.DietaryPreferences) == 0 {
		return data
	}

	switch in.ConflictResolution {
	case entity.ConflictResolutionIgnorePreference:
		return data
	case entity.ConflictResolutionAssumeCompliant, entity.ConflictResolutionSaveException:
		data.AssumeCompliant = true
	case entity.ConflictResolutionSuggestAlternatives:
		data.SuggestAlternatives = true
	}

	data.Preferences = make([]string, 0, len(record.DietaryPreferences))
	for _, p := range record.DietaryPreferences {
		data.Preferences = append(data.Preferences, string(p))
	}
	return data
}

type recipePayload struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Servings     flexString `json:"servings"`
	Time         flexString `json:"time"`
	Ingredients  []string   `json:"ingredients"`
	Instructions []string   `json:"instructions"`
	ImagePrompt  string     `json:"imagePrompt"`
}

func parseRecipe(raw string) (*entity.Recipe, error) {
	var payload recipePayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrMalformedPayload, err)
	}
	if strings.TrimSpace(payload.Title) == "" || len(payload.Ingredients) == 0 || len(payload.Instructions) == 0 {
		return nil, fmt.Errorf("%w: recipe is missing title, ingredients or instructions", domainErrors.ErrMalformedPayload)
	}

	return &entity.Recipe{
		Title:        strings.TrimSpace(payload.Title),
		Description:  payload.Description,
		Servings:     string(payload.Servings),
		Time:         string(payload.Time),
		Ingredients:  payload.Ingredients,
		Instructions: payload.Instructions,
		ImagePrompt:  payload.ImagePrompt,
	}, nil
}
