package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	domainErrors "github.com/kauecavalcante/chef-de-geladeira/internal/domain/errors"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/repository"
	"github.com/kauecavalcante/chef-de-geladeira/internal/metrics"
	"github.com/kauecavalcante/chef-de-geladeira/internal/prompt"
	apperrors "github.com/kauecavalcante/chef-de-geladeira/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const normalizeCachePrefix = "chef:ingredient:normalized:"

// IngredientService runs the ingredient checks that precede generation.
type IngredientService struct {
	profiles *ProfileService
	users    repository.UserRepository
	llm      provider.LanguageModel
	prompts  *prompt.Catalogue
	cache    provider.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewIngredientService creates the service. cache may be nil.
func NewIngredientService(
	profiles *ProfileService,
	users repository.UserRepository,
	llm provider.LanguageModel,
	prompts *prompt.Catalogue,
	cache provider.Cache,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *IngredientService {
	return &IngredientService{
		profiles: profiles,
		users:    users,
		llm:      llm,
		prompts:  prompts,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// ValidateIngredients checks the ingredient list against each dietary
// preference concurrently. Only premium users are checked; everyone else gets
// an empty report. Preferences default to the stored ones. Ingredients the
// user saved as exceptions for a preference are not sent for that preference.
// The first model failure cancels the remaining checks and fails the call.
func (s *IngredientService) ValidateIngredients(ctx context.Context, userID, email, ingredients string, preferences []string) (*entity.ConflictReport, error) {
	record, err := s.profiles.EnsureProfile(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	report := &entity.ConflictReport{Conflicts: []entity.PreferenceConflict{}}
	if !record.IsPremium() {
		return report, nil
	}

	tags := NormalizePreferences(preferences)
	if len(preferences) == 0 {
		tags = record.DietaryPreferences
	}
	items := splitIngredients(ingredients)
	if len(tags) == 0 || len(items) == 0 {
		return report, nil
	}

	results := make([]entity.PreferenceConflict, len(tags))
	g, gctx := errgroup.WithContext(ctx)
	for i, tag := range tags {
		i, tag := i, tag
		candidates := withoutExceptions(items, record.IngredientExceptions, tag)
		results[i].Preference = tag
		if len(candidates) == 0 {
			continue
		}
		g.Go(func() error {
			conflicting, err := s.checkPreference(gctx, tag, candidates)
			if err != nil {
				return err
			}
			results[i].Ingredients = conflicting
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error("Ingredient validation failed",
			zap.String("user_id", userID),
			zap.Int("preferences", len(tags)),
			zap.Error(err))
		return nil, apperrors.NewAppError(apperrors.ErrUpstream, "Não foi possível validar os ingredientes.", fmt.Errorf("%w: %v", domainErrors.ErrUpstream, err))
	}

	for _, r := range results {
		if len(r.Ingredients) > 0 {
			report.Conflicts = append(report.Conflicts, r)
		}
	}
	report.Conflict = len(report.Conflicts) > 0
	return report, nil
}

func (s *IngredientService) checkPreference(ctx context.Context, tag entity.PreferenceTag, items []string) ([]string, error) {
	rendered, err := s.prompts.Render(prompt.ConflictCheck, prompt.ConflictCheckData{
		Preference:  string(tag),
		Ingredients: items,
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := s.llm.Complete(ctx, provider.CompletionRequest{
		System: rendered.System,
		Prompt: rendered.User,
		JSON:   true,
	})
	if err != nil {
		metrics.LLMRequestDuration.WithLabelValues(string(prompt.ConflictCheck), "error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("conflict check for %q: %w", tag, err)
	}
	metrics.LLMRequestDuration.WithLabelValues(string(prompt.ConflictCheck), "ok").Observe(time.Since(start).Seconds())

	var payload struct {
		ConflictingIngredients []string `json:"conflictingIngredients"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		s.logger.Warn("Unparseable conflict check response, assuming no conflict",
			zap.String("preference", string(tag)),
			zap.Error(err))
		return nil, nil
	}
	return payload.ConflictingIngredients, nil
}

func withoutExceptions(items []string, exceptions entity.IngredientExceptions, tag entity.PreferenceTag) []string {
	if len(exceptions[tag]) == 0 {
		return items
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !exceptions.Contains(tag, foldIngredient(item)) {
			out = append(out, item)
		}
	}
	return out
}

// FilterIngredients separates edible ingredients from other items.
func (s *IngredientService) FilterIngredients(ctx context.Context, ingredients string) (*entity.IngredientClassification, error) {
	rendered, err := s.prompts.Render(prompt.FilterIngredients, prompt.FilterData{Ingredients: strings.TrimSpace(ingredients)})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, err := s.llm.Complete(ctx, provider.CompletionRequest{
		System: rendered.System,
		Prompt: rendered.User,
		JSON:   true,
	})
	if err != nil {
		metrics.LLMRequestDuration.WithLabelValues(string(prompt.FilterIngredients), "error").Observe(time.Since(start).Seconds())
		s.logger.Error("Ingredient filter failed", zap.Error(err))
		return nil, apperrors.NewAppError(apperrors.ErrUpstream, "Erro ao filtrar ingredientes.", fmt.Errorf("%w: %v", domainErrors.ErrUpstream, err))
	}
	metrics.LLMRequestDuration.WithLabelValues(string(prompt.FilterIngredients), "ok").Observe(time.Since(start).Seconds())

	var payload struct {
		Edible    []string `json:"ingredientesComestiveis"`
		NonEdible []string `json:"itensNaoComestiveis"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrUpstream, "Erro ao filtrar ingredientes.", fmt.Errorf("%w: %v", domainErrors.ErrMalformedPayload, err))
	}

	result := &entity.IngredientClassification{Edible: payload.Edible, NonEdible: payload.NonEdible}
	if result.Edible == nil {
		result.Edible = []string{}
	}
	if result.NonEdible == nil {
		result.NonEdible = []string{}
	}
	return result, nil
}

// SaveException normalizes ingredient and stores it as compatible with
// preference. It returns the stored form.
func (s *IngredientService) SaveException(ctx context.Context, userID, email, preference, ingredient string) (string, error) {
	if _, err := s.profiles.EnsureProfile(ctx, userID, email); err != nil {
		return "", err
	}

	normalized := s.NormalizeIngredient(ctx, ingredient)
	if normalized == "" {
		return "", apperrors.NewValidationError("Ingrediente inválido.", map[string]string{"ingredient": "must not be empty"})
	}

	tag := entity.PreferenceTag(strings.TrimSpace(preference))
	if err := s.users.MergeIngredientException(ctx, userID, tag, normalized); err != nil {
		return "", fmt.Errorf("failed to save ingredient exception: %w", err)
	}

	s.logger.Info("Ingredient exception saved",
		zap.String("user_id", userID),
		zap.String("preference", string(tag)),
		zap.String("ingredient", normalized))
	return normalized, nil
}

// NormalizeIngredient returns the common lowercase, accent-free spelling of
// ingredient. The model is asked first; on failure the input is folded locally.
func (s *IngredientService) NormalizeIngredient(ctx context.Context, ingredient string) string {
	local := foldIngredient(ingredient)
	if local == "" {
		return ""
	}

	key := normalizeCachePrefix + hashKey(local)
	if s.cache != nil {
		if cached, ok, err := s.cache.Get(ctx, key); err != nil {
			s.logger.Warn("Normalization cache read failed", zap.Error(err))
		} else if ok {
			return cached
		}
	}

	rendered, err := s.prompts.Render(prompt.NormalizeIngredient, prompt.NormalizeData{Ingredient: strings.TrimSpace(ingredient)})
	if err != nil {
		return local
	}

	temperature := 0.0
	raw, err := s.llm.Complete(ctx, provider.CompletionRequest{
		System:      rendered.System,
		Prompt:      rendered.User,
		Temperature: &temperature,
		MaxTokens:   10,
	})
	if err != nil {
		s.logger.Warn("Ingredient normalization failed, using local form",
			zap.String("ingredient", ingredient),
			zap.Error(err))
		return local
	}

	normalized := foldIngredient(strings.Trim(strings.TrimSpace(raw), `"'.`))
	if normalized == "" {
		normalized = local
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, normalized, s.cacheTTL); err != nil {
			s.logger.Warn("Normalization cache write failed", zap.Error(err))
		}
	}
	return normalized
}

func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
