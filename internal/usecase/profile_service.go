package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	domainErrors "github.com/kauecavalcante/chef-de-geladeira/internal/domain/errors"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/repository"
	apperrors "github.com/kauecavalcante/chef-de-geladeira/pkg/errors"
	"go.uber.org/zap"
)

// ProfileView is the profile returned to the client.
type ProfileView struct {
	UserID               string                      `json:"userId"`
	Email                string                      `json:"email"`
	DisplayName          string                      `json:"displayName"`
	Plan                 entity.Plan                 `json:"plan"`
	SubscriptionStatus   entity.SubscriptionStatus   `json:"subscriptionStatus"`
	SubscriptionCancelAt *time.Time                  `json:"subscriptionCancelAt,omitempty"`
	SubscriptionProvider entity.PaymentProvider      `json:"subscriptionProvider,omitempty"`
	HasBillingPortal     bool                        `json:"hasBillingPortal"`
	RecipeCount          int                         `json:"recipeCount"`
	MonthlyLimit         int                         `json:"monthlyLimit"`
	// RemainingRecipes is -1 for unlimited plans.
	RemainingRecipes     int                         `json:"remainingRecipes"`
	DietaryPreferences   []entity.PreferenceTag      `json:"dietaryPreferences"`
	IngredientExceptions entity.IngredientExceptions `json:"ingredientExceptions"`
}

// ProfileService manages the user-editable part of the subscription record.
type ProfileService struct {
	users  repository.UserRepository
	gate   *EntitlementGate
	logger *zap.Logger
	now    func() time.Time
}

func NewProfileService(users repository.UserRepository, gate *EntitlementGate, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		users:  users,
		gate:   gate,
		logger: logger,
		now:    time.Now,
	}
}

// EnsureProfile returns the user's record, creating it with free plan defaults
// the first time the user is seen.
func (s *ProfileService) EnsureProfile(ctx context.Context, userID, email string) (*entity.UserSubscriptionRecord, error) {
	record, err := s.users.GetByID(ctx, userID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, domainErrors.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	record = entity.NewUserSubscriptionRecord(userID, email, s.now())
	if err := s.users.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User profile created", zap.String("user_id", userID))

	// Create is a no-op when a concurrent request won the insert; read back the stored row.
	stored, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created user: %w", err)
	}
	return stored, nil
}

// GetProfile returns the profile view without mutating the record.
func (s *ProfileService) GetProfile(ctx context.Context, userID, email string) (*ProfileView, error) {
	record, err := s.EnsureProfile(ctx, userID, email)
	if err != nil {
		return nil, err
	}

	providerName, _ := record.ActiveSubscriptionRef()
	count := record.RecipeCount
	if record.NeedsMonthlyReset(s.now()) {
		count = 0
	}

	view := &ProfileView{
		UserID:               record.UserID,
		Email:                record.Email,
		DisplayName:          record.DisplayName,
		Plan:                 record.Plan,
		SubscriptionStatus:   record.SubscriptionStatus,
		SubscriptionCancelAt: record.SubscriptionCancelAt,
		SubscriptionProvider: providerName,
		HasBillingPortal:     record.StripeCustomerRef != "",
		RecipeCount:          count,
		MonthlyLimit:         s.gate.FreeLimit(),
		RemainingRecipes:     s.gate.Remaining(record),
		DietaryPreferences:   record.DietaryPreferences,
		IngredientExceptions: record.IngredientExceptions,
	}
	if record.IsPremium() {
		view.MonthlyLimit = -1
	}
	return view, nil
}

// UpdateProfile changes the display name and/or dietary preferences. At least
// one of them must be given.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID, email string, displayName *string, preferences []string) error {
	if displayName == nil && preferences == nil {
		return apperrors.NewValidationError("Nenhum dado para atualizar.", map[string]string{
			"displayName": "displayName or dietaryPreferences is required",
		})
	}

	if _, err := s.EnsureProfile(ctx, userID, email); err != nil {
		return err
	}

	update := repository.ProfileUpdate{}
	if displayName != nil {
		name := strings.TrimSpace(*displayName)
		update.DisplayName = &name
	}
	if preferences != nil {
		tags := NormalizePreferences(preferences)
		update.DietaryPreferences = &tags
	}

	if err := s.users.UpdateProfile(ctx, userID, update); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.Info("User profile updated",
		zap.String("user_id", userID),
		zap.Bool("display_name", displayName != nil),
		zap.Bool("preferences", preferences != nil))
	return nil
}

// UpdatePreferences replaces the stored dietary preferences.
func (s *ProfileService) UpdatePreferences(ctx context.Context, userID, email string, preferences []string) error {
	if preferences == nil {
		preferences = []string{}
	}
	return s.UpdateProfile(ctx, userID, email, nil, preferences)
}

// NormalizePreferences trims tags and drops blanks and duplicates, keeping order.
func NormalizePreferences(preferences []string) []entity.PreferenceTag {
	seen := make(map[string]struct{}, len(preferences))
	tags := make([]entity.PreferenceTag, 0, len(preferences))
	for _, p := range preferences {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		tags = append(tags, entity.PreferenceTag(p))
	}
	return tags
}
