package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	domainErrors "github.com/kauecavalcante/chef-de-geladeira/internal/domain/errors"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/repository"
	"github.com/kauecavalcante/chef-de-geladeira/internal/metrics"
	apperrors "github.com/kauecavalcante/chef-de-geladeira/pkg/errors"
	"go.uber.org/zap"
)

// DefaultFreeMonthlyRecipes is the free plan generation allowance per calendar month.
const DefaultFreeMonthlyRecipes = 10

// EntitlementGate decides whether a user may generate a recipe.
//
// The reset, check and increment steps are separate store operations and are
// not serialized: two concurrent requests from a free user at the limit may
// both pass.
type EntitlementGate struct {
	users     repository.UserRepository
	freeLimit int
	logger    *zap.Logger
	now       func() time.Time
}

func NewEntitlementGate(users repository.UserRepository, freeLimit int, logger *zap.Logger) *EntitlementGate {
	if freeLimit <= 0 {
		freeLimit = DefaultFreeMonthlyRecipes
	}
	return &EntitlementGate{
		users:     users,
		freeLimit: freeLimit,
		logger:    logger,
		now:       time.Now,
	}
}

// FreeLimit returns the monthly allowance of the free plan.
func (g *EntitlementGate) FreeLimit() int {
	return g.freeLimit
}

// ApplyMonthlyReset zeroes the counter when the last reset happened in an
// earlier calendar month. The reset is persisted before returning and record
// is updated in place.
func (g *EntitlementGate) ApplyMonthlyReset(ctx context.Context, record *entity.UserSubscriptionRecord) error {
	now := g.now()
	if !record.NeedsMonthlyReset(now) {
		return nil
	}

	if err := g.users.ResetMonthlyUsage(ctx, record.UserID, now); err != nil {
		return fmt.Errorf("failed to reset monthly usage: %w", err)
	}

	g.logger.Info("Monthly usage reset",
		zap.String("user_id", record.UserID),
		zap.Int("previous_count", record.RecipeCount),
		zap.Time("previous_reset", record.LastResetDate))

	record.RecipeCount = 0
	record.LastResetDate = now
	return nil
}

// Check applies the monthly reset and then permits premium users
// unconditionally and free users while under the limit. A denial performs no
// writes beyond the reset.
func (g *EntitlementGate) Check(ctx context.Context, record *entity.UserSubscriptionRecord) error {
	if err := g.ApplyMonthlyReset(ctx, record); err != nil {
		return err
	}

	if record.IsPremium() {
		metrics.EntitlementDecisionsTotal.WithLabelValues(string(entity.PlanPremium), "allowed").Inc()
		return nil
	}

	if record.RecipeCount < g.freeLimit {
		metrics.EntitlementDecisionsTotal.WithLabelValues(string(entity.PlanFree), "allowed").Inc()
		return nil
	}

	metrics.EntitlementDecisionsTotal.WithLabelValues(string(entity.PlanFree), "denied").Inc()
	g.logger.Info("Recipe generation denied",
		zap.String("user_id", record.UserID),
		zap.Int("recipe_count", record.RecipeCount),
		zap.Int("limit", g.freeLimit))

	return apperrors.NewAppError(apperrors.ErrResourceExhausted,
		fmt.Sprintf("Você atingiu o limite de %d receitas do plano gratuito este mês.", g.freeLimit),
		domainErrors.ErrEntitlementDenied)
}

// RecordGeneration counts a successful generation against the free allowance.
// Premium generations are not counted.
func (g *EntitlementGate) RecordGeneration(ctx context.Context, record *entity.UserSubscriptionRecord) error {
	if record.IsPremium() {
		return nil
	}
	if err := g.users.IncrementRecipeCount(ctx, record.UserID); err != nil {
		return fmt.Errorf("failed to increment recipe count: %w", err)
	}
	record.RecipeCount++
	return nil
}

// Remaining returns how many generations are left this month, or -1 for unlimited.
func (g *EntitlementGate) Remaining(record *entity.UserSubscriptionRecord) int {
	if record.IsPremium() {
		return -1
	}
	count := record.RecipeCount
	if record.NeedsMonthlyReset(g.now()) {
		count = 0
	}
	if left := g.freeLimit - count; left > 0 {
		return left
	}
	return 0
}
