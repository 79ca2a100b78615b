package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	domainErrors "github.com/kauecavalcante/chef-de-geladeira/internal/domain/errors"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/repository"
	"github.com/kauecavalcante/chef-de-geladeira/internal/metrics"
	"go.uber.org/zap"
)

// ReconcileOutcome reports what happened to a normalized event.
type ReconcileOutcome string

const (
	ReconcileApplied ReconcileOutcome = "applied"
	// ReconcileDropped means no user record could be resolved for the event.
	ReconcileDropped ReconcileOutcome = "dropped"
	// ReconcileStale means the event is older than the last applied one.
	ReconcileStale ReconcileOutcome = "stale"
)

// Reconciler applies normalized payment events to user records.
type Reconciler struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewReconciler(users repository.UserRepository, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		users:  users,
		logger: logger,
	}
}

// Apply resolves the target record by user id, falling back to the provider
// subscription ref, and overwrites its plan, status, cancellation time and
// provider refs in one update. Applying the same event twice leaves the same
// state. Events older than the record's last applied event are skipped.
func (r *Reconciler) Apply(ctx context.Context, event *entity.NormalizedPaymentEvent) (ReconcileOutcome, error) {
	record, err := r.resolve(ctx, event)
	if err != nil {
		return "", err
	}
	if record == nil {
		r.logger.Warn("No user record for payment event, dropping",
			zap.String("provider", string(event.SourceProvider)),
			zap.String("event_type", event.SourceEventType),
			zap.String("user_id", event.UserID),
			zap.String("subscription_ref", event.ProviderSubscriptionRef))
		return ReconcileDropped, nil
	}

	if event.OccurredAt != nil && record.LastEventAt != nil && event.OccurredAt.Before(*record.LastEventAt) {
		r.logger.Info("Skipping stale payment event",
			zap.String("user_id", record.UserID),
			zap.String("event_type", event.SourceEventType),
			zap.Time("event_at", *event.OccurredAt),
			zap.Time("last_event_at", *record.LastEventAt))
		return ReconcileStale, nil
	}

	update := repository.SubscriptionUpdate{
		Plan:     event.PlanTarget,
		Status:   event.StatusTarget,
		CancelAt: event.CancelAt,
		Provider: event.SourceProvider,
		EventAt:  event.OccurredAt,
	}
	switch event.SourceProvider {
	case entity.PaymentProviderStripe:
		update.StripeSubscriptionRef = event.ProviderSubscriptionRef
		update.StripeCustomerRef = event.ProviderCustomerRef
	case entity.PaymentProviderMercadoPago:
		update.MercadoPagoSubscriptionRef = event.ProviderSubscriptionRef
	}

	if err := r.users.ApplySubscription(ctx, record.UserID, update); err != nil {
		return "", fmt.Errorf("failed to apply subscription update: %w", err)
	}

	metrics.SubscriptionTransitionsTotal.WithLabelValues(string(event.SourceProvider), string(event.PlanTarget)).Inc()
	r.logger.Info("Subscription state updated",
		zap.String("user_id", record.UserID),
		zap.String("provider", string(event.SourceProvider)),
		zap.String("event_type", event.SourceEventType),
		zap.String("from_plan", string(record.Plan)),
		zap.String("plan", string(event.PlanTarget)),
		zap.String("status", string(event.StatusTarget)))

	return ReconcileApplied, nil
}

func (r *Reconciler) resolve(ctx context.Context, event *entity.NormalizedPaymentEvent) (*entity.UserSubscriptionRecord, error) {
	if event.UserID != "" {
		record, err := r.users.GetByID(ctx, event.UserID)
		if err == nil {
			return record, nil
		}
		if !errors.Is(err, domainErrors.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to load user: %w", err)
		}
	}

	if event.ProviderSubscriptionRef == "" {
		return nil, nil
	}

	record, err := r.users.GetBySubscriptionRef(ctx, event.SourceProvider, event.ProviderSubscriptionRef)
	if err != nil {
		if errors.Is(err, domainErrors.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up user by subscription: %w", err)
	}
	return record, nil
}
