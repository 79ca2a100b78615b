package repository

import (
	"context"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
)

// SubscriptionUpdate is the field set a payment event overwrites. Empty refs
// are left unchanged; a nil CancelAt clears the stored value.
type SubscriptionUpdate struct {
	Plan                       entity.Plan
	Status                     entity.SubscriptionStatus
	CancelAt                   *time.Time
	StripeCustomerRef          string
	StripeSubscriptionRef      string
	MercadoPagoSubscriptionRef string
	// Provider records which provider the update came from.
	Provider entity.PaymentProvider
	EventAt  *time.Time
}

// ProfileUpdate carries the profile fields to change; nil fields are untouched.
type ProfileUpdate struct {
	DisplayName        *string
	DietaryPreferences *[]entity.PreferenceTag
}

// UserRepository persists user subscription records.
// Lookups return domain ErrUserNotFound when the record does not exist.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*entity.UserSubscriptionRecord, error)
	// Create inserts record unless one already exists for the user.
	Create(ctx context.Context, record *entity.UserSubscriptionRecord) error
	GetBySubscriptionRef(ctx context.Context, provider entity.PaymentProvider, ref string) (*entity.UserSubscriptionRecord, error)

	ApplySubscription(ctx context.Context, userID string, update SubscriptionUpdate) error
	ResetMonthlyUsage(ctx context.Context, userID string, at time.Time) error
	// IncrementRecipeCount adds one to the counter with a store-side increment.
	IncrementRecipeCount(ctx context.Context, userID string) error

	UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) error
	MergeIngredientException(ctx context.Context, userID string, preference entity.PreferenceTag, ingredient string) error
	RecordInvalidRequest(ctx context.Context, userID string, at time.Time) error
}
