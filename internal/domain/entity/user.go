package entity

import (
	"sort"
	"strings"
	"time"
)

// Plan is the commercial tier of a user.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// SubscriptionStatus is the provider-reported lifecycle state. Provider
// statuses outside the known set are stored verbatim.
type SubscriptionStatus string

const (
	SubscriptionStatusNone                SubscriptionStatus = "none"
	SubscriptionStatusActive              SubscriptionStatus = "active"
	SubscriptionStatusAuthorized          SubscriptionStatus = "authorized"
	SubscriptionStatusPastDue             SubscriptionStatus = "past_due"
	SubscriptionStatusCancellationPending SubscriptionStatus = "cancellation_pending"
	SubscriptionStatusCancelled           SubscriptionStatus = "cancelled"
)

// PreferenceTag is a dietary preference label such as "Vegana" or "Sem Glúten".
type PreferenceTag string

// IngredientExceptions maps a preference to ingredients the user declared
// compatible with it.
type IngredientExceptions map[PreferenceTag][]string

// Merge adds ingredient to the exceptions of pref, keeping the list sorted and
// free of duplicates. It reports whether the set changed.
func (e IngredientExceptions) Merge(pref PreferenceTag, ingredient string) bool {
	ingredient = strings.TrimSpace(ingredient)
	if ingredient == "" {
		return false
	}
	for _, existing := range e[pref] {
		if existing == ingredient {
			return false
		}
	}
	list := append(e[pref], ingredient)
	sort.Strings(list)
	e[pref] = list
	return true
}

// Contains reports whether ingredient is an exception for pref.
func (e IngredientExceptions) Contains(pref PreferenceTag, ingredient string) bool {
	for _, existing := range e[pref] {
		if existing == ingredient {
			return true
		}
	}
	return false
}

// UserSubscriptionRecord is the per-user document holding profile, plan,
// provider references and usage counters.
type UserSubscriptionRecord struct {
	UserID      string
	Email       string
	DisplayName string

	Plan                 Plan
	SubscriptionStatus   SubscriptionStatus
	SubscriptionCancelAt *time.Time

	StripeCustomerRef          string
	StripeSubscriptionRef      string
	MercadoPagoSubscriptionRef string
	// SubscriptionProvider is the provider of the last applied payment event.
	SubscriptionProvider PaymentProvider

	RecipeCount   int
	LastResetDate time.Time
	// LastEventAt is the provider timestamp of the last applied payment event.
	LastEventAt *time.Time

	DietaryPreferences   []PreferenceTag
	IngredientExceptions IngredientExceptions

	InvalidRequestCount  int
	LastInvalidRequestAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUserSubscriptionRecord returns the initial record for a user seen for the first time.
func NewUserSubscriptionRecord(userID, email string, now time.Time) *UserSubscriptionRecord {
	return &UserSubscriptionRecord{
		UserID:               userID,
		Email:                email,
		Plan:                 PlanFree,
		SubscriptionStatus:   SubscriptionStatusNone,
		LastResetDate:        now,
		DietaryPreferences:   []PreferenceTag{},
		IngredientExceptions: IngredientExceptions{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func (r *UserSubscriptionRecord) IsPremium() bool {
	return r.Plan == PlanPremium
}

// NeedsMonthlyReset reports whether LastResetDate falls in an earlier calendar
// month than now (UTC).
func (r *UserSubscriptionRecord) NeedsMonthlyReset(now time.Time) bool {
	last := r.LastResetDate.UTC()
	now = now.UTC()
	return last.Year() != now.Year() || last.Month() != now.Month()
}

// ActiveSubscriptionRef returns the provider and reference of the current
// subscription. Refs are never cleared, so a user who switched providers keeps
// both; the provider of the last applied event wins. Records written before
// that was tracked fall back to the provider that owns the stored status.
func (r *UserSubscriptionRecord) ActiveSubscriptionRef() (PaymentProvider, string) {
	if ref := r.subscriptionRef(r.SubscriptionProvider); ref != "" {
		return r.SubscriptionProvider, ref
	}

	order := []PaymentProvider{PaymentProviderStripe, PaymentProviderMercadoPago}
	if r.SubscriptionStatus == SubscriptionStatusAuthorized {
		order = []PaymentProvider{PaymentProviderMercadoPago, PaymentProviderStripe}
	}
	for _, p := range order {
		if ref := r.subscriptionRef(p); ref != "" {
			return p, ref
		}
	}
	return "", ""
}

func (r *UserSubscriptionRecord) subscriptionRef(p PaymentProvider) string {
	switch p {
	case PaymentProviderStripe:
		return r.StripeSubscriptionRef
	case PaymentProviderMercadoPago:
		return r.MercadoPagoSubscriptionRef
	}
	return ""
}
