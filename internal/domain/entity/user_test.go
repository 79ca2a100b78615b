package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIngredientExceptions_Merge(t *testing.T) {
	e := IngredientExceptions{}

	assert.True(t, e.Merge("Vegana", "mel"))
	assert.True(t, e.Merge("Vegana", "leite de aveia"))
	assert.False(t, e.Merge("Vegana", "mel"))
	assert.False(t, e.Merge("Vegana", "  "))

	assert.Equal(t, []string{"leite de aveia", "mel"}, e["Vegana"])
	assert.True(t, e.Contains("Vegana", "mel"))
	assert.False(t, e.Contains("Sem Glúten", "mel"))
}

func TestUserSubscriptionRecord_NeedsMonthlyReset(t *testing.T) {
	now := time.Date(2025, time.March, 1, 0, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		lastReset time.Time
		want      bool
	}{
		{"same month", time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), false},
		{"previous month", time.Date(2025, time.February, 28, 23, 59, 0, 0, time.UTC), true},
		{"same month previous year", time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &UserSubscriptionRecord{LastResetDate: tt.lastReset}
			assert.Equal(t, tt.want, r.NeedsMonthlyReset(now))
		})
	}
}

func TestNewUserSubscriptionRecord(t *testing.T) {
	now := time.Now()
	r := NewUserSubscriptionRecord("u1", "ana@example.com", now)

	assert.Equal(t, PlanFree, r.Plan)
	assert.Equal(t, SubscriptionStatusNone, r.SubscriptionStatus)
	assert.Equal(t, 0, r.RecipeCount)
	assert.Equal(t, now, r.LastResetDate)
	assert.False(t, r.IsPremium())
}

func TestUserSubscriptionRecord_ActiveSubscriptionRef(t *testing.T) {
	tests := []struct {
		name         string
		record       UserSubscriptionRecord
		wantProvider PaymentProvider
		wantRef      string
	}{
		{
			name: "provider of the last event wins over an older ref",
			record: UserSubscriptionRecord{
				SubscriptionStatus:         SubscriptionStatusActive,
				StripeSubscriptionRef:      "sub_live",
				MercadoPagoSubscriptionRef: "pre_old",
				SubscriptionProvider:       PaymentProviderStripe,
			},
			wantProvider: PaymentProviderStripe,
			wantRef:      "sub_live",
		},
		{
			name: "Mercado Pago after Stripe",
			record: UserSubscriptionRecord{
				SubscriptionStatus:         SubscriptionStatusAuthorized,
				StripeSubscriptionRef:      "sub_old",
				MercadoPagoSubscriptionRef: "pre_live",
				SubscriptionProvider:       PaymentProviderMercadoPago,
			},
			wantProvider: PaymentProviderMercadoPago,
			wantRef:      "pre_live",
		},
		{
			name: "untracked provider with active status picks Stripe",
			record: UserSubscriptionRecord{
				SubscriptionStatus:         SubscriptionStatusActive,
				StripeSubscriptionRef:      "sub_live",
				MercadoPagoSubscriptionRef: "pre_old",
			},
			wantProvider: PaymentProviderStripe,
			wantRef:      "sub_live",
		},
		{
			name: "untracked provider with authorized status picks Mercado Pago",
			record: UserSubscriptionRecord{
				SubscriptionStatus:         SubscriptionStatusAuthorized,
				StripeSubscriptionRef:      "sub_old",
				MercadoPagoSubscriptionRef: "pre_live",
			},
			wantProvider: PaymentProviderMercadoPago,
			wantRef:      "pre_live",
		},
		{
			name: "tracked provider without a ref falls back to the other",
			record: UserSubscriptionRecord{
				MercadoPagoSubscriptionRef: "pre_1",
				SubscriptionProvider:       PaymentProviderStripe,
			},
			wantProvider: PaymentProviderMercadoPago,
			wantRef:      "pre_1",
		},
		{
			name:   "no subscription",
			record: UserSubscriptionRecord{SubscriptionStatus: SubscriptionStatusNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ref := tt.record.ActiveSubscriptionRef()
			assert.Equal(t, tt.wantProvider, p)
			assert.Equal(t, tt.wantRef, ref)
		})
	}
}
