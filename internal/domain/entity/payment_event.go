package entity

import "time"

// PaymentProvider identifies a payment provider.
type PaymentProvider string

const (
	PaymentProviderStripe      PaymentProvider = "stripe"
	PaymentProviderMercadoPago PaymentProvider = "mercadopago"
)

func (p PaymentProvider) Valid() bool {
	return p == PaymentProviderStripe || p == PaymentProviderMercadoPago
}

// NormalizedPaymentEvent is a provider notification reduced to the fields the
// reconciler applies. Empty refs mean "leave unchanged"; a nil CancelAt clears
// the stored value.
type NormalizedPaymentEvent struct {
	// UserID is empty when the user must be resolved by subscription ref.
	UserID                  string
	PlanTarget              Plan
	StatusTarget            SubscriptionStatus
	ProviderSubscriptionRef string
	ProviderCustomerRef     string
	CancelAt                *time.Time
	SourceProvider          PaymentProvider
	SourceEventType         string
	// OccurredAt is the provider-side event time, when the provider supplies one.
	OccurredAt *time.Time
}

// PaymentEventRecord is the audit entry kept for every webhook delivery.
type PaymentEventRecord struct {
	ID              int64           `json:"id"`
	Provider        PaymentProvider `json:"provider"`
	EventType       string          `json:"eventType"`
	UserID          string          `json:"userId,omitempty"`
	SubscriptionRef string          `json:"subscriptionRef,omitempty"`
	PlanTarget      Plan            `json:"planTarget,omitempty"`
	Outcome         string          `json:"outcome"`
	ErrorCode       string          `json:"errorCode,omitempty"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	EventAt         *time.Time      `json:"eventAt,omitempty"`
	ReceivedAt      time.Time       `json:"receivedAt"`
}
