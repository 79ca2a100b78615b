package provider

import (
	"context"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
)

// CheckoutProvider opens a provider-hosted checkout for the premium plan.
type CheckoutProvider interface {
	CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error)
	Name() entity.PaymentProvider
}

// CheckoutRequest identifies the buyer of a premium subscription.
type CheckoutRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// CheckoutSession is a provider checkout the client is redirected to.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// StripeBilling covers the Stripe operations used outside webhooks.
type StripeBilling interface {
	CheckoutProvider
	// CreatePortalSession returns the billing portal URL for customerRef.
	CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error)
	// CancelAtPeriodEnd schedules the subscription to end with the current period.
	CancelAtPeriodEnd(ctx context.Context, subscriptionRef string) error
}

// MercadoPagoAPI covers the Mercado Pago REST resources the service reads and writes.
type MercadoPagoAPI interface {
	CheckoutProvider
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
	GetPreapproval(ctx context.Context, preapprovalID string) (*Preapproval, error)
	// SearchLatestPreapproval returns the most recently created pre-approval for
	// externalReference, or nil when there is none.
	SearchLatestPreapproval(ctx context.Context, externalReference string) (*Preapproval, error)
	CancelPreapproval(ctx context.Context, preapprovalID string) error
}

// Payment is a Mercado Pago payment resource.
type Payment struct {
	ID                string
	Status            string
	ExternalReference string
	PreapprovalID     string
	LastUpdated       *time.Time
}

// Preapproval is a Mercado Pago recurring subscription resource.
type Preapproval struct {
	ID                string
	Status            string
	ExternalReference string
	LastModified      *time.Time
}

// CompletionRequest is a single-turn language model call.
type CompletionRequest struct {
	System string
	Prompt string
	// JSON asks the model for a JSON object response.
	JSON        bool
	Temperature *float64
	MaxTokens   int
}

// LanguageModel returns the text completion for a prompt. Output is untrusted.
type LanguageModel interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Cache is a string key/value cache with expiry.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// FailureEvent describes a processing failure worth surfacing to operators.
type FailureEvent struct {
	Source    string            `json:"source"`
	Kind      string            `json:"kind"`
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	UserID    string            `json:"user_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// EventSink receives failure events. Implementations must not block callers for long.
type EventSink interface {
	Publish(ctx context.Context, event FailureEvent)
}

// ProviderType identifies a configured payment provider.
type ProviderType = entity.PaymentProvider

const (
	ProviderTypeStripe      = entity.PaymentProviderStripe
	ProviderTypeMercadoPago = entity.PaymentProviderMercadoPago
)

// ProviderError is returned by provider clients for failed API calls.
type ProviderError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
