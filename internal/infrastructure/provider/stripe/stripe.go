package stripe

import (
	"context"
	"fmt"
	"strings"

	"github.com/kauecavalcante/chef-de-geladeira/internal/config"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"
)

// userIDMetadataKey must match the key the webhook normalizer reads.
const userIDMetadataKey = "firebaseUID"

// StripeProvider implements StripeBilling over an injected Stripe API client.
type StripeProvider struct {
	api       *client.API
	priceID   string
	clientURL string
	logger    *zap.Logger
}

// NewStripeProvider creates a provider with its own API client.
func NewStripeProvider(cfg config.StripeConfig, clientURL string, logger *zap.Logger) (*StripeProvider, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("Stripe secret key not configured")
	}
	return NewStripeProviderWithClient(client.New(cfg.SecretKey, nil), cfg.PriceID, clientURL, logger), nil
}

// NewStripeProviderWithClient wraps an existing API client.
func NewStripeProviderWithClient(api *client.API, priceID, clientURL string, logger *zap.Logger) *StripeProvider {
	return &StripeProvider{
		api:       api,
		priceID:   priceID,
		clientURL: strings.TrimRight(clientURL, "/"),
		logger:    logger,
	}
}

// Name returns the provider name
func (s *StripeProvider) Name() entity.PaymentProvider {
	return entity.PaymentProviderStripe
}

// CreateCheckout opens a subscription checkout session for the premium price.
func (s *StripeProvider) CreateCheckout(ctx context.Context, req *provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	if s.priceID == "" {
		return nil, &provider.ProviderError{
			Code:    "NOT_CONFIGURED",
			Message: "Stripe price is not configured",
		}
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CustomerEmail:      stripe.String(req.Email),
		ClientReferenceID:  stripe.String(req.UserID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{userIDMetadataKey: req.UserID},
		},
		SuccessURL: stripe.String(s.clientURL + "/subscription-success"),
		CancelURL:  stripe.String(s.clientURL + "/pricing"),
	}
	params.Context = ctx
	params.AddMetadata(userIDMetadataKey, req.UserID)

	session, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, toProviderError("Failed to create checkout session", err)
	}
	if session.URL == "" {
		return nil, &provider.ProviderError{
			Code:    "EMPTY_SESSION_URL",
			Message: "Stripe returned no checkout URL",
		}
	}

	s.logger.Info("Stripe: Checkout session created",
		zap.String("session_id", session.ID),
		zap.String("user_id", req.UserID))

	return &provider.CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// CreatePortalSession returns a billing portal URL for customerRef.
func (s *StripeProvider) CreatePortalSession(ctx context.Context, customerRef, returnURL string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerRef),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	session, err := s.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", toProviderError("Failed to create billing portal session", err)
	}
	return session.URL, nil
}

// CancelAtPeriodEnd keeps the subscription active until the paid period ends.
func (s *StripeProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionRef string) error {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	sub, err := s.api.Subscriptions.Update(subscriptionRef, params)
	if err != nil {
		return toProviderError("Failed to cancel subscription", err)
	}

	s.logger.Info("Stripe: Subscription set to cancel at period end",
		zap.String("subscription_id", sub.ID),
		zap.Bool("cancel_at_period_end", sub.CancelAtPeriodEnd))
	return nil
}

// PriceInfo describes the configured premium price.
type PriceInfo struct {
	ID          string
	ProductName string
	Active      bool
	Currency    string
	UnitAmount  int64
	Interval    string
}

// DescribePrice fetches the configured premium price and its product.
func (s *StripeProvider) DescribePrice(ctx context.Context) (*PriceInfo, error) {
	if s.priceID == "" {
		return nil, &provider.ProviderError{
			Code:    "NOT_CONFIGURED",
			Message: "Stripe price is not configured",
		}
	}

	params := &stripe.PriceParams{}
	params.Context = ctx
	params.AddExpand("product")

	p, err := s.api.Prices.Get(s.priceID, params)
	if err != nil {
		return nil, toProviderError("Failed to fetch price", err)
	}

	info := &PriceInfo{
		ID:         p.ID,
		Active:     p.Active,
		Currency:   string(p.Currency),
		UnitAmount: p.UnitAmount,
	}
	if p.Product != nil {
		info.ProductName = p.Product.Name
	}
	if p.Recurring != nil {
		info.Interval = string(p.Recurring.Interval)
	}
	return info, nil
}

func toProviderError(message string, err error) error {
	perr := &provider.ProviderError{
		Code:    "API_ERROR",
		Message: message,
		Details: err.Error(),
	}
	if stripeErr, ok := err.(*stripe.Error); ok {
		if stripeErr.Code != "" {
			perr.Code = string(stripeErr.Code)
		}
		perr.Details = stripeErr.Msg
		perr.StatusCode = stripeErr.HTTPStatusCode
	}
	return perr
}
