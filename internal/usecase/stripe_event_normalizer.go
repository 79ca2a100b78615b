package usecase

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	domainErrors "github.com/kauecavalcante/chef-de-geladeira/internal/domain/errors"
	apperrors "github.com/kauecavalcante/chef-de-geladeira/pkg/errors"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
)

// UserIDMetadataKey is the checkout metadata key carrying the user id.
const UserIDMetadataKey = "firebaseUID"

// StripeEventNormalizer verifies Stripe webhook payloads and maps the
// subscription lifecycle events onto NormalizedPaymentEvent.
type StripeEventNormalizer struct {
	webhookSecret string
	logger        *zap.Logger
}

func NewStripeEventNormalizer(webhookSecret string, logger *zap.Logger) *StripeEventNormalizer {
	return &StripeEventNormalizer{
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// Normalize verifies signature against payload and returns the normalized
// event together with the Stripe event type. Unhandled event types yield a
// nil event and no error. Verification fails closed when no secret is
// configured.
func (n *StripeEventNormalizer) Normalize(payload []byte, signature string) (*entity.NormalizedPaymentEvent, string, error) {
	if n.webhookSecret == "" {
		return nil, "", apperrors.NewAppError(apperrors.ErrUnauthenticated,
			"webhook secret is not configured", domainErrors.ErrInvalidSignature)
	}
	if signature == "" {
		return nil, "", apperrors.NewAppError(apperrors.ErrUnauthenticated,
			"missing Stripe-Signature header", domainErrors.ErrInvalidSignature)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, n.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		if isSignatureError(err) {
			return nil, "", apperrors.NewAppError(apperrors.ErrUnauthenticated,
				"webhook signature verification failed", domainErrors.ErrInvalidSignature)
		}
		return nil, "", apperrors.NewAppError(apperrors.ErrInvalidArgument,
			"failed to parse webhook payload", domainErrors.ErrMalformedPayload)
	}

	eventType := string(event.Type)
	occurredAt := time.Unix(event.Created, 0).UTC()

	n.logger.Info("Stripe event received",
		zap.String("type", eventType),
		zap.String("id", event.ID),
		zap.Time("created", occurredAt))

	var normalized *entity.NormalizedPaymentEvent
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, eventType, n.parseError(eventType, err)
		}
		normalized = n.fromCheckoutSession(&session)

	case stripe.EventTypeCustomerSubscriptionUpdated:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, eventType, n.parseError(eventType, err)
		}
		normalized = n.fromSubscriptionUpdated(&sub)

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, eventType, n.parseError(eventType, err)
		}
		normalized = &entity.NormalizedPaymentEvent{
			PlanTarget:              entity.PlanFree,
			StatusTarget:            entity.SubscriptionStatusCancelled,
			ProviderSubscriptionRef: sub.ID,
			ProviderCustomerRef:     customerID(sub.Customer),
		}

	default:
		n.logger.Debug("Ignoring unhandled Stripe event", zap.String("type", eventType))
		return nil, eventType, nil
	}

	normalized.SourceProvider = entity.PaymentProviderStripe
	normalized.SourceEventType = eventType
	normalized.OccurredAt = &occurredAt
	return normalized, eventType, nil
}

func (n *StripeEventNormalizer) fromCheckoutSession(session *stripe.CheckoutSession) *entity.NormalizedPaymentEvent {
	userID := session.Metadata[UserIDMetadataKey]
	if userID == "" {
		userID = session.ClientReferenceID
	}

	var subscriptionID string
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
	}

	return &entity.NormalizedPaymentEvent{
		UserID:                  userID,
		PlanTarget:              entity.PlanPremium,
		StatusTarget:            entity.SubscriptionStatusActive,
		ProviderSubscriptionRef: subscriptionID,
		ProviderCustomerRef:     customerID(session.Customer),
	}
}

// fromSubscriptionUpdated leaves UserID empty. Subscription events resolve the
// user only through the stored subscription ref, so an event for a replaced
// subscription cannot touch the user's current one.
func (n *StripeEventNormalizer) fromSubscriptionUpdated(sub *stripe.Subscription) *entity.NormalizedPaymentEvent {
	status := entity.SubscriptionStatus(sub.Status)
	plan := entity.PlanFree
	if sub.Status == stripe.SubscriptionStatusActive {
		plan = entity.PlanPremium
	}

	var cancelAt *time.Time
	if sub.CancelAtPeriodEnd {
		end := sub.CancelAt
		if end == 0 {
			end = sub.CurrentPeriodEnd
		}
		if end != 0 {
			t := time.Unix(end, 0).UTC()
			cancelAt = &t
		}
	}

	return &entity.NormalizedPaymentEvent{
		PlanTarget:              plan,
		StatusTarget:            status,
		ProviderSubscriptionRef: sub.ID,
		ProviderCustomerRef:     customerID(sub.Customer),
		CancelAt:                cancelAt,
	}
}

func (n *StripeEventNormalizer) parseError(eventType string, err error) error {
	n.logger.Error("Failed to parse Stripe event object",
		zap.String("type", eventType),
		zap.Error(err))
	return apperrors.NewAppError(apperrors.ErrInvalidArgument, "failed to parse webhook object", domainErrors.ErrMalformedPayload)
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
