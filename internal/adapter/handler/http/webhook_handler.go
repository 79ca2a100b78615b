package http

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	domainErrors "github.com/kauecavalcante/chef-de-geladeira/internal/domain/errors"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/kauecavalcante/chef-de-geladeira/internal/metrics"
	"github.com/kauecavalcante/chef-de-geladeira/internal/usecase"
	apperrors "github.com/kauecavalcante/chef-de-geladeira/pkg/errors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// maxWebhookBody bounds webhook payloads; both providers send far less.
const maxWebhookBody = 1 << 20

const outcomeIgnored = "ignored"

// knownEventTypes is the closed set of event types used for metric labels,
// failure events and audit rows. The Mercado Pago type comes from an
// unauthenticated body, so anything outside the set collapses to "other".
var knownEventTypes = map[entity.PaymentProvider]map[string]struct{}{
	entity.PaymentProviderStripe: {
		"checkout.session.completed":    {},
		"customer.subscription.updated": {},
		"customer.subscription.deleted": {},
	},
	entity.PaymentProviderMercadoPago: {
		"payment":                  {},
		"preapproval":              {},
		"subscription_preapproval": {},
	},
}

func eventTypeLabel(providerName entity.PaymentProvider, eventType string) string {
	if eventType == "" {
		return "unknown"
	}
	if _, ok := knownEventTypes[providerName][eventType]; ok {
		return eventType
	}
	return "other"
}

// StripeEventSource verifies and normalizes Stripe webhook payloads.
type StripeEventSource interface {
	Normalize(payload []byte, signature string) (*entity.NormalizedPaymentEvent, string, error)
}

// MercadoPagoEventSource normalizes Mercado Pago notifications.
type MercadoPagoEventSource interface {
	Normalize(ctx context.Context, body []byte, query url.Values) (*entity.NormalizedPaymentEvent, string, error)
}

// EventApplier applies normalized events to user records.
type EventApplier interface {
	Apply(ctx context.Context, event *entity.NormalizedPaymentEvent) (usecase.ReconcileOutcome, error)
}

// EventAuditor stores one audit entry per webhook delivery.
type EventAuditor interface {
	Save(ctx context.Context, event *entity.PaymentEventRecord) error
}

type WebhookHandler struct {
	stripe      StripeEventSource
	mercadoPago MercadoPagoEventSource
	reconciler  EventApplier
	sink        provider.EventSink
	audit       EventAuditor
	logger      *zap.Logger
}

// NewWebhookHandler creates the handler. A nil source disables that
// provider's endpoint; a nil audit skips the audit log.
func NewWebhookHandler(
	stripe StripeEventSource,
	mercadoPago MercadoPagoEventSource,
	reconciler EventApplier,
	sink provider.EventSink,
	audit EventAuditor,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		stripe:      stripe,
		mercadoPago: mercadoPago,
		reconciler:  reconciler,
		sink:        sink,
		audit:       audit,
		logger:      logger,
	}
}

// webhookResult is what the inner processing step reports to the outer
// response mapping.
type webhookResult struct {
	eventType string
	outcome   string
	event     *entity.NormalizedPaymentEvent
	err       error
}

// HandleStripe handles POST /webhook/stripe.
func (h *WebhookHandler) HandleStripe(c echo.Context) error {
	start := time.Now()
	result := h.processStripe(c)
	return h.respond(c, entity.PaymentProviderStripe, result, start)
}

// HandleMercadoPago handles POST /webhook/mercadopago.
func (h *WebhookHandler) HandleMercadoPago(c echo.Context) error {
	start := time.Now()
	result := h.processMercadoPago(c)
	return h.respond(c, entity.PaymentProviderMercadoPago, result, start)
}

func (h *WebhookHandler) processStripe(c echo.Context) webhookResult {
	if h.stripe == nil {
		return webhookResult{err: apperrors.NewAppError(apperrors.ErrNotImplemented,
			"Stripe webhooks are not configured", domainErrors.ErrUnsupportedProvider)}
	}

	body, err := readWebhookBody(c)
	if err != nil {
		return webhookResult{err: err}
	}

	event, eventType, err := h.stripe.Normalize(body, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		return webhookResult{eventType: eventType, event: event, err: err}
	}
	return h.apply(c.Request().Context(), eventType, event)
}

func (h *WebhookHandler) processMercadoPago(c echo.Context) webhookResult {
	if h.mercadoPago == nil {
		return webhookResult{err: apperrors.NewAppError(apperrors.ErrNotImplemented,
			"Mercado Pago webhooks are not configured", domainErrors.ErrUnsupportedProvider)}
	}

	body, err := readWebhookBody(c)
	if err != nil {
		return webhookResult{err: err}
	}

	ctx := c.Request().Context()
	event, eventType, err := h.mercadoPago.Normalize(ctx, body, c.QueryParams())
	if err != nil {
		return webhookResult{eventType: eventType, event: event, err: err}
	}
	return h.apply(ctx, eventType, event)
}

func (h *WebhookHandler) apply(ctx context.Context, eventType string, event *entity.NormalizedPaymentEvent) webhookResult {
	if event == nil {
		return webhookResult{eventType: eventType, outcome: outcomeIgnored}
	}

	outcome, err := h.reconciler.Apply(ctx, event)
	return webhookResult{
		eventType: eventType,
		outcome:   string(outcome),
		event:     event,
		err:       err,
	}
}

// respond is the single place where processing results become provider-facing
// responses. Client faults get 400 so the provider stops retrying; internal
// faults get 500 so it redelivers. Everything else is acknowledged.
func (h *WebhookHandler) respond(c echo.Context, providerName entity.PaymentProvider, result webhookResult, start time.Time) error {
	eventType := eventTypeLabel(providerName, result.eventType)

	status := http.StatusOK
	body := echo.Map{"received": true}
	outcome := result.outcome
	userID := ""
	if result.event != nil {
		userID = result.event.UserID
	}
	errorCode := ""

	if result.err != nil {
		code := apperrors.CodeOf(result.err)
		errorCode = code
		switch code {
		case apperrors.ErrInvalidArgument, apperrors.ErrUnauthenticated:
			status = http.StatusBadRequest
			outcome = "rejected"
		case apperrors.ErrNotImplemented:
			status = http.StatusNotImplemented
			outcome = "disabled"
		default:
			status = http.StatusInternalServerError
			outcome = "error"
		}
		body = echo.Map{"error": webhookErrorMessage(result.err), "code": code}

		apperrors.LogError(h.logger, result.err, "Webhook processing failed",
			zap.String("provider", string(providerName)),
			zap.String("event_type", eventType),
			zap.Int("status", status))
		h.publish(c.Request().Context(), providerName, eventType, outcome, code, result.err.Error(), userID)
	} else if outcome == string(usecase.ReconcileDropped) {
		h.publish(c.Request().Context(), providerName, eventType, outcome, apperrors.ErrNotFound,
			"no user record for payment event", userID)
	}

	// A disabled endpoint received nothing worth recording.
	if outcome != "disabled" {
		h.record(c.Request().Context(), providerName, eventType, outcome, errorCode, result)
	}

	metrics.WebhookRequestsTotal.WithLabelValues(string(providerName), eventType, outcome).Inc()
	metrics.WebhookDuration.WithLabelValues(string(providerName)).Observe(time.Since(start).Seconds())

	return c.JSON(status, body)
}

func (h *WebhookHandler) publish(ctx context.Context, providerName entity.PaymentProvider, eventType, kind, code, message, userID string) {
	if h.sink == nil {
		return
	}
	h.sink.Publish(ctx, provider.FailureEvent{
		Source:  "webhook." + string(providerName),
		Kind:    kind,
		Code:    code,
		Message: message,
		UserID:  userID,
		Fields: map[string]string{
			"event_type": eventType,
		},
		Timestamp: time.Now().UTC(),
	})
}

// record writes the audit entry. Failures are logged and never change the
// provider-facing response.
func (h *WebhookHandler) record(ctx context.Context, providerName entity.PaymentProvider, eventType, outcome, code string, result webhookResult) {
	if h.audit == nil {
		return
	}

	entry := &entity.PaymentEventRecord{
		Provider:   providerName,
		EventType:  eventType,
		Outcome:    outcome,
		ErrorCode:  code,
		ReceivedAt: time.Now().UTC(),
	}
	if result.err != nil {
		entry.ErrorMessage = result.err.Error()
	}
	if ev := result.event; ev != nil {
		entry.UserID = ev.UserID
		entry.SubscriptionRef = ev.ProviderSubscriptionRef
		entry.PlanTarget = ev.PlanTarget
		entry.EventAt = ev.OccurredAt
	}

	if err := h.audit.Save(ctx, entry); err != nil {
		h.logger.Warn("Failed to record payment event",
			zap.String("provider", string(providerName)),
			zap.String("event_type", eventType),
			zap.Error(err))
	}
}

func readWebhookBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody+1))
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidArgument, "error reading request body", err)
	}
	if len(body) > maxWebhookBody {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidArgument, "request body too large", domainErrors.ErrMalformedPayload)
	}
	return body, nil
}

func webhookErrorMessage(err error) string {
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		return appErr.Message()
	}
	return http.StatusText(http.StatusInternalServerError)
}
