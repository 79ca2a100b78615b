package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	domainErrors "github.com/kauecavalcante/chef-de-geladeira/internal/domain/errors"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/kauecavalcante/chef-de-geladeira/internal/metrics"
	"github.com/kauecavalcante/chef-de-geladeira/internal/usecase"
	apperrors "github.com/kauecavalcante/chef-de-geladeira/pkg/errors"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"
)

const webhookSecret = "whsec_handler_test"

type webhookFixture struct {
	reconciler  *mockEventApplier
	mercadoPago *mockMercadoPagoSource
	sink        *mockEventSink
	audit       *mockEventAuditor
	e           *echo.Echo
}

func newWebhookFixture(withMercadoPago bool) *webhookFixture {
	f := &webhookFixture{
		reconciler:  new(mockEventApplier),
		mercadoPago: new(mockMercadoPagoSource),
		sink:        new(mockEventSink),
		audit:       new(mockEventAuditor),
		e:           newTestEcho(),
	}
	f.audit.On("Save", mock.Anything, mock.Anything).Return(nil).Maybe()

	var mp MercadoPagoEventSource
	if withMercadoPago {
		mp = f.mercadoPago
	}
	h := NewWebhookHandler(
		usecase.NewStripeEventNormalizer(webhookSecret, zap.NewNop()),
		mp,
		f.reconciler,
		f.sink,
		f.audit,
		zap.NewNop(),
	)
	f.e.POST("/webhook/stripe", h.HandleStripe)
	f.e.POST("/webhook/mercadopago", h.HandleMercadoPago)
	return f
}

func checkoutCompletedPayload() []byte {
	return []byte(fmt.Sprintf(`{
  "id": "evt_1",
  "object": "event",
  "api_version": "2024-06-20",
  "created": %d,
  "type": "checkout.session.completed",
  "data": {"object": {
    "id": "cs_1",
    "object": "checkout.session",
    "mode": "subscription",
    "customer": "cus_1",
    "subscription": "sub_1",
    "metadata": {"firebaseUID": "U"}
  }}
}`, time.Now().Unix()))
}

func postStripe(e *echo.Echo, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/stripe", strings.NewReader(string(payload)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	}).Header
}

func TestWebhookHandler_Stripe(t *testing.T) {
	t.Run("checkout completed is applied and acknowledged", func(t *testing.T) {
		f := newWebhookFixture(true)
		f.reconciler.On("Apply", mock.Anything, mock.MatchedBy(func(e *entity.NormalizedPaymentEvent) bool {
			return e.UserID == "U" && e.PlanTarget == entity.PlanPremium && e.ProviderSubscriptionRef == "sub_1"
		})).Return(usecase.ReconcileApplied, nil)

		payload := checkoutCompletedPayload()
		rec := postStripe(f.e, payload, sign(payload, webhookSecret))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"received":true}`, rec.Body.String())
		f.reconciler.AssertExpectations(t)
		f.sink.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("delivery is recorded in the audit log", func(t *testing.T) {
		f := newWebhookFixture(true)
		f.reconciler.On("Apply", mock.Anything, mock.Anything).Return(usecase.ReconcileApplied, nil)
		f.audit.ExpectedCalls = nil
		f.audit.On("Save", mock.Anything, mock.MatchedBy(func(e *entity.PaymentEventRecord) bool {
			return e.Provider == entity.PaymentProviderStripe &&
				e.EventType == "checkout.session.completed" &&
				e.UserID == "U" &&
				e.SubscriptionRef == "sub_1" &&
				e.Outcome == string(usecase.ReconcileApplied) &&
				e.ErrorCode == ""
		})).Return(nil).Once()

		payload := checkoutCompletedPayload()
		rec := postStripe(f.e, payload, sign(payload, webhookSecret))

		assert.Equal(t, http.StatusOK, rec.Code)
		f.audit.AssertExpectations(t)
	})

	t.Run("audit failure does not change the response", func(t *testing.T) {
		f := newWebhookFixture(true)
		f.reconciler.On("Apply", mock.Anything, mock.Anything).Return(usecase.ReconcileApplied, nil)
		f.audit.ExpectedCalls = nil
		f.audit.On("Save", mock.Anything, mock.Anything).Return(errors.New("disk full"))

		payload := checkoutCompletedPayload()
		rec := postStripe(f.e, payload, sign(payload, webhookSecret))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	})

	t.Run("bad signature is rejected before any state change", func(t *testing.T) {
		f := newWebhookFixture(true)
		f.sink.On("Publish", mock.Anything, mock.MatchedBy(func(e provider.FailureEvent) bool {
			return e.Source == "webhook.stripe" && e.Kind == "rejected" && e.Code == apperrors.ErrUnauthenticated
		})).Return()

		payload := checkoutCompletedPayload()
		rec := postStripe(f.e, payload, sign(payload, "whsec_other"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.reconciler.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
		f.sink.AssertExpectations(t)
	})

	t.Run("missing signature", func(t *testing.T) {
		f := newWebhookFixture(true)
		f.sink.On("Publish", mock.Anything, mock.Anything).Return()

		rec := postStripe(f.e, checkoutCompletedPayload(), "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.reconciler.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
	})

	t.Run("unhandled event type is acknowledged", func(t *testing.T) {
		f := newWebhookFixture(true)

		payload := []byte(fmt.Sprintf(`{"id":"evt_2","object":"event","created":%d,"type":"invoice.paid","data":{"object":{"id":"in_1","object":"invoice"}}}`,
			time.Now().Unix()))
		rec := postStripe(f.e, payload, sign(payload, webhookSecret))

		assert.Equal(t, http.StatusOK, rec.Code)
		f.reconciler.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
	})

	t.Run("store failure asks Stripe to redeliver", func(t *testing.T) {
		f := newWebhookFixture(true)
		f.reconciler.On("Apply", mock.Anything, mock.Anything).Return(usecase.ReconcileOutcome(""), errors.New("connection refused"))
		f.sink.On("Publish", mock.Anything, mock.MatchedBy(func(e provider.FailureEvent) bool {
			return e.Kind == "error" && e.UserID == "U" && e.Fields["event_type"] == "checkout.session.completed"
		})).Return()

		payload := checkoutCompletedPayload()
		rec := postStripe(f.e, payload, sign(payload, webhookSecret))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "connection refused")
		f.sink.AssertExpectations(t)
	})

	t.Run("unresolved user is acknowledged and reported", func(t *testing.T) {
		f := newWebhookFixture(true)
		f.reconciler.On("Apply", mock.Anything, mock.Anything).Return(usecase.ReconcileDropped, nil)
		f.sink.On("Publish", mock.Anything, mock.MatchedBy(func(e provider.FailureEvent) bool {
			return e.Kind == "dropped" && e.Code == apperrors.ErrNotFound
		})).Return()

		payload := checkoutCompletedPayload()
		rec := postStripe(f.e, payload, sign(payload, webhookSecret))

		assert.Equal(t, http.StatusOK, rec.Code)
		f.sink.AssertExpectations(t)
	})
}

func TestWebhookHandler_MercadoPago(t *testing.T) {
	post := func(e *echo.Echo, target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	t.Run("unresolvable payment is acknowledged without mutation", func(t *testing.T) {
		f := newWebhookFixture(true)
		f.mercadoPago.On("Normalize", mock.Anything, []byte(`{"type":"payment","data":{"id":"42"}}`), mock.Anything).
			Return(nil, "payment", nil)

		rec := post(f.e, "/webhook/mercadopago", `{"type":"payment","data":{"id":"42"}}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		f.reconciler.AssertNotCalled(t, "Apply", mock.Anything, mock.Anything)
	})

	t.Run("query parameters reach the normalizer", func(t *testing.T) {
		f := newWebhookFixture(true)
		event := &entity.NormalizedPaymentEvent{
			UserID:         "U",
			PlanTarget:     entity.PlanPremium,
			SourceProvider: entity.PaymentProviderMercadoPago,
		}
		f.mercadoPago.On("Normalize", mock.Anything, mock.Anything, mock.MatchedBy(func(q url.Values) bool {
			return q.Get("topic") == "preapproval" && q.Get("id") == "pre_1"
		})).Return(event, "preapproval", nil)
		f.reconciler.On("Apply", mock.Anything, event).Return(usecase.ReconcileApplied, nil)

		rec := post(f.e, "/webhook/mercadopago?topic=preapproval&id=pre_1", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		f.reconciler.AssertExpectations(t)
	})

	t.Run("malformed body is a client error", func(t *testing.T) {
		f := newWebhookFixture(true)
		f.mercadoPago.On("Normalize", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, "", apperrors.NewAppError(apperrors.ErrInvalidArgument, "failed to parse notification", domainErrors.ErrMalformedPayload))
		f.sink.On("Publish", mock.Anything, mock.Anything).Return()

		rec := post(f.e, "/webhook/mercadopago", `{not json`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, apperrors.ErrInvalidArgument, decodeBody(t, rec)["code"])
		f.audit.AssertCalled(t, "Save", mock.Anything, mock.MatchedBy(func(e *entity.PaymentEventRecord) bool {
			return e.Outcome == "rejected" && e.ErrorCode == apperrors.ErrInvalidArgument
		}))
	})

	t.Run("caller-chosen types collapse into one metric series", func(t *testing.T) {
		f := newWebhookFixture(true)
		for i := 0; i < 20; i++ {
			f.mercadoPago.On("Normalize", mock.Anything, []byte(fmt.Sprintf(`{"type":"junk-%d"}`, i)), mock.Anything).
				Return(nil, fmt.Sprintf("junk-%d", i), nil)
		}
		f.audit.ExpectedCalls = nil
		f.audit.On("Save", mock.Anything, mock.MatchedBy(func(e *entity.PaymentEventRecord) bool {
			return e.EventType == "other"
		})).Return(nil)

		seriesBefore := testutil.CollectAndCount(metrics.WebhookRequestsTotal)
		otherBefore := testutil.ToFloat64(metrics.WebhookRequestsTotal.WithLabelValues("mercadopago", "other", outcomeIgnored))

		for i := 0; i < 20; i++ {
			rec := post(f.e, "/webhook/mercadopago", fmt.Sprintf(`{"type":"junk-%d"}`, i))
			require.Equal(t, http.StatusOK, rec.Code)
		}

		assert.Equal(t, otherBefore+20, testutil.ToFloat64(metrics.WebhookRequestsTotal.WithLabelValues("mercadopago", "other", outcomeIgnored)))
		assert.LessOrEqual(t, testutil.CollectAndCount(metrics.WebhookRequestsTotal), seriesBefore+1)
		f.audit.AssertNumberOfCalls(t, "Save", 20)
	})

	t.Run("not configured", func(t *testing.T) {
		f := newWebhookFixture(false)
		f.sink.On("Publish", mock.Anything, mock.Anything).Return()

		rec := post(f.e, "/webhook/mercadopago", `{"type":"payment","data":{"id":"42"}}`)

		assert.Equal(t, http.StatusNotImplemented, rec.Code)
		f.audit.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestEventTypeLabel(t *testing.T) {
	tests := []struct {
		provider  entity.PaymentProvider
		eventType string
		want      string
	}{
		{entity.PaymentProviderStripe, "customer.subscription.deleted", "customer.subscription.deleted"},
		{entity.PaymentProviderStripe, "invoice.paid", "other"},
		{entity.PaymentProviderStripe, "", "unknown"},
		{entity.PaymentProviderMercadoPago, "payment", "payment"},
		{entity.PaymentProviderMercadoPago, "subscription_preapproval", "subscription_preapproval"},
		{entity.PaymentProviderMercadoPago, "checkout.session.completed", "other"},
		{entity.PaymentProviderMercadoPago, "junk-1", "other"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, eventTypeLabel(tt.provider, tt.eventType), "%s %q", tt.provider, tt.eventType)
	}
}
