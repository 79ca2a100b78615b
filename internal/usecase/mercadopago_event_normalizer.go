package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	domainErrors "github.com/kauecavalcante/chef-de-geladeira/internal/domain/errors"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	apperrors "github.com/kauecavalcante/chef-de-geladeira/pkg/errors"
	"go.uber.org/zap"
)

const (
	mercadoPagoTopicPayment     = "payment"
	mercadoPagoTopicPreapproval = "preapproval"
	mercadoPagoStatusApproved   = "approved"
)

// MercadoPagoNotification is the webhook body Mercado Pago posts.
type MercadoPagoNotification struct {
	Type   string `json:"type"`
	Topic  string `json:"topic"`
	Action string `json:"action"`
	Data   struct {
		ID resourceID `json:"id"`
	} `json:"data"`
}

// resourceID accepts both string and numeric ids.
type resourceID string

func (r *resourceID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = resourceID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = resourceID(n.String())
	return nil
}

// MercadoPagoEventNormalizer turns Mercado Pago notifications into
// NormalizedPaymentEvent. Notifications are unsigned, so every resource is
// re-fetched from the API and only the fetched state is trusted.
type MercadoPagoEventNormalizer struct {
	api    provider.MercadoPagoAPI
	logger *zap.Logger
}

func NewMercadoPagoEventNormalizer(api provider.MercadoPagoAPI, logger *zap.Logger) *MercadoPagoEventNormalizer {
	return &MercadoPagoEventNormalizer{
		api:    api,
		logger: logger,
	}
}

// Normalize parses body and resolves the referenced resource. A malformed body
// is an INVALID_ARGUMENT error; every other unmet condition, including a failed
// re-fetch, yields a nil event and no error. query carries the legacy
// ?topic=&id= form some notifications use.
func (n *MercadoPagoEventNormalizer) Normalize(ctx context.Context, body []byte, query url.Values) (*entity.NormalizedPaymentEvent, string, error) {
	var notification MercadoPagoNotification
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &notification); err != nil {
			return nil, "", apperrors.NewAppError(apperrors.ErrInvalidArgument,
				"failed to parse notification", domainErrors.ErrMalformedPayload)
		}
	}

	topic := firstNonEmpty(notification.Type, notification.Topic, query.Get("type"), query.Get("topic"))
	id := firstNonEmpty(string(notification.Data.ID), query.Get("data.id"), query.Get("id"))

	n.logger.Info("Mercado Pago notification received",
		zap.String("type", topic),
		zap.String("action", notification.Action),
		zap.String("resource_id", id))

	if id == "" {
		n.logger.Warn("Mercado Pago notification without resource id", zap.String("type", topic))
		return nil, topic, nil
	}

	switch topic {
	case mercadoPagoTopicPayment:
		return n.fromPayment(ctx, id), topic, nil
	case mercadoPagoTopicPreapproval, "subscription_preapproval":
		return n.fromPreapproval(ctx, id), topic, nil
	default:
		n.logger.Debug("Ignoring unhandled Mercado Pago notification", zap.String("type", topic))
		return nil, topic, nil
	}
}

func (n *MercadoPagoEventNormalizer) fromPayment(ctx context.Context, paymentID string) *entity.NormalizedPaymentEvent {
	payment, err := n.api.GetPayment(ctx, paymentID)
	if err != nil {
		n.logger.Error("Failed to fetch Mercado Pago payment",
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return nil
	}

	if payment.Status != mercadoPagoStatusApproved || payment.ExternalReference == "" {
		n.logger.Info("Mercado Pago payment not applicable",
			zap.String("payment_id", paymentID),
			zap.String("status", payment.Status),
			zap.Bool("has_reference", payment.ExternalReference != ""))
		return nil
	}

	subscriptionRef := payment.PreapprovalID
	if subscriptionRef == "" {
		preapproval, err := n.api.SearchLatestPreapproval(ctx, payment.ExternalReference)
		if err != nil {
			n.logger.Warn("Failed to look up Mercado Pago pre-approval",
				zap.String("external_reference", payment.ExternalReference),
				zap.Error(err))
		} else if preapproval != nil {
			subscriptionRef = preapproval.ID
		}
	}

	return &entity.NormalizedPaymentEvent{
		UserID:                  payment.ExternalReference,
		PlanTarget:              entity.PlanPremium,
		StatusTarget:            entity.SubscriptionStatusAuthorized,
		ProviderSubscriptionRef: subscriptionRef,
		SourceProvider:          entity.PaymentProviderMercadoPago,
		SourceEventType:         mercadoPagoTopicPayment,
		OccurredAt:              payment.LastUpdated,
	}
}

func (n *MercadoPagoEventNormalizer) fromPreapproval(ctx context.Context, preapprovalID string) *entity.NormalizedPaymentEvent {
	preapproval, err := n.api.GetPreapproval(ctx, preapprovalID)
	if err != nil {
		n.logger.Error("Failed to fetch Mercado Pago pre-approval",
			zap.String("preapproval_id", preapprovalID),
			zap.Error(err))
		return nil
	}

	status := entity.SubscriptionStatus(strings.ToLower(preapproval.Status))
	plan := entity.PlanFree
	if status == entity.SubscriptionStatusAuthorized {
		plan = entity.PlanPremium
	}

	return &entity.NormalizedPaymentEvent{
		UserID:                  preapproval.ExternalReference,
		PlanTarget:              plan,
		StatusTarget:            status,
		ProviderSubscriptionRef: preapproval.ID,
		SourceProvider:          entity.PaymentProviderMercadoPago,
		SourceEventType:         mercadoPagoTopicPreapproval,
		OccurredAt:              preapproval.LastModified,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
