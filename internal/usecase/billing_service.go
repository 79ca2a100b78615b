package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	domainErrors "github.com/kauecavalcante/chef-de-geladeira/internal/domain/errors"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/repository"
	apperrors "github.com/kauecavalcante/chef-de-geladeira/pkg/errors"
	"go.uber.org/zap"
)

// BillingService opens provider checkouts and billing portals and cancels
// subscriptions. It never writes plan state itself; that is left to the
// webhook the provider sends afterwards. VerifyPayment is the exception: it
// applies a fetched, approved payment through the reconciler.
type BillingService struct {
	profiles    *ProfileService
	users       repository.UserRepository
	checkouts   map[entity.PaymentProvider]provider.CheckoutProvider
	stripe      provider.StripeBilling
	mercadoPago provider.MercadoPagoAPI
	reconciler  *Reconciler
	clientURL   string
	logger      *zap.Logger
}

// NewBillingService creates the service. stripe and mercadoPago may be nil when
// the provider is not configured.
func NewBillingService(
	profiles *ProfileService,
	users repository.UserRepository,
	checkouts map[entity.PaymentProvider]provider.CheckoutProvider,
	stripe provider.StripeBilling,
	mercadoPago provider.MercadoPagoAPI,
	reconciler *Reconciler,
	clientURL string,
	logger *zap.Logger,
) *BillingService {
	return &BillingService{
		profiles:    profiles,
		users:       users,
		checkouts:   checkouts,
		stripe:      stripe,
		mercadoPago: mercadoPago,
		reconciler:  reconciler,
		clientURL:   strings.TrimRight(clientURL, "/"),
		logger:      logger,
	}
}

// StartCheckout opens a premium checkout with the chosen provider and returns
// the URL to redirect the user to.
func (s *BillingService) StartCheckout(ctx context.Context, userID, email string, providerName entity.PaymentProvider) (string, error) {
	record, err := s.profiles.EnsureProfile(ctx, userID, email)
	if err != nil {
		return "", err
	}

	if email == "" {
		email = record.Email
	}
	if email == "" {
		return "", apperrors.NewAppError(apperrors.ErrInvalidArgument, "Email do usuário não encontrado.", domainErrors.ErrMissingEmail)
	}

	checkout, ok := s.checkouts[providerName]
	if !ok {
		return "", apperrors.NewAppError(apperrors.ErrInvalidArgument,
			fmt.Sprintf("Provedor de pagamento indisponível: %s", providerName), domainErrors.ErrUnsupportedProvider)
	}

	session, err := checkout.CreateCheckout(ctx, &provider.CheckoutRequest{UserID: userID, Email: email})
	if err != nil {
		s.logger.Error("Failed to create checkout",
			zap.String("user_id", userID),
			zap.String("provider", string(providerName)),
			zap.Error(err))
		return "", apperrors.NewAppError(apperrors.ErrUpstream, "Não foi possível iniciar o pagamento.", fmt.Errorf("%w: %v", domainErrors.ErrUpstream, err))
	}

	s.logger.Info("Checkout created",
		zap.String("user_id", userID),
		zap.String("provider", string(providerName)),
		zap.String("session_id", session.ID))
	return session.URL, nil
}

// OpenBillingPortal returns a Stripe billing portal URL for the user's customer.
func (s *BillingService) OpenBillingPortal(ctx context.Context, userID string) (string, error) {
	record, err := s.loadRecord(ctx, userID)
	if err != nil {
		return "", err
	}
	if record.StripeCustomerRef == "" {
		return "", apperrors.NewAppError(apperrors.ErrNotFound, "Cliente de pagamento não encontrado.", domainErrors.ErrNoBillingCustomer)
	}
	if s.stripe == nil {
		return "", apperrors.NewAppError(apperrors.ErrNotImplemented, "Portal de pagamento indisponível.", domainErrors.ErrUnsupportedProvider)
	}

	url, err := s.stripe.CreatePortalSession(ctx, record.StripeCustomerRef, s.clientURL+"/account")
	if err != nil {
		s.logger.Error("Failed to create billing portal session",
			zap.String("user_id", userID),
			zap.Error(err))
		return "", apperrors.NewAppError(apperrors.ErrUpstream, "Não foi possível abrir o portal de pagamento.", fmt.Errorf("%w: %v", domainErrors.ErrUpstream, err))
	}
	return url, nil
}

// CancelSubscription asks the provider holding the user's subscription to
// cancel it. The record changes when the provider's webhook arrives.
func (s *BillingService) CancelSubscription(ctx context.Context, userID string) error {
	record, err := s.loadRecord(ctx, userID)
	if err != nil {
		return err
	}

	providerName, ref := record.ActiveSubscriptionRef()
	switch providerName {
	case entity.PaymentProviderMercadoPago:
		if s.mercadoPago == nil {
			return apperrors.NewAppError(apperrors.ErrNotImplemented, "Mercado Pago indisponível.", domainErrors.ErrUnsupportedProvider)
		}
		err = s.mercadoPago.CancelPreapproval(ctx, ref)
	case entity.PaymentProviderStripe:
		if s.stripe == nil {
			return apperrors.NewAppError(apperrors.ErrNotImplemented, "Stripe indisponível.", domainErrors.ErrUnsupportedProvider)
		}
		err = s.stripe.CancelAtPeriodEnd(ctx, ref)
	default:
		return apperrors.NewAppError(apperrors.ErrNotFound, "Nenhuma assinatura encontrada.", domainErrors.ErrNoSubscription)
	}

	if err != nil {
		s.logger.Error("Failed to cancel subscription",
			zap.String("user_id", userID),
			zap.String("provider", string(providerName)),
			zap.String("subscription_ref", ref),
			zap.Error(err))
		return apperrors.NewAppError(apperrors.ErrUpstream, "Não foi possível cancelar a assinatura.", fmt.Errorf("%w: %v", domainErrors.ErrUpstream, err))
	}

	s.logger.Info("Subscription cancellation requested",
		zap.String("user_id", userID),
		zap.String("provider", string(providerName)),
		zap.String("subscription_ref", ref))
	return nil
}

// VerifyPayment confirms a Mercado Pago payment the user was redirected back
// with. An approved payment belonging to the user that carries a pre-approval
// is applied immediately instead of waiting for the webhook.
func (s *BillingService) VerifyPayment(ctx context.Context, userID, paymentID string) error {
	if s.mercadoPago == nil {
		return apperrors.NewAppError(apperrors.ErrNotImplemented, "Mercado Pago indisponível.", domainErrors.ErrUnsupportedProvider)
	}

	payment, err := s.mercadoPago.GetPayment(ctx, paymentID)
	if err != nil {
		s.logger.Error("Failed to fetch payment for verification",
			zap.String("user_id", userID),
			zap.String("payment_id", paymentID),
			zap.Error(err))
		return apperrors.NewAppError(apperrors.ErrUpstream, "Não foi possível verificar o pagamento.", fmt.Errorf("%w: %v", domainErrors.ErrUpstream, err))
	}

	if payment.Status != mercadoPagoStatusApproved || payment.ExternalReference != userID || payment.PreapprovalID == "" {
		s.logger.Warn("Payment verification rejected",
			zap.String("user_id", userID),
			zap.String("payment_id", paymentID),
			zap.String("status", payment.Status),
			zap.Bool("reference_matches", payment.ExternalReference == userID))
		return apperrors.NewAppError(apperrors.ErrInvalidArgument, "Pagamento não aprovado ou inválido.", domainErrors.ErrPaymentNotVerified)
	}

	outcome, err := s.reconciler.Apply(ctx, &entity.NormalizedPaymentEvent{
		UserID:                  userID,
		PlanTarget:              entity.PlanPremium,
		StatusTarget:            entity.SubscriptionStatusAuthorized,
		ProviderSubscriptionRef: payment.PreapprovalID,
		SourceProvider:          entity.PaymentProviderMercadoPago,
		SourceEventType:         "payment.verified",
		OccurredAt:              payment.LastUpdated,
	})
	if err != nil {
		return err
	}
	if outcome == ReconcileDropped {
		return apperrors.NewAppError(apperrors.ErrNotFound, "Usuário não encontrado.", domainErrors.ErrUserNotFound)
	}
	return nil
}

func (s *BillingService) loadRecord(ctx context.Context, userID string) (*entity.UserSubscriptionRecord, error) {
	record, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrUserNotFound) {
			return nil, apperrors.NewAppError(apperrors.ErrNotFound, "Usuário não encontrado.", err)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return record, nil
}
