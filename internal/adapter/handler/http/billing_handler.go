package http

import (
	"context"
	"net/http"

	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// BillingManager is the billing use case the handler depends on.
type BillingManager interface {
	StartCheckout(ctx context.Context, userID, email string, providerName entity.PaymentProvider) (string, error)
	OpenBillingPortal(ctx context.Context, userID string) (string, error)
	CancelSubscription(ctx context.Context, userID string) error
	VerifyPayment(ctx context.Context, userID, paymentID string) error
}

type BillingHandler struct {
	billing BillingManager
	logger  *zap.Logger
}

func NewBillingHandler(billing BillingManager, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{
		billing: billing,
		logger:  logger,
	}
}

type CheckoutRequest struct {
	Provider string `json:"provider" validate:"required,oneof=stripe mercadopago"`
}

type CheckoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
}

type PortalResponse struct {
	PortalURL string `json:"portalUrl"`
}

type VerifyPaymentRequest struct {
	PaymentID string `json:"paymentId" validate:"required,max=64"`
}

// CreateCheckout handles POST /api/v1/billing/checkout.
func (h *BillingHandler) CreateCheckout(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req CheckoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	url, err := h.billing.StartCheckout(c.Request().Context(), user.UserID, user.Email, entity.PaymentProvider(req.Provider))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, CheckoutResponse{CheckoutURL: url})
}

// CreatePortalSession handles POST /api/v1/billing/portal.
func (h *BillingHandler) CreatePortalSession(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	url, err := h.billing.OpenBillingPortal(c.Request().Context(), user.UserID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, PortalResponse{PortalURL: url})
}

// CancelSubscription handles POST /api/v1/billing/cancel.
func (h *BillingHandler) CancelSubscription(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	if err := h.billing.CancelSubscription(c.Request().Context(), user.UserID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "Cancelamento solicitado. Seu plano será atualizado em instantes.",
	})
}

// VerifyPayment handles POST /api/v1/billing/verify.
func (h *BillingHandler) VerifyPayment(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req VerifyPaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.billing.VerifyPayment(c.Request().Context(), user.UserID, req.PaymentID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
