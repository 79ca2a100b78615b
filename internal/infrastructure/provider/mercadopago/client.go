package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/config"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://api.mercadopago.com"

// Client is a Mercado Pago REST client for payments, pre-approvals and
// checkout preferences.
type Client struct {
	accessToken string
	baseURL     string
	planID      string
	planTitle   string
	currency    string
	unitPrice   decimal.Decimal
	clientURL   string
	client      *http.Client
	logger      *zap.Logger
}

// NewClient creates a client from cfg. clientURL is the web app origin used
// for checkout return URLs.
func NewClient(cfg config.MercadoPagoConfig, clientURL string, logger *zap.Logger) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("Mercado Pago access token not configured")
	}

	price, err := decimal.NewFromString(cfg.UnitPrice)
	if err != nil {
		return nil, fmt.Errorf("invalid Mercado Pago unit price %q: %w", cfg.UnitPrice, err)
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("Mercado Pago unit price must be positive, got %s", price)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		accessToken: cfg.AccessToken,
		baseURL:     strings.TrimRight(baseURL, "/"),
		planID:      cfg.PlanID,
		planTitle:   cfg.PlanTitle,
		currency:    cfg.Currency,
		unitPrice:   price.Round(2),
		clientURL:   strings.TrimRight(clientURL, "/"),
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}, nil
}

// Name returns the provider name
func (c *Client) Name() entity.PaymentProvider {
	return entity.PaymentProviderMercadoPago
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
	PreapprovalID     string      `json:"preapproval_id"`
	DateLastUpdated   string      `json:"date_last_updated"`
	Metadata          struct {
		PreapprovalID string `json:"preapproval_id"`
	} `json:"metadata"`
	PointOfInteraction struct {
		TransactionData struct {
			SubscriptionID string `json:"subscription_id"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// GetPayment fetches a payment
// GET /v1/payments/{id}
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*provider.Payment, error) {
	var resp paymentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), nil, &resp); err != nil {
		return nil, err
	}

	preapprovalID := resp.PreapprovalID
	if preapprovalID == "" {
		preapprovalID = resp.Metadata.PreapprovalID
	}
	if preapprovalID == "" {
		preapprovalID = resp.PointOfInteraction.TransactionData.SubscriptionID
	}

	return &provider.Payment{
		ID:                resp.ID.String(),
		Status:            resp.Status,
		ExternalReference: resp.ExternalReference,
		PreapprovalID:     preapprovalID,
		LastUpdated:       parseTime(resp.DateLastUpdated),
	}, nil
}

type preapprovalResponse struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
	LastModified      string `json:"last_modified"`
}

func (p *preapprovalResponse) toProvider() *provider.Preapproval {
	return &provider.Preapproval{
		ID:                p.ID,
		Status:            p.Status,
		ExternalReference: p.ExternalReference,
		LastModified:      parseTime(p.LastModified),
	}
}

// GetPreapproval fetches a subscription
// GET /preapproval/{id}
func (c *Client) GetPreapproval(ctx context.Context, preapprovalID string) (*provider.Preapproval, error) {
	var resp preapprovalResponse
	if err := c.do(ctx, http.MethodGet, "/preapproval/"+url.PathEscape(preapprovalID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.toProvider(), nil
}

// SearchLatestPreapproval returns the newest subscription for externalReference
// GET /preapproval/search
func (c *Client) SearchLatestPreapproval(ctx context.Context, externalReference string) (*provider.Preapproval, error) {
	query := url.Values{}
	query.Set("external_reference", externalReference)
	query.Set("limit", "1")
	query.Set("sort", "date_created")
	query.Set("criteria", "desc")

	var resp struct {
		Results []preapprovalResponse `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/preapproval/search?"+query.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return resp.Results[0].toProvider(), nil
}

// CancelPreapproval cancels a subscription
// PUT /preapproval/{id}
func (c *Client) CancelPreapproval(ctx context.Context, preapprovalID string) error {
	body := map[string]string{"status": "cancelled"}
	if err := c.do(ctx, http.MethodPut, "/preapproval/"+url.PathEscape(preapprovalID), body, nil); err != nil {
		return err
	}

	c.logger.Info("MercadoPago: Pre-approval cancelled", zap.String("preapproval_id", preapprovalID))
	return nil
}

type preferenceItem struct {
	ID         string      `json:"id,omitempty"`
	Title      string      `json:"title"`
	Quantity   int         `json:"quantity"`
	UnitPrice  json.Number `json:"unit_price"`
	CurrencyID string      `json:"currency_id"`
}

type preferenceRequest struct {
	Items             []preferenceItem  `json:"items"`
	Payer             map[string]string `json:"payer"`
	BackURLs          map[string]string `json:"back_urls"`
	AutoReturn        string            `json:"auto_return,omitempty"`
	ExternalReference string            `json:"external_reference"`
}

// CreateCheckout creates a checkout preference for the premium plan
// POST /checkout/preferences
func (c *Client) CreateCheckout(ctx context.Context, req *provider.CheckoutRequest) (*provider.CheckoutSession, error) {
	body := preferenceRequest{
		Items: []preferenceItem{{
			ID:         c.planID,
			Title:      c.planTitle,
			Quantity:   1,
			UnitPrice:  json.Number(c.unitPrice.StringFixed(2)),
			CurrencyID: c.currency,
		}},
		Payer: map[string]string{"email": req.Email},
		BackURLs: map[string]string{
			"success": c.clientURL + "/",
			"failure": c.clientURL + "/pricing",
			"pending": c.clientURL + "/pricing",
		},
		ExternalReference: req.UserID,
	}
	if strings.HasPrefix(c.clientURL, "https://") {
		// Mercado Pago rejects auto_return for non-https success URLs.
		body.AutoReturn = "approved"
	}

	var resp struct {
		ID        string `json:"id"`
		InitPoint string `json:"init_point"`
	}
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", body, &resp); err != nil {
		return nil, err
	}
	if resp.InitPoint == "" {
		return nil, &provider.ProviderError{
			Code:    "EMPTY_INIT_POINT",
			Message: "Mercado Pago returned no checkout URL",
		}
	}

	c.logger.Info("MercadoPago: Checkout preference created",
		zap.String("preference_id", resp.ID),
		zap.String("user_id", req.UserID))

	return &provider.CheckoutSession{ID: resp.ID, URL: resp.InitPoint}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return &provider.ProviderError{
				Code:    "MARSHAL_ERROR",
				Message: "Failed to prepare request",
				Details: err.Error(),
			}
		}
		reader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create request",
			Details: err.Error(),
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.logger.Error("MercadoPago: Request failed",
			zap.String("method", method),
			zap.String("path", redactQuery(path)),
			zap.Error(err))
		return &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "Mercado Pago API request failed",
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &provider.ProviderError{
			Code:    "RESPONSE_ERROR",
			Message: "Failed to read response",
			Details: err.Error(),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.Unmarshal(respBody, &errResp)

		c.logger.Error("MercadoPago: API error",
			zap.String("method", method),
			zap.String("path", redactQuery(path)),
			zap.Int("status_code", resp.StatusCode),
			zap.String("error", errResp.Error))

		code := errResp.Error
		if code == "" {
			code = fmt.Sprintf("HTTP_%d", resp.StatusCode)
		}
		message := errResp.Message
		if message == "" {
			message = fmt.Sprintf("Mercado Pago returned status %d", resp.StatusCode)
		}
		return &provider.ProviderError{
			Code:       code,
			Message:    message,
			Details:    string(respBody),
			StatusCode: resp.StatusCode,
		}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse response",
			Details: err.Error(),
		}
	}
	return nil
}

func redactQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}

// parseTime parses Mercado Pago timestamps such as 2024-06-02T09:30:00.000-04:00.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
