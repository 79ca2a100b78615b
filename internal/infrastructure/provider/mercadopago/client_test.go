package mercadopago_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kauecavalcante/chef-de-geladeira/internal/config"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/kauecavalcante/chef-de-geladeira/internal/infrastructure/provider/mercadopago"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *mercadopago.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := mercadopago.NewClient(config.MercadoPagoConfig{
		AccessToken: "TEST-token",
		BaseURL:     srv.URL,
		PlanID:      "premium",
		PlanTitle:   "Chef de Geladeira - Plano Premium",
		UnitPrice:   "9.9",
		Currency:    "BRL",
		Timeout:     5 * time.Second,
	}, "https://chef.example.com", zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestClient_GetPayment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payments/123", r.URL.Path)
		assert.Equal(t, "Bearer TEST-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": 123,
			"status": "approved",
			"external_reference": "U",
			"date_last_updated": "2024-06-02T09:30:00.000-04:00",
			"point_of_interaction": {"transaction_data": {"subscription_id": "pre_1"}}
		}`)
	})

	payment, err := client.GetPayment(context.Background(), "123")

	require.NoError(t, err)
	assert.Equal(t, "123", payment.ID)
	assert.Equal(t, "approved", payment.Status)
	assert.Equal(t, "U", payment.ExternalReference)
	assert.Equal(t, "pre_1", payment.PreapprovalID)
	require.NotNil(t, payment.LastUpdated)
	assert.Equal(t, time.Date(2024, time.June, 2, 13, 30, 0, 0, time.UTC), *payment.LastUpdated)
}

func TestClient_GetPayment_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"message": "Payment not found", "error": "not_found", "status": 404}`)
	})

	_, err := client.GetPayment(context.Background(), "999")

	var providerErr *provider.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, "not_found", providerErr.Code)
	assert.Equal(t, http.StatusNotFound, providerErr.StatusCode)
}

func TestClient_SearchLatestPreapproval(t *testing.T) {
	t.Run("returns the newest result", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/preapproval/search", r.URL.Path)
			assert.Equal(t, "U", r.URL.Query().Get("external_reference"))
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			assert.Equal(t, "desc", r.URL.Query().Get("criteria"))
			_, _ = io.WriteString(w, `{"results": [{"id": "pre_9", "status": "authorized", "external_reference": "U"}]}`)
		})

		preapproval, err := client.SearchLatestPreapproval(context.Background(), "U")

		require.NoError(t, err)
		require.NotNil(t, preapproval)
		assert.Equal(t, "pre_9", preapproval.ID)
		assert.Equal(t, "authorized", preapproval.Status)
	})

	t.Run("returns nil when there is none", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"results": []}`)
		})

		preapproval, err := client.SearchLatestPreapproval(context.Background(), "U")

		require.NoError(t, err)
		assert.Nil(t, preapproval)
	})
}

func TestClient_CancelPreapproval(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/preapproval/pre_1", r.URL.Path)

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "cancelled", body["status"])
		_, _ = io.WriteString(w, `{"id": "pre_1", "status": "cancelled"}`)
	})

	require.NoError(t, client.CancelPreapproval(context.Background(), "pre_1"))
}

func TestClient_CreateCheckout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)

		var body struct {
			Items []struct {
				Title      string          `json:"title"`
				Quantity   int             `json:"quantity"`
				UnitPrice  json.RawMessage `json:"unit_price"`
				CurrencyID string          `json:"currency_id"`
			} `json:"items"`
			Payer             map[string]string `json:"payer"`
			BackURLs          map[string]string `json:"back_urls"`
			AutoReturn        string            `json:"auto_return"`
			ExternalReference string            `json:"external_reference"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.Items, 1) {
			assert.Equal(t, "9.90", string(body.Items[0].UnitPrice))
			assert.Equal(t, "BRL", body.Items[0].CurrencyID)
			assert.Equal(t, 1, body.Items[0].Quantity)
		}
		assert.Equal(t, "u@example.com", body.Payer["email"])
		assert.Equal(t, "https://chef.example.com/pricing", body.BackURLs["failure"])
		assert.Equal(t, "approved", body.AutoReturn)
		assert.Equal(t, "U", body.ExternalReference)

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id": "pref_1", "init_point": "https://www.mercadopago.com.br/checkout/v1/redirect?pref_id=pref_1"}`)
	})

	session, err := client.CreateCheckout(context.Background(), &provider.CheckoutRequest{UserID: "U", Email: "u@example.com"})

	require.NoError(t, err)
	assert.Equal(t, "pref_1", session.ID)
	assert.Contains(t, session.URL, "pref_id=pref_1")
}

func TestNewClient_Validation(t *testing.T) {
	_, err := mercadopago.NewClient(config.MercadoPagoConfig{UnitPrice: "9.90"}, "", zap.NewNop())
	assert.Error(t, err)

	_, err = mercadopago.NewClient(config.MercadoPagoConfig{AccessToken: "t", UnitPrice: "nove"}, "", zap.NewNop())
	assert.Error(t, err)

	_, err = mercadopago.NewClient(config.MercadoPagoConfig{AccessToken: "t", UnitPrice: "0"}, "", zap.NewNop())
	assert.Error(t, err)
}
