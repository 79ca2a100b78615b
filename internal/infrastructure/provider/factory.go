package provider

import (
	"github.com/kauecavalcante/chef-de-geladeira/internal/config"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/entity"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	mercadoPagoProvider "github.com/kauecavalcante/chef-de-geladeira/internal/infrastructure/provider/mercadopago"
	stripeProvider "github.com/kauecavalcante/chef-de-geladeira/internal/infrastructure/provider/stripe"
	"go.uber.org/zap"
)

// Providers holds the configured payment provider clients. A provider without
// credentials is left nil and absent from Checkouts.
type Providers struct {
	Stripe      provider.StripeBilling
	MercadoPago provider.MercadoPagoAPI
	Checkouts   map[entity.PaymentProvider]provider.CheckoutProvider
}

// Factory creates payment providers from configuration
type Factory struct {
	config *config.Config
	logger *zap.Logger
}

// NewFactory creates a new provider factory
func NewFactory(config *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		config: config,
		logger: logger,
	}
}

// Build creates every provider that has credentials. Invalid settings for a
// configured provider are returned as errors.
func (f *Factory) Build() (*Providers, error) {
	providers := &Providers{
		Checkouts: map[entity.PaymentProvider]provider.CheckoutProvider{},
	}

	if f.config.Stripe.SecretKey != "" {
		stripeClient, err := stripeProvider.NewStripeProvider(f.config.Stripe, f.config.Service.ClientURL, f.logger)
		if err != nil {
			return nil, err
		}
		providers.Stripe = stripeClient
		providers.Checkouts[entity.PaymentProviderStripe] = stripeClient
	} else {
		f.logger.Warn("Stripe is not configured; checkout and portal are disabled")
	}

	if f.config.MercadoPago.AccessToken != "" {
		mpClient, err := mercadoPagoProvider.NewClient(f.config.MercadoPago, f.config.Service.ClientURL, f.logger)
		if err != nil {
			return nil, err
		}
		providers.MercadoPago = mpClient
		providers.Checkouts[entity.PaymentProviderMercadoPago] = mpClient
	} else {
		f.logger.Warn("Mercado Pago is not configured; checkout and notifications are disabled")
	}

	return providers, nil
}
