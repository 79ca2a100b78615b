package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	handlers "github.com/kauecavalcante/chef-de-geladeira/internal/adapter/handler/http"
	"github.com/kauecavalcante/chef-de-geladeira/internal/config"
	"github.com/kauecavalcante/chef-de-geladeira/internal/middleware/auth"
	"github.com/kauecavalcante/chef-de-geladeira/internal/middleware/ratelimit"
	"github.com/kauecavalcante/chef-de-geladeira/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers the server routes to.
type Handlers struct {
	Recipe     *handlers.RecipeHandler
	Ingredient *handlers.IngredientHandler
	Profile    *handlers.ProfileHandler
	Billing    *handlers.BillingHandler
	Abuse      *handlers.AbuseHandler
	Webhook    *handlers.WebhookHandler
}

type Server struct {
	config   *config.Config
	logger   *zap.Logger
	echo     *echo.Echo
	handlers *Handlers
	limiter  *ratelimit.RateLimiter
	cancel   context.CancelFunc
}

func NewServer(cfg *config.Config, log *zap.Logger, h *Handlers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handlers.NewRequestValidator()
	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(log)
	logger.WithEchoLogger(e, log)

	bodyLimit := cfg.Server.HTTP.BodyLimit
	if bodyLimit == "" {
		bodyLimit = "1M"
	}

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(logger.NewEchoRequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.HTTP.AllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	rate := cfg.Server.HTTP.FilterRate
	if rate <= 0 {
		rate = 1
	}
	burst := cfg.Server.HTTP.FilterBurst
	if burst <= 0 {
		burst = 5
	}

	s := &Server{
		config:   cfg,
		logger:   log,
		echo:     e,
		handlers: h,
		limiter:  ratelimit.NewRateLimiter(ctx, rate, burst),
		cancel:   cancel,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.HTTP.Host, s.config.Server.HTTP.Port)
	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.echo.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	// Health check
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": s.config.Service.Name,
			"version": s.config.Service.Version,
		})
	})
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Webhooks are authenticated by signature or by re-fetching the resource.
	s.echo.POST("/webhook", s.handlers.Webhook.HandleStripe)
	s.echo.POST("/webhook/stripe", s.handlers.Webhook.HandleStripe)
	s.echo.POST("/webhook/mercadopago", s.handlers.Webhook.HandleMercadoPago)

	jwtConfig := auth.JWTConfig{
		Secret: s.config.Auth.JWTSecret,
		Logger: s.logger,
	}

	v1 := s.echo.Group("/api/v1")

	// Public routes
	v1.POST("/ingredients/filter", s.handlers.Ingredient.FilterIngredients, s.limiter.Middleware())

	// Protected routes
	protected := v1.Group("", auth.JWTMiddleware(jwtConfig))

	recipes := protected.Group("/recipes")
	recipes.POST("", s.handlers.Recipe.GenerateRecipe)
	recipes.GET("", s.handlers.Recipe.ListRecipes)

	ingredients := protected.Group("/ingredients")
	ingredients.POST("/validate", s.handlers.Ingredient.ValidateIngredients)
	ingredients.POST("/exceptions", s.handlers.Ingredient.SaveException)

	profile := protected.Group("/profile")
	profile.GET("", s.handlers.Profile.GetProfile)
	profile.PUT("", s.handlers.Profile.UpdateProfile)
	profile.PUT("/preferences", s.handlers.Profile.UpdatePreferences)

	billing := protected.Group("/billing")
	billing.POST("/checkout", s.handlers.Billing.CreateCheckout)
	billing.POST("/portal", s.handlers.Billing.CreatePortalSession)
	billing.POST("/cancel", s.handlers.Billing.CancelSubscription)
	billing.POST("/verify", s.handlers.Billing.VerifyPayment)

	protected.POST("/abuse-reports", s.handlers.Abuse.ReportInvalidRequest)
}
