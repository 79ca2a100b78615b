package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcHandlers "github.com/kauecavalcante/chef-de-geladeira/internal/adapter/handler/grpc"
	handlers "github.com/kauecavalcante/chef-de-geladeira/internal/adapter/handler/http"
	"github.com/kauecavalcante/chef-de-geladeira/internal/config"
	"github.com/kauecavalcante/chef-de-geladeira/internal/domain/provider"
	"github.com/kauecavalcante/chef-de-geladeira/internal/infrastructure/cache"
	"github.com/kauecavalcante/chef-de-geladeira/internal/infrastructure/database"
	"github.com/kauecavalcante/chef-de-geladeira/internal/infrastructure/events"
	grpcServer "github.com/kauecavalcante/chef-de-geladeira/internal/infrastructure/grpc"
	httpServer "github.com/kauecavalcante/chef-de-geladeira/internal/infrastructure/http"
	"github.com/kauecavalcante/chef-de-geladeira/internal/infrastructure/llm"
	providerFactory "github.com/kauecavalcante/chef-de-geladeira/internal/infrastructure/provider"
	"github.com/kauecavalcante/chef-de-geladeira/internal/prompt"
	"github.com/kauecavalcante/chef-de-geladeira/internal/usecase"
	"github.com/kauecavalcante/chef-de-geladeira/pkg/logger"
	"github.com/kauecavalcante/chef-de-geladeira/pkg/messaging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		FilePath:    cfg.Log.FilePath,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger = zapLogger.With(
		zap.String("service", cfg.Service.Name),
		zap.String("environment", cfg.Service.Environment),
		zap.String("version", cfg.Service.Version))

	if cfg.Auth.JWTSecret == "" {
		zapLogger.Fatal("auth.jwt_secret is required")
	}

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger, cfg.Log.Level == "debug")
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	repos := database.NewRepositories(db, zapLogger)

	// Redis backs the normalization cache and the failure event channel. Both
	// degrade to no cache and log-only events when it is disabled.
	var (
		normalizationCache provider.Cache
		sink               provider.EventSink = events.NewLogSink(zapLogger)
		redisClient        *redis.Client
	)
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			zapLogger.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		defer redisClient.Close()

		normalizationCache = cache.NewRedisCache(redisClient)
		sink = events.NewRedisSink(messaging.NewRedisClientFrom(redisClient), cfg.Redis.EventChannel, zapLogger)
		zapLogger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	// External clients
	providers, err := providerFactory.NewFactory(cfg, zapLogger).Build()
	if err != nil {
		zapLogger.Fatal("Failed to initialize payment providers", zap.Error(err))
	}

	completer, err := llm.NewCompleter(cfg.LLM, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize language model client", zap.Error(err))
	}

	prompts, err := prompt.Load()
	if err != nil {
		zapLogger.Fatal("Failed to load prompt catalogue", zap.Error(err))
	}

	// Use cases
	gate := usecase.NewEntitlementGate(repos.User, cfg.Plans.FreeMonthlyRecipes, zapLogger)
	profiles := usecase.NewProfileService(repos.User, gate, zapLogger)
	recipes := usecase.NewRecipeService(profiles, gate, repos.Recipe, completer, prompts, cfg.Plans.FreeHistoryLimit, zapLogger)
	ingredients := usecase.NewIngredientService(profiles, repos.User, completer, prompts, normalizationCache, cfg.Redis.CacheTTL, zapLogger)
	reconciler := usecase.NewReconciler(repos.User, zapLogger)
	billing := usecase.NewBillingService(profiles, repos.User, providers.Checkouts, providers.Stripe, providers.MercadoPago,
		reconciler, cfg.Service.ClientURL, zapLogger)
	abuseRecorder := usecase.NewAbuseRecorder(repos.User, sink, zapLogger)

	var stripeEvents handlers.StripeEventSource
	if cfg.Stripe.WebhookSecret != "" {
		stripeEvents = usecase.NewStripeEventNormalizer(cfg.Stripe.WebhookSecret, zapLogger)
	} else {
		zapLogger.Warn("Stripe webhook secret is not configured; Stripe webhooks are disabled")
	}
	var mercadoPagoEvents handlers.MercadoPagoEventSource
	if providers.MercadoPago != nil {
		mercadoPagoEvents = usecase.NewMercadoPagoEventNormalizer(providers.MercadoPago, zapLogger)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg, zapLogger)
	httpSrv := httpServer.NewServer(cfg, zapLogger, &httpServer.Handlers{
		Recipe:     handlers.NewRecipeHandler(recipes, zapLogger),
		Ingredient: handlers.NewIngredientHandler(ingredients, zapLogger),
		Profile:    handlers.NewProfileHandler(profiles, zapLogger),
		Billing:    handlers.NewBillingHandler(billing, zapLogger),
		Abuse:      handlers.NewAbuseHandler(abuseRecorder),
		Webhook:    handlers.NewWebhookHandler(stripeEvents, mercadoPagoEvents, reconciler, sink, repos.PaymentEvent, zapLogger),
	})

	checks := map[string]grpcHandlers.Checker{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	healthHandler := grpcHandlers.NewHealthHandler(grpcSrv.Health(), checks, 15*time.Second, zapLogger)
	go healthHandler.Run(ctx)

	// Start servers
	go func() {
		if err := grpcSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down servers...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	// Pending abuse records use their own timeouts; let them finish.
	abuseRecorder.Wait()

	zapLogger.Info("Servers shut down successfully")
}
