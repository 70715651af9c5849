package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fbos/fieldservice/internal/api/handlers"
	"github.com/fbos/fieldservice/internal/api/router"
	"github.com/fbos/fieldservice/internal/auth"
	"github.com/fbos/fieldservice/internal/billing"
	"github.com/fbos/fieldservice/internal/config"
	"github.com/fbos/fieldservice/internal/pkg/cache"
	"github.com/fbos/fieldservice/internal/pkg/logger"
	"github.com/fbos/fieldservice/internal/pkg/validator"
	"github.com/fbos/fieldservice/internal/repository/postgres"
	"github.com/fbos/fieldservice/internal/services"
	"github.com/fbos/fieldservice/internal/storage"
	"github.com/fbos/fieldservice/internal/worker"
	"github.com/fbos/fieldservice/migrations"
	"github.com/go-redis/redis/v8"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	applied, err := postgres.RunMigrations(ctx, db, migrations.FS())
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	for _, name := range applied {
		log.With("migration", name).Info("Applied migration")
	}

	statusCache, closeCache, err := newStatusCache(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeCache()

	verifier, err := newVerifier(ctx, cfg.Identity)
	if err != nil {
		return err
	}

	var photos storage.PhotoStore
	if cfg.Storage.Enabled {
		s3Store, err := storage.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("init photo storage: %w", err)
		}
		photos = s3Store
	}

	provider := billing.NewStripeProvider(cfg.Billing.SecretKey, cfg.Billing.WebhookSecret)

	// Repositories
	profileRepo := postgres.NewProfileRepository(db)
	subscriptionRepo := postgres.NewSubscriptionRepository(db)
	eventRepo := postgres.NewWebhookEventRepository(db)
	materialRepo := postgres.NewMaterialRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)

	// Services
	billingService := services.NewBillingService(provider, profileRepo, subscriptionRepo, services.BillingOptions{
		PriceID:      cfg.Billing.PriceID,
		PublicAppURL: cfg.Server.PublicAppURL,
		StatusSource: cfg.Billing.StatusSource,
		Cache:        statusCache,
		CacheTTL:     cfg.Billing.StatusCacheTTL,
	}, log)
	webhookService := services.NewWebhookService(provider, profileRepo, subscriptionRepo, eventRepo, statusCache, log)
	reconcileService := services.NewReconcileService(provider, subscriptionRepo, statusCache, log)

	val := validator.New()
	h := &router.Handlers{
		Health:   handlers.NewHealthHandler(db, log),
		Billing:  handlers.NewBillingHandler(billingService, webhookService, log, val, cfg.Billing.WebhookMaxBodyBytes),
		Material: handlers.NewMaterialHandler(services.NewMaterialService(materialRepo, log), log, val),
		Customer: handlers.NewCustomerHandler(services.NewCustomerService(customerRepo, log), log, val),
		Settings: handlers.NewSettingsHandler(
			services.NewPriceService(postgres.NewPriceRepository(db), log),
			services.NewCompanyService(postgres.NewCompanyRepository(db), log),
			log, val,
		),
		ServiceOrder: handlers.NewServiceOrderHandler(
			services.NewServiceOrderService(postgres.NewServiceOrderRepository(db), customerRepo, materialRepo, photos, log),
			log, val,
		),
		Accounting: handlers.NewAccountingHandler(
			services.NewAccountingService(postgres.NewAccountingRepository(db), log), log, val,
		),
	}

	if cfg.Billing.ReconcileEnabled {
		reconciler := worker.NewSubscriptionReconciler(reconcileService, cfg.Billing.ReconcileSchedule, log)
		if err := reconciler.Start(ctx); err != nil {
			return fmt.Errorf("start reconciler: %w", err)
		}
		defer reconciler.Stop()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, verifier, h),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"addr":          server.Addr,
			"environment":   cfg.Server.Environment,
			"status_source": cfg.Billing.StatusSource,
			"identity_mode": cfg.Identity.Mode,
		}).Info("HTTP server listening")
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server: %w", err)

	case sig := <-shutdown:
		log.With("signal", sig.String()).Info("Shutting down")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.ErrorWithErr(err, "Graceful shutdown did not complete")
			if err := server.Close(); err != nil {
				return fmt.Errorf("close server: %w", err)
			}
		}
	}

	return nil
}

// newVerifier picks remote user lookups or local token verification
func newVerifier(ctx context.Context, cfg config.IdentityConfig) (auth.Verifier, error) {
	switch cfg.Mode {
	case "jwt":
		if cfg.JWKSURL != "" {
			return auth.NewJWKSVerifier(ctx, cfg.JWKSURL)
		}
		return auth.NewHMACVerifier(cfg.JWTSecret), nil
	default:
		return auth.NewRemoteVerifier(cfg.URL, cfg.ServiceKey, cfg.Timeout), nil
	}
}

// newStatusCache uses Redis when enabled and an in-process LRU otherwise
func newStatusCache(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (cache.Cache, func(), error) {
	if !cfg.Enabled {
		mem, err := cache.NewMemoryCache(10000)
		if err != nil {
			return nil, nil, fmt.Errorf("init status cache: %w", err)
		}
		return mem, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	log.With("addr", client.Options().Addr).Info("Using Redis status cache")

	return cache.NewRedisCache(client, "fieldservice"), func() { client.Close() }, nil
}

