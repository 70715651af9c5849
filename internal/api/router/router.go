package router

import (
	"net/http"

	"github.com/fbos/fieldservice/internal/api/handlers"
	"github.com/fbos/fieldservice/internal/api/middleware"
	"github.com/fbos/fieldservice/internal/auth"
	"github.com/fbos/fieldservice/internal/config"
	"github.com/fbos/fieldservice/internal/pkg/logger"
	"github.com/fbos/fieldservice/internal/pkg/metrics"
	"github.com/go-chi/chi/v5"
)

type Handlers struct {
	Health       *handlers.HealthHandler
	Billing      *handlers.BillingHandler
	Material     *handlers.MaterialHandler
	Customer     *handlers.CustomerHandler
	Settings     *handlers.SettingsHandler
	ServiceOrder *handlers.ServiceOrderHandler
	Accounting   *handlers.AccountingHandler
}

func New(cfg *config.Config, log *logger.Logger, verifier auth.Verifier, h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(metrics.Middleware)
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.RateLimit(100, 200)) // 100 req/sec, burst of 200

	requireUser := middleware.Authenticate(verifier, log)

	// Health checks and metrics
	r.Get("/status", h.Health.Status)
	r.Get("/health", h.Health.Healthz)
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	billingRoutes(r, cfg, requireUser, h.Billing)

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", h.Health.Status)

		// Billing (alias for clients that prefix every call with /api)
		billingRoutes(r, cfg, requireUser, h.Billing)

		r.Route("/v1", func(r chi.Router) {
			r.Use(requireUser)

			r.Route("/materials", func(r chi.Router) {
				r.Get("/", h.Material.List)
				r.Post("/", h.Material.Create)
				r.Put("/{id}", h.Material.Update)
				r.Delete("/{id}", h.Material.Delete)
			})

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", h.Customer.List)
				r.Post("/", h.Customer.Create)
				r.Get("/{id}", h.Customer.Get)
				r.Put("/{id}", h.Customer.Update)
				r.Delete("/{id}", h.Customer.Delete)
			})

			r.Get("/service-prices", h.Settings.GetPrices)
			r.Put("/service-prices", h.Settings.SavePrices)
			r.Get("/company", h.Settings.GetCompany)
			r.Put("/company", h.Settings.SaveCompany)

			r.Route("/service-orders", func(r chi.Router) {
				r.Get("/", h.ServiceOrder.List)
				r.Post("/", h.ServiceOrder.Create)
				r.Get("/{id}", h.ServiceOrder.Get)
				r.Patch("/{id}/status", h.ServiceOrder.UpdateStatus)
				r.Delete("/{id}", h.ServiceOrder.Delete)
				r.Post("/{id}/photos", h.ServiceOrder.UploadPhoto)
			})

			r.Get("/accounting/summary", h.Accounting.Summary)
		})
	})

	return r
}

// billingRoutes registers the billing endpoints on r. The webhook is
// authenticated by its signature, everything else by bearer token.
func billingRoutes(r chi.Router, cfg *config.Config, requireUser func(http.Handler) http.Handler, h *handlers.BillingHandler) {
	r.Post("/webhook", h.Webhook)

	r.Group(func(r chi.Router) {
		r.Use(requireUser)

		r.Get("/subscription-status", h.SubscriptionStatus)
		r.Post("/create-checkout", h.CreateCheckout)
		r.Post("/create-checkout-session", h.CreateCheckout)
		r.Get("/create-portal-session", h.CreatePortal)
		r.Post("/create-portal-session", h.CreatePortal)

		if cfg.Billing.LegacyCheckEnabled {
			r.Get("/check-subscription", h.CheckSubscription)
		}
	})
}
