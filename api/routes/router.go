package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/helpnet/helpnet-backend/api/controllers"
	"github.com/helpnet/helpnet-backend/api/middleware"
	"github.com/helpnet/helpnet-backend/internal/catalog"
	"github.com/helpnet/helpnet-backend/internal/deliveries"
	"github.com/helpnet/helpnet-backend/internal/notifications"
	"github.com/helpnet/helpnet-backend/internal/orders"
	"github.com/helpnet/helpnet-backend/internal/paymentmethods"
	"github.com/helpnet/helpnet-backend/internal/settlement"
	"github.com/helpnet/helpnet-backend/pkg/config"
	"github.com/helpnet/helpnet-backend/pkg/enums"
	"github.com/helpnet/helpnet-backend/pkg/logger"
	pkgredis "github.com/helpnet/helpnet-backend/pkg/redis"
)

// Deps collects everything the HTTP surface needs.
type Deps struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             pkgredis.Pinger
	Redis          *pkgredis.Client
	Catalog        catalog.Service
	PaymentMethods paymentmethods.Service
	Orders         orders.Service
	Settlement     settlement.Service
	Deliveries     deliveries.Service
	Notifications  notifications.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	webhookPolicy := middleware.NewRateLimitPolicy(
		"payment-webhook",
		cfg.Payments.WebhookRateWindow,
		cfg.Payments.WebhookRateLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.With(middleware.RateLimit(webhookPolicy, deps.Redis, logg)).
			Post("/payments", controllers.PaymentWebhook(cfg.Payments, deps.Settlement, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Catalog, logg))
			r.Get("/{productId}", controllers.ProductDetail(deps.Catalog, logg))
		})

		r.Get("/payment-methods", controllers.ListPaymentMethods(deps.PaymentMethods, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Post("/", controllers.CreateOrder(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(deps.Orders, logg))
			r.Get("/{orderId}/payments", controllers.OrderPaymentSummary(deps.Settlement, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.With(middleware.RequireRole(string(enums.RoleAdmin), logg)).
				Post("/manual", controllers.ManualPayment(deps.Settlement, logg))
			r.Post("/sandbox", controllers.SandboxPayment(cfg.Payments, deps.Settlement, logg))
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Get("/{deliveryId}", controllers.DeliveryDetail(deps.Deliveries, logg))
			r.With(middleware.RequireRole(string(enums.RoleVendor), logg)).
				Patch("/{deliveryId}/status", controllers.UpdateDeliveryStatus(deps.Deliveries, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.RoleVendor), logg))
			r.Get("/deliveries", controllers.ListVendorDeliveries(deps.Deliveries, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})
	})

	return r
}
