package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/threadline-store/threadline-backend/api/controllers"
	webhookcontrollers "github.com/threadline-store/threadline-backend/api/controllers/webhooks"
	"github.com/threadline-store/threadline-backend/api/middleware"
	"github.com/threadline-store/threadline-backend/internal/address"
	"github.com/threadline-store/threadline-backend/internal/cart"
	"github.com/threadline-store/threadline-backend/internal/notifications"
	internalorders "github.com/threadline-store/threadline-backend/internal/orders"
	"github.com/threadline-store/threadline-backend/internal/payments"
	"github.com/threadline-store/threadline-backend/internal/settings"
	"github.com/threadline-store/threadline-backend/internal/settlement"
	"github.com/threadline-store/threadline-backend/pkg/config"
	"github.com/threadline-store/threadline-backend/pkg/db"
	"github.com/threadline-store/threadline-backend/pkg/enums"
	"github.com/threadline-store/threadline-backend/pkg/logger"
	"github.com/threadline-store/threadline-backend/pkg/redis"
)

// Deps carries everything the router wires into controllers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Redis         redis.Pinger
	Settlement    *settlement.Service
	Verifier      *payments.Verifier
	WebhookGuard  *redis.EventGuard
	Orders        internalorders.Service
	Cart          cart.Repository
	Addresses     address.Repository
	Settings      settings.Repository
	Notifications notifications.Repository
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

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/gateway", webhookcontrollers.GatewayWebhook(deps.Settlement, deps.Verifier, deps.WebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartList(deps.Cart, logg))
			r.Post("/", controllers.CartAdd(deps.Cart, logg))
			r.Delete("/{itemId}", controllers.CartRemove(deps.Cart, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/destination", controllers.PaymentDestination(deps.Settings, logg))
			r.Post("/verify", controllers.VerifyPayment(deps.Settlement, logg))
		})

		r.Post("/checkout/cod", controllers.CheckoutCOD(deps.Settlement, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Post("/{orderId}/confirm-payment", controllers.ConfirmOrderPayment(deps.Settlement, logg))
			r.Post("/{orderId}/cancel", controllers.CancelOrder(deps.Orders, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.ListAddresses(deps.Addresses, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.RoleAdmin, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/{orderId}/status", controllers.AdminUpdateOrderStatus(deps.Orders, logg))
		})
		r.Route("/settings", func(r chi.Router) {
			r.Put("/payment-destination", controllers.AdminSetPaymentDestination(deps.Settings, logg))
			r.Get("/payment-destination/history", controllers.AdminPaymentDestinationHistory(deps.Settings, logg))
		})
	})

	return r
}
