package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/holaphone/order-service/internal/domain"
	"github.com/holaphone/order-service/internal/service"
	"github.com/holaphone/order-service/pkg/health"
	"github.com/holaphone/order-service/pkg/middleware"
)

// NewRouter creates a chi router with all order service routes registered.
func NewRouter(
	checkoutService *service.CheckoutService,
	orderService *service.OrderService,
	voucherService *service.VoucherService,
	healthHandler *health.Handler,
	validateToken middleware.TokenValidator,
	corsCfg middleware.CORSConfig,
	logger *slog.Logger,
	pprofCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware. CORS sits ahead of auth so the storefront's
	// preflight requests are answered without a token.
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(corsCfg))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("order"))
	r.Use(middleware.Tracing("order"))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, pprofCIDRs, logger)

	orderHandler := NewOrderHandler(checkoutService, orderService, logger)
	shipperHandler := NewShipperHandler(orderService, logger)
	voucherHandler := NewVoucherHandler(voucherService, logger)

	backoffice := middleware.RequireRole(domain.RoleAdmin, domain.RoleStaff)

	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(validateToken))

		// Customer endpoints.
		r.With(middleware.RequireRole(domain.RoleCustomer)).Group(func(r chi.Router) {
			r.Post("/", orderHandler.Checkout)
			r.Get("/my", orderHandler.ListMyOrders)
			r.Post("/{id}/cancel", orderHandler.CancelOrder)
			r.Post("/{id}/confirm-received", orderHandler.ConfirmReceived)
			r.Post("/{id}/return", orderHandler.RequestReturn)
		})

		// Shared: service-level checks scope visibility per role.
		r.Get("/{id}", orderHandler.GetOrder)
		r.With(middleware.RequireRole(domain.RoleCustomer, domain.RoleAdmin, domain.RoleStaff)).
			Put("/{id}/shipping-info", orderHandler.UpdateShippingInfo)

		// Back-office endpoints.
		r.With(backoffice).Group(func(r chi.Router) {
			r.Get("/", orderHandler.ListOrders)
			r.Put("/{id}/status", orderHandler.UpdateOrderStatus)
			r.Put("/{id}/shipper", orderHandler.AssignShipper)
			r.Post("/{id}/return/approve", orderHandler.ApproveReturn)
			r.Post("/{id}/return/reject", orderHandler.RejectReturn)
			r.Post("/{id}/return/returned", orderHandler.MarkReturned)
			r.Post("/{id}/return/refunded", orderHandler.MarkRefunded)
		})
		r.With(middleware.RequireRole(domain.RoleAdmin)).Delete("/{id}", orderHandler.DeleteOrder)
	})

	r.Route("/api/v1/shipper/orders", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(validateToken))
		r.Use(middleware.RequireRole(domain.RoleShipper))

		r.Get("/", shipperHandler.ListOrders)
		r.Put("/{id}/status", shipperHandler.UpdateOrderStatus)
	})

	r.Route("/api/v1/vouchers", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(validateToken))

		r.With(middleware.RequireRole(domain.RoleCustomer)).Post("/apply", voucherHandler.Apply)

		r.With(backoffice).Group(func(r chi.Router) {
			r.Post("/", voucherHandler.Create)
			r.Get("/", voucherHandler.List)
			r.Get("/{id}", voucherHandler.Get)
			r.Put("/{id}", voucherHandler.Update)
			r.Delete("/{id}", voucherHandler.Delete)
		})
	})

	return r
}
