package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopdeck/shopdeck-backend/api/controllers"
	"github.com/shopdeck/shopdeck-backend/api/middleware"
	checkoutsvc "github.com/shopdeck/shopdeck-backend/internal/checkout"
	deliverysvc "github.com/shopdeck/shopdeck-backend/internal/delivery"
	ledgersvc "github.com/shopdeck/shopdeck-backend/internal/ledger"
	orderssvc "github.com/shopdeck/shopdeck-backend/internal/orders"
	paymentsvc "github.com/shopdeck/shopdeck-backend/internal/payments"
	withdrawalsvc "github.com/shopdeck/shopdeck-backend/internal/withdrawals"
	"github.com/shopdeck/shopdeck-backend/pkg/config"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	"github.com/shopdeck/shopdeck-backend/pkg/logger"
	"github.com/shopdeck/shopdeck-backend/pkg/metrics"
)

// Services bundles everything the router wires into handlers.
type Services struct {
	Checkout    checkoutsvc.Service
	Orders      orderssvc.Service
	Delivery    deliverysvc.Service
	Ledger      ledgersvc.Service
	Withdrawals withdrawalsvc.Service
	Payments    paymentsvc.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	// Provider callbacks authenticate by payload, not bearer token.
	r.Route("/api/v1/webhooks/payments", func(r chi.Router) {
		r.Post("/validation", controllers.PaymentValidation(svcs.Payments, logg))
		r.Post("/confirmation", controllers.PaymentConfirmation(svcs.Payments, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleCustomer))
			r.Post("/checkout", controllers.CheckoutCreate(svcs.Checkout, logg))
			r.Get("/orders", controllers.OrdersList(svcs.Orders, logg))
		})

		// Both the buyer and an operator may poll a draft; ownership is
		// checked in the handler.
		r.Get("/checkout/{draftId}", controllers.CheckoutGet(svcs.Checkout, logg))
		r.Get("/orders/{orderId}", controllers.OrderDetail(svcs.Orders, logg))

		r.Route("/orders/{orderId}/suborders/{suborderId}", func(r chi.Router) {
			r.Patch("/status", controllers.SuborderStatusUpdate(svcs.Delivery, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleAdmin)).
				Post("/assign-rider", controllers.SuborderAssignRider(svcs.Delivery, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleCustomer)).
				Post("/confirmation-code", controllers.SuborderConfirmationCode(svcs.Delivery, logg))
			r.With(middleware.RequireRole(logg, enums.ActorRoleRider)).
				Post("/confirm", controllers.SuborderConfirm(svcs.Delivery, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleVendor))
			r.Route("/withdrawals", func(r chi.Router) {
				r.Post("/", controllers.WithdrawalCreate(svcs.Withdrawals, logg))
				r.Get("/", controllers.WithdrawalsList(svcs.Withdrawals, logg))
				r.Get("/{withdrawalId}", controllers.WithdrawalGet(svcs.Withdrawals, logg))
			})
			r.Route("/earnings", func(r chi.Router) {
				r.Get("/", controllers.EarningsList(svcs.Ledger, logg))
				r.Get("/summary", controllers.EarningsSummary(svcs.Ledger, logg))
			})
		})

		r.Route("/rider/earnings", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.ActorRoleRider))
			r.Get("/", controllers.EarningsList(svcs.Ledger, logg))
			r.Get("/summary", controllers.EarningsSummary(svcs.Ledger, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.ActorRoleAdmin))
		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/", controllers.AdminWithdrawalsList(svcs.Withdrawals, logg))
			r.Get("/{withdrawalId}", controllers.WithdrawalGet(svcs.Withdrawals, logg))
			r.Post("/{withdrawalId}/decision", controllers.WithdrawalDecide(svcs.Withdrawals, logg))
		})
	})

	return r
}
