package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/controllers"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/middleware"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/address"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/attachments"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/disputes"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/notifications"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/offers"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/requests"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/rewards"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/auth"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/metrics"
	pkgredis "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/redis"
)

// Dependencies are the services and backends the HTTP surface is built from.
type Dependencies struct {
	Config        *config.Config
	Logger        *logger.Logger
	Ready         map[string]controllers.Pinger
	Idempotency   pkgredis.IdempotencyStore
	Gatherer      prometheus.Gatherer
	HTTPMetrics   *metrics.HTTPMetrics
	Requests      requests.Service
	Offers        offers.Service
	Disputes      disputes.Service
	Notifications notifications.Service
	Attachments   attachments.Service
	Rewards       rewards.Service
	Address       address.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg, deps.HTTPMetrics),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS),
		middleware.Tracing(),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	limiter := middleware.NewLimiter(cfg.RateLimit)
	idem := middleware.NewIdempotency(deps.Idempotency, cfg.Eventing.HTTPIdempotencyTTL, logg)
	buyer := middleware.RequireRole(logg, enums.RoleBuyer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(auth.NewVerifier(cfg.JWT), logg))
		r.Use(middleware.RateLimit(cfg.RateLimit, limiter, logg))

		r.Route("/order-requests", func(r chi.Router) {
			r.With(buyer, idem.Standard).Post("/", controllers.CreateOrderRequest(deps.Requests, logg))
			r.Get("/", controllers.ListOrderRequests(deps.Requests, logg))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", controllers.GetOrderRequest(deps.Requests, logg))
				r.With(middleware.RequireRole(logg, enums.RoleStaff)).Delete("/", controllers.HideOrderRequest(deps.Requests, logg))
				r.With(middleware.RequireRole(logg, enums.RoleSeller), idem.Standard).Post("/offers", controllers.SubmitOffer(deps.Offers, logg))
				r.With(buyer, idem.Critical).Post("/offers/{offerId}/accept", controllers.AcceptOffer(deps.Offers, logg))
				r.With(idem.Critical).Post("/payment", controllers.ConfirmPayment(deps.Requests, logg))
				r.With(idem.Standard).Post("/complete", controllers.CompleteOrderRequest(deps.Requests, logg))
				r.With(idem.Standard).Post("/decline", controllers.DeclineOrderRequest(deps.Requests, logg))
			})
		})

		r.Get("/offers/{offerId}/reward", controllers.OfferReward(deps.Rewards, logg))

		r.Route("/disputes", func(r chi.Router) {
			r.With(buyer, idem.Standard).Post("/open", controllers.OpenDispute(deps.Disputes, logg))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", controllers.GetDispute(deps.Disputes, logg))
				r.With(idem.Standard).Post("/reply", controllers.ReplyDispute(deps.Disputes, logg))
				r.With(idem.Standard).Post("/agree", controllers.AgreeDispute(deps.Disputes, logg))
				r.With(idem.Standard).Post("/reject", controllers.RejectDispute(deps.Disputes, logg))
				r.With(idem.Standard).Post("/resolve", controllers.ResolveDispute(deps.Disputes, logg))
				r.With(idem.Standard).Post("/close", controllers.CloseDispute(deps.Disputes, logg))
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadCounts(deps.Notifications, logg))
			r.With(idem.Standard).Post("/read", controllers.MarkNotificationsRead(deps.Notifications, logg))
			r.With(idem.Standard).Post("/buckets/{bucket}/read", controllers.MarkBucketRead(deps.Notifications, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/suggest", controllers.AddressSuggest(deps.Address, logg))
			r.Post("/resolve", controllers.AddressResolve(deps.Address, logg))
		})

		r.With(middleware.RequireRole(logg, enums.RoleBuyer, enums.RoleStaff)).
			Post("/attachments", controllers.UploadAttachment(deps.Attachments, cfg.GCS.MaxUploadMB, logg))
	})

	return r
}
