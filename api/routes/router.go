package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bazaar-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/orders"
	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/bazaar-backend/internal/checkout"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/reviews"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	metricsHandler http.Handler,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	reviewsService reviews.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	deps := map[string]db.Pinger{"db": dbP}
	if redisClient != nil {
		deps["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	apiPolicy := middleware.NewRateLimitPolicy("api", time.Minute, cfg.Redis.RateLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products/{productId}/reviews", controllers.ListProductReviews(reviewsService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			if redisClient != nil {
				r.Use(middleware.RateLimit(apiPolicy, redisClient, logg))
				r.Use(middleware.Idempotency(redisClient, logg))
			}

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.CartFetch(cartService, logg))
				r.Post("/items", cartcontrollers.CartAddLine(cartService, logg))
				r.Patch("/items/{lineId}", cartcontrollers.CartSetLineQty(cartService, logg))
				r.Delete("/items/{lineId}", cartcontrollers.CartRemoveLine(cartService, logg))
			})

			r.Post("/checkout", controllers.Checkout(checkoutService, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(ordersService, logg))
				r.Get("/{orderId}", ordercontrollers.Get(ordersService, logg))
				r.Patch("/{orderId}/status", ordercontrollers.UpdateStatus(ordersService, logg))
			})

			r.Post("/products/{productId}/reviews", controllers.CreateReview(reviewsService, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(notificationsService, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			})
		})
	})

	return r
}
