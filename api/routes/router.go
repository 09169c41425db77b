package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/kiko-social-backend/api/controllers"
	"github.com/angelmondragon/kiko-social-backend/api/middleware"
	"github.com/angelmondragon/kiko-social-backend/internal/access"
	"github.com/angelmondragon/kiko-social-backend/internal/analytics"
	"github.com/angelmondragon/kiko-social-backend/internal/feed"
	"github.com/angelmondragon/kiko-social-backend/internal/profiles"
	"github.com/angelmondragon/kiko-social-backend/internal/session"
	"github.com/angelmondragon/kiko-social-backend/internal/users"
	"github.com/angelmondragon/kiko-social-backend/pkg/config"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
	"github.com/angelmondragon/kiko-social-backend/pkg/redis"
	"github.com/angelmondragon/kiko-social-backend/pkg/store"
)

// Services groups the domain services the HTTP surface dispatches to.
type Services struct {
	Access    access.Service
	Profiles  profiles.Service
	Feed      feed.Service
	Session   session.Service
	Users     users.Service
	Analytics analytics.Service
}

// NewRouter wires the public API. redisClient may be nil, in which case post
// creation is not rate limited. gatherer may be nil to omit /metrics.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	pinger store.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	postPolicy := middleware.NewRateLimitPolicy("posts", cfg.Feed.PostRateLimitSpan, cfg.Feed.PostRateLimit)
	var limiter middleware.RateLimiterStore
	if redisClient != nil {
		limiter = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pinger))
	})

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Post("/session", controllers.SessionSignIn(svcs.Session, logg))
		r.Delete("/session", controllers.SessionSignOut(svcs.Session, logg))

		r.Get("/feed", controllers.FeedLoad(svcs.Feed, logg))
		r.With(middleware.RateLimit(postPolicy, limiter, logg)).Post("/posts", controllers.PostCreate(svcs.Feed, logg))
		r.Delete("/posts/{postId}", controllers.PostDeactivate(svcs.Feed, logg))

		r.Get("/profiles/{key}", controllers.ProfileGet(svcs.Profiles, logg))
		r.Post("/format", controllers.FormatPreview(logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(svcs.Access, logg))

		r.Get("/users", controllers.AdminUsersList(svcs.Users, logg))
		r.Post("/users", controllers.AdminUsersCreate(svcs.Users, logg))
		r.Get("/analytics", controllers.AdminAnalytics(svcs.Analytics, logg))
	})

	return r
}
