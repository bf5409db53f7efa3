package routes

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/ticketbooth-backend/api/controllers"
	"github.com/angelmondragon/ticketbooth-backend/api/middleware"
	"github.com/angelmondragon/ticketbooth-backend/internal/auth"
	"github.com/angelmondragon/ticketbooth-backend/internal/theaters"
	"github.com/angelmondragon/ticketbooth-backend/internal/theatersystems"
	"github.com/angelmondragon/ticketbooth-backend/internal/users"
	"github.com/angelmondragon/ticketbooth-backend/pkg/auth/session"
	"github.com/angelmondragon/ticketbooth-backend/pkg/config"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db"
	"github.com/angelmondragon/ticketbooth-backend/pkg/enums"
	"github.com/angelmondragon/ticketbooth-backend/pkg/logger"
	"github.com/angelmondragon/ticketbooth-backend/pkg/metrics"
	"github.com/angelmondragon/ticketbooth-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessionManager session.AccessSessionChecker,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	authService auth.Service,
	theaterService theaters.Service,
	systemService theatersystems.Service,
	userService users.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		chimw.RealIP,
		middleware.RequestID(logg),
		middleware.CORS(splitOrigins(cfg.App.CORSOrigins)),
		middleware.Metrics(httpMetrics),
		middleware.Logging(logg),
	)

	signinPolicy, signupPolicy, forgotPolicy := middleware.AuthRateLimitPolicies(cfg.AuthRateLimit)
	limit := func(policy middleware.RateLimitPolicy) func(http.Handler) http.Handler {
		if redisClient == nil || !cfg.AuthRateLimit.Enabled {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.AuthRateLimit(policy, redisClient, logg)
	}

	readyDeps := map[string]controllers.Pinger{}
	if dbP != nil {
		readyDeps["db"] = dbP
	}
	if redisClient != nil {
		readyDeps["redis"] = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readyDeps, logg))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	authn := middleware.Auth(cfg.JWT, sessionManager, logg)
	adminOnly := middleware.RequireRole(logg, enums.UserRoleAdmin)

	r.Route("/user", func(r chi.Router) {
		r.With(limit(signupPolicy)).Post("/signup", controllers.AuthSignup(authService, logg))
		r.With(limit(signinPolicy)).Post("/signin", controllers.AuthSignin(authService, logg))
		r.Get("/verify-email", controllers.AuthVerifyEmail(authService, logg))
		r.With(limit(signupPolicy)).Post("/resend-verification-email", controllers.AuthResendVerification(authService, logg))
		r.With(limit(forgotPolicy)).Post("/forgot-password", controllers.AuthForgotPassword(authService, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(authService, logg))

		r.Group(func(r chi.Router) {
			r.Use(authn)
			r.Post("/signout", controllers.AuthSignout(authService, logg))
			r.Get("/me", controllers.AuthMe(authService, logg))
		})
	})

	r.Route("/theater", func(r chi.Router) {
		r.Use(authn)
		r.Get("/", controllers.TheaterList(theaterService, logg))
		r.Get("/{id}", controllers.TheaterGet(theaterService, logg))
		r.With(middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleTheaterManager)).
			Get("/manager/{managerId}", controllers.TheaterGetByManager(theaterService, logg))

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/", controllers.TheaterCreateWithManager(theaterService, logg))
			r.Post("/create", controllers.TheaterCreate(theaterService, logg))
			r.Put("/{id}", controllers.TheaterUpdate(theaterService, logg))
			r.Delete("/{id}", controllers.TheaterDelete(theaterService, logg))
		})
	})

	r.Route("/theater-system", func(r chi.Router) {
		r.Use(authn)
		r.Get("/", controllers.TheaterSystemList(systemService, logg))
		r.Get("/{id}", controllers.TheaterSystemGet(systemService, logg))

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/", controllers.TheaterSystemCreate(systemService, logg))
			r.Post("/add-theater", controllers.TheaterSystemAddTheater(systemService, logg))
			r.Put("/{id}", controllers.TheaterSystemUpdate(systemService, logg))
			r.Delete("/{id}", controllers.TheaterSystemDelete(systemService, logg))
		})
	})

	r.Route("/admin/management", func(r chi.Router) {
		r.Use(authn, adminOnly)
		r.Get("/users/managers", controllers.AdminListManagers(userService, logg))
	})

	return r
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		if o := strings.TrimSpace(part); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
