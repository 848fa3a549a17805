package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yln-platform/mentorship-backend/api/controllers"
	"github.com/yln-platform/mentorship-backend/api/middleware"
	"github.com/yln-platform/mentorship-backend/internal/auth"
	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	"github.com/yln-platform/mentorship-backend/internal/mentees"
	"github.com/yln-platform/mentorship-backend/internal/mentors"
	"github.com/yln-platform/mentorship-backend/internal/mentorships"
	"github.com/yln-platform/mentorship-backend/internal/sessions"
	syncsvc "github.com/yln-platform/mentorship-backend/internal/sync"
	"github.com/yln-platform/mentorship-backend/internal/users"
	"github.com/yln-platform/mentorship-backend/pkg/config"
	"github.com/yln-platform/mentorship-backend/pkg/logger"
	"github.com/yln-platform/mentorship-backend/pkg/redis"
)

// Pinger is the readiness probe surface of a wired dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams carries everything the HTTP surface depends on. Optional
// dependencies (redis, sheets, metrics) may be nil.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	DBPinger     Pinger
	RedisClient  *redis.Client
	SheetsPinger Pinger

	Store *dualwrite.Store

	AuthService    auth.Service
	UserService    users.Service
	SessionService sessions.Service
	MentorService  mentors.Service
	MenteeService  mentees.Service
	PairingService mentorships.Service
	SyncService    *syncsvc.Service
	MetricsHandler http.Handler
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	// A typed nil redis client must not reach the limiter or the
	// readiness probe as a non-nil interface.
	limited := func(policy middleware.AuthRateLimitPolicy) func(http.Handler) http.Handler {
		if p.RedisClient == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.AuthRateLimit(policy, p.RedisClient, logg)
	}
	var redisPinger Pinger
	if p.RedisClient != nil {
		redisPinger = p.RedisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DBPinger, redisPinger, p.SheetsPinger))
	})

	if p.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", p.MetricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(limited(registerPolicy)).Post("/register", controllers.AuthRegister(p.AuthService, logg))
		r.With(limited(loginPolicy)).Post("/verify", controllers.AuthVerifyEmail(p.AuthService, logg))
		r.With(limited(registerPolicy)).Post("/resend-verification", controllers.AuthResendVerification(p.AuthService, logg))
		r.With(limited(loginPolicy)).Post("/login", controllers.AuthLogin(p.AuthService, logg))
		r.With(limited(loginPolicy)).Post("/forgot-password", controllers.AuthForgotPassword(p.AuthService, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(p.AuthService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(p.SessionService, p.UserService, logg))

		r.Post("/auth/logout", controllers.AuthLogout(p.AuthService, logg))

		r.Route("/mentee", func(r chi.Router) {
			r.Post("/profile", controllers.MenteeCreateProfile(p.MenteeService, p.UserService, logg))
			r.Get("/profile", controllers.MenteeMyProfile(p.MenteeService, logg))
			r.Patch("/profile", controllers.MenteeUpdateMyProfile(p.MenteeService, logg))
			r.Get("/mentor", controllers.MenteeMyMentor(p.PairingService, p.MenteeService, logg))
		})

		r.Get("/mentors", controllers.MentorDirectory(p.MentorService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(p.SessionService, p.UserService, logg))
		r.Use(middleware.RequireAdmin(logg))

		r.Route("/mentors", func(r chi.Router) {
			r.Post("/", controllers.MentorCreate(p.MentorService, logg))
			r.Get("/", controllers.MentorList(p.MentorService, logg))
			r.Get("/{mentorId}", controllers.MentorGet(p.MentorService, logg))
			r.Patch("/{mentorId}", controllers.MentorUpdate(p.MentorService, logg))
			r.Delete("/{mentorId}", controllers.MentorDelete(p.MentorService, logg))
		})

		r.Route("/mentees", func(r chi.Router) {
			r.Get("/", controllers.MenteeList(p.MenteeService, logg))
			r.Get("/{menteeId}", controllers.MenteeGet(p.MenteeService, logg))
			r.Delete("/{menteeId}", controllers.MenteeDelete(p.MenteeService, logg))
		})

		r.Route("/pairings", func(r chi.Router) {
			r.Post("/", controllers.PairingCreate(p.PairingService, logg))
			r.Get("/", controllers.PairingList(p.PairingService, logg))
			r.Delete("/{pairingId}", controllers.PairingDelete(p.PairingService, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminUserList(p.UserService, logg))
			r.Delete("/{userId}", controllers.AdminUserDelete(p.UserService, logg))
		})

		r.Route("/sync", func(r chi.Router) {
			r.Get("/queue", controllers.SyncQueueStats(p.Store, logg))
			r.Post("/drain", controllers.SyncDrain(p.Store, logg))
			r.Post("/backfill", controllers.SyncBackfill(p.SyncService, logg))
		})
	})

	return r
}
