package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/lead-manager/internal/http/envelope"
	"github.com/wolfman30/lead-manager/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/lead-manager/internal/http/middleware"
	"github.com/wolfman30/lead-manager/internal/leads"
	"github.com/wolfman30/lead-manager/internal/observability/metrics"
	"github.com/wolfman30/lead-manager/internal/users"
	"github.com/wolfman30/lead-manager/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	AuthHandler   *users.Handler
	LeadsHandler  *leads.Handler
	HealthHandler *handlers.HealthHandler
	Authenticator httpmiddleware.Authenticator

	MetricsHandler http.Handler
	HTTPMetrics    *metrics.HTTPMetrics

	CORSAllowedOrigins []string

	// AuthRateLimit throttles login, register and token refresh per client.
	// Zero disables throttling.
	AuthRateLimit      float64
	AuthRateLimitBurst int
	// RateLimiter overrides the limiter built from AuthRateLimit.
	RateLimiter *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.HTTPMetrics != nil {
		r.Use(httpmiddleware.Metrics(cfg.HTTPMetrics))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		envelope.Fail(w, http.StatusNotFound, "Not found.", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		envelope.Fail(w, http.StatusMethodNotAllowed, "Method \""+r.Method+"\" not allowed.", nil)
	})

	limiter := cfg.RateLimiter
	if limiter == nil && cfg.AuthRateLimit > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateLimitBurst)
	}
	throttle := func(h http.HandlerFunc) http.Handler {
		if limiter == nil {
			return h
		}
		return limiter.Middleware(h)
	}
	requireUser := httpmiddleware.RequireUser(cfg.Authenticator)

	// Public endpoints
	r.Group(func(public chi.Router) {
		if cfg.HealthHandler != nil {
			public.Get("/health", cfg.HealthHandler.Check)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	if cfg.AuthHandler != nil {
		auth := cfg.AuthHandler
		r.Route("/auth", func(r chi.Router) {
			r.Method(http.MethodPost, "/register", throttle(auth.Register))
			r.Method(http.MethodPost, "/login", throttle(auth.Login))
			r.Method(http.MethodPost, "/token/refresh", throttle(auth.RefreshToken))

			r.Group(func(protected chi.Router) {
				protected.Use(requireUser)
				protected.Post("/logout", auth.Logout)
				protected.Get("/token/verify", auth.VerifyToken)
				protected.Post("/token/verify", auth.VerifyToken)
				protected.Get("/profile", auth.Profile)
				protected.Put("/profile", auth.UpdateProfile)
				protected.Patch("/profile", auth.PatchProfile)
				protected.Post("/change-password", auth.ChangePassword)
			})
		})
	}

	if cfg.LeadsHandler != nil {
		h := cfg.LeadsHandler
		r.Route("/leads", func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/", h.ListLeads)
			r.Post("/", h.CreateLead)
			// Static segments win over {id} in chi, but keep them first for readers.
			r.Get("/by-status", h.LeadsByStatus)
			r.Get("/statistics", h.Statistics)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetLead)
				r.Put("/", h.UpdateLead)
				r.Patch("/", h.PatchLead)
				r.Delete("/", h.DeleteLead)
				r.Patch("/status", h.UpdateStatus)
			})
		})
	}

	return r
}
