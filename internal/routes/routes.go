package routes

import (
	"log/slog"
	"net/http"

	"github.com/BradenHooton/irdebg/internal/auth"
	"github.com/BradenHooton/irdebg/internal/handlers"
	"github.com/BradenHooton/irdebg/internal/middleware"
	pkghttp "github.com/BradenHooton/irdebg/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers all application routes. Application routes share the
// site-wide per-IP limits; the auth group adds a tighter one.
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	lockoutHandler *handlers.LockoutHandler,
	healthHandler *handlers.HealthHandler,
	tokenVerifier *auth.TokenVerifier,
	roles auth.RoleLookup,
	ipConfig *pkghttp.IPConfig,
	logger *slog.Logger,
) {
	// Health checks and scrapes stay outside the per-IP budgets
	router.Get("/health", healthHandler.Health)
	router.Handle("/metrics", promhttp.Handler())

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteNotFound(w, "route not found")
	})

	router.Group(func(router chi.Router) {
		for _, limit := range middleware.DefaultGlobalRateLimits() {
			router.Use(middleware.RateLimitByIP(limit, ipConfig))
		}

		router.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.DefaultAuthRateLimit(), ipConfig))

			// Public routes - no authentication required
			r.Post("/login", authHandler.Login)
			r.Post("/register", authHandler.Register)
			r.Post("/password-strength", authHandler.PasswordStrength)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/otp/send", authHandler.SendOTP)
			r.Post("/otp/verify", authHandler.VerifyOTP)

			// Bearer token required; reset-password uses the recovery session
			r.Group(func(r chi.Router) {
				r.Use(auth.AuthMiddleware(tokenVerifier))
				r.Post("/reset-password", authHandler.ResetPassword)
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Admin-only routes
		router.Route("/admin", func(r chi.Router) {
			r.Use(auth.AuthMiddleware(tokenVerifier))
			r.Use(auth.RequireAdmin(roles, logger))

			r.Get("/lockouts/{identifier}", lockoutHandler.GetStatus)
			r.Delete("/lockouts/{identifier}", lockoutHandler.Reset)
		})
	})
}
