package middleware

import (
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/irdebg/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig is one fixed-window limit per client IP
type RateLimitConfig struct {
	Scope    string // Metric label
	Requests int
	Window   time.Duration
}

// DefaultAuthRateLimit limits credential endpoints to 10 requests per minute per IP
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{Scope: "auth", Requests: 10, Window: time.Minute}
}

// DefaultGlobalRateLimits are the site-wide per-IP limits: 50 per hour and 200 per day
func DefaultGlobalRateLimits() []RateLimitConfig {
	return []RateLimitConfig{
		{Scope: "hourly", Requests: 50, Window: time.Hour},
		{Scope: "daily", Requests: 200, Window: 24 * time.Hour},
	}
}

// RateLimitByIP rate limits requests by client IP. Forwarding headers are only
// honoured from the trusted proxies in ipConfig.
func RateLimitByIP(config RateLimitConfig, ipConfig *pkghttp.IPConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, ipConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			rateLimitedTotal.WithLabelValues(config.Scope).Inc()
			pkghttp.WriteTooManyRequests(w, "Rate limit exceeded, try again later")
		}),
	)
}
