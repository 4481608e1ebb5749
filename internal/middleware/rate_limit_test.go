package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkghttp "github.com/BradenHooton/irdebg/pkg/http"
	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitByIP_BlocksAfterLimit(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{Scope: "test", Requests: 3, Window: time.Minute}, nil)(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "203.0.113.1:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "203.0.113.1:1234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")

	// Another client is unaffected
	req = httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "203.0.113.2:1234"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitByIP_IgnoresSpoofedForwardedFor(t *testing.T) {
	ipConfig := &pkghttp.IPConfig{TrustedProxies: []string{"10.0.0.0/8"}}
	handler := RateLimitByIP(RateLimitConfig{Scope: "test", Requests: 1, Window: time.Minute}, ipConfig)(okHandler())

	send := func(remote, xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", xff)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.9:1", "1.1.1.1"))
	// Rotating the header from an untrusted peer does not reset the bucket
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.9:1", "2.2.2.2"))

	// Behind a trusted proxy each forwarded client gets its own bucket
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1", "198.51.100.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1", "198.51.100.2"))
}

func TestDefaultRateLimits(t *testing.T) {
	auth := DefaultAuthRateLimit()
	assert.Equal(t, 10, auth.Requests)
	assert.Equal(t, time.Minute, auth.Window)

	global := DefaultGlobalRateLimits()
	assert.Equal(t, []RateLimitConfig{
		{Scope: "hourly", Requests: 50, Window: time.Hour},
		{Scope: "daily", Requests: 200, Window: 24 * time.Hour},
	}, global)
}
