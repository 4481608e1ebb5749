package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/admin/lockouts/{identifier}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/admin/lockouts/{identifier}", "404"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/lockouts/a%40b.mx", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/lockouts/c%40d.mx", nil))

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/admin/lockouts/{identifier}", "404"))
	assert.Equal(t, before+2, after)
}

func TestRateLimitByIP_CountsRejections(t *testing.T) {
	scope := "metrics-test"
	handler := RateLimitByIP(RateLimitConfig{Scope: scope, Requests: 1, Window: time.Minute}, nil)(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.50:80"
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(rateLimitedTotal.WithLabelValues(scope)))
}
