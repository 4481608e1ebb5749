package handlers

import (
	"context"
	"log/slog"
	"net/http"

	pkghttp "github.com/BradenHooton/irdebg/pkg/http"
)

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	checks map[string]HealthChecker
	logger *slog.Logger
}

// NewHealthHandler creates a new HealthHandler. checks may be empty.
func NewHealthHandler(checks map[string]HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

// Health returns 200 when every registered dependency responds
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(h.checks))
	healthy := true

	for name, check := range h.checks {
		if err := check.HealthCheck(r.Context()); err != nil {
			h.logger.Warn("health check failed", slog.String("component", name), slog.Any("error", err))
			components[name] = "unavailable"
			healthy = false
			continue
		}
		components[name] = "ok"
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	pkghttp.WriteJSON(w, code, map[string]any{
		"status":     status,
		"components": components,
	})
}
