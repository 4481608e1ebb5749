package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/BradenHooton/irdebg/internal/auth"
	"github.com/BradenHooton/irdebg/internal/lockout"
	pkghttp "github.com/BradenHooton/irdebg/pkg/http"
	pkglogger "github.com/BradenHooton/irdebg/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// LockoutAdmin is the lockout surface exposed to administrators
type LockoutAdmin interface {
	Status(ctx context.Context, identifier string) (lockout.Status, error)
	Reset(ctx context.Context, identifier, reason, actorID string) error
}

// LockoutHandler lets administrators inspect and clear lockouts
type LockoutHandler struct {
	lockouts LockoutAdmin
	logger   *slog.Logger
}

// NewLockoutHandler creates a new LockoutHandler
func NewLockoutHandler(lockouts LockoutAdmin, logger *slog.Logger) *LockoutHandler {
	return &LockoutHandler{lockouts: lockouts, logger: logger}
}

// LockoutStatusResponse is the lockout state of one identifier
type LockoutStatusResponse struct {
	Identifier string `json:"identifier"`
	lockout.Status
}

// GetStatus returns the lockout state of {identifier}
func (h *LockoutHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	identifier, ok := identifierParam(w, r)
	if !ok {
		return
	}

	status, err := h.lockouts.Status(r.Context(), identifier)
	if err != nil {
		h.logger.Error("failed to read lockout status",
			slog.String("identifier", pkglogger.SanitizedIdentifier(identifier)),
			slog.Any("error", err))
		pkghttp.WriteServiceUnavailable(w, "Lockout store is unavailable")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LockoutStatusResponse{Identifier: identifier, Status: status})
}

// Reset clears every recorded failure for {identifier}
func (h *LockoutHandler) Reset(w http.ResponseWriter, r *http.Request) {
	identifier, ok := identifierParam(w, r)
	if !ok {
		return
	}

	var actorID string
	if claims := auth.GetUserFromContext(r); claims != nil {
		actorID = claims.UserID()
	}

	if err := h.lockouts.Reset(r.Context(), identifier, lockout.ResetReasonAdmin, actorID); err != nil {
		h.logger.Error("failed to reset lockout",
			slog.String("identifier", pkglogger.SanitizedIdentifier(identifier)),
			slog.Any("error", err))
		pkghttp.WriteServiceUnavailable(w, "Lockout store is unavailable")
		return
	}

	h.logger.Info("lockout reset by administrator",
		slog.String("identifier", pkglogger.SanitizedIdentifier(identifier)),
		slog.String("actor_id", actorID),
		slog.String("actor_role", auth.GetRole(r)))
	w.WriteHeader(http.StatusNoContent)
}

func identifierParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	identifier, err := url.PathUnescape(chi.URLParam(r, "identifier"))
	if err != nil || identifier == "" {
		pkghttp.WriteBadRequest(w, "identifier is required")
		return "", false
	}
	return identifier, true
}
