package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/BradenHooton/irdebg/internal/models"
	pkghttp "github.com/BradenHooton/irdebg/pkg/http"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "access_token"
	roleContextKey  contextKey = "role"
)

// RoleLookup returns the role stored in a user's profile
type RoleLookup interface {
	ProfileRole(ctx context.Context, accessToken, userID string) (string, error)
}

// AuthMiddleware validates the bearer token and injects its claims into the context
func AuthMiddleware(tv *TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := pkghttp.BearerToken(r)
			if !ok {
				pkghttp.WriteUnauthorized(w, "missing or malformed authorization header")
				return
			}

			claims, err := tv.Verify(tokenString)
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims, tokenString)))
		})
	}
}

// RequireRole allows the request only when the caller's profile role is one of roles.
// The role is read from the profile on every request rather than trusted from the token.
func RequireRole(lookup RoleLookup, logger *slog.Logger, roles ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r)
			if claims == nil {
				pkghttp.WriteUnauthorized(w, "unauthorized")
				return
			}

			role, err := lookup.ProfileRole(r.Context(), GetAccessToken(r), claims.UserID())
			if err != nil {
				if errors.Is(err, models.ErrNotFound) {
					pkghttp.WriteForbidden(w, "insufficient permissions")
					return
				}
				logger.Error("failed to read profile role",
					slog.String("user_id", claims.UserID()),
					slog.Any("error", err))
				pkghttp.WriteServiceUnavailable(w, "unable to verify permissions")
				return
			}

			if !slices.Contains(roles, role) {
				logger.Warn("access denied",
					slog.String("user_id", claims.UserID()),
					slog.String("role", role),
					slog.String("path", r.URL.Path))
				pkghttp.WriteForbidden(w, "insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), roleContextKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin allows admin and superadmin profiles
func RequireAdmin(lookup RoleLookup, logger *slog.Logger) func(next http.Handler) http.Handler {
	return RequireRole(lookup, logger, models.RoleAdmin, models.RoleSuperAdmin)
}

// WithClaims returns ctx carrying verified claims and the token they came from
func WithClaims(ctx context.Context, claims *models.TokenClaims, accessToken string) context.Context {
	ctx = context.WithValue(ctx, userContextKey, claims)
	return context.WithValue(ctx, tokenContextKey, accessToken)
}

// GetUserFromContext extracts token claims from the request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(userContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// GetAccessToken returns the raw bearer token of an authenticated request
func GetAccessToken(r *http.Request) string {
	token, _ := r.Context().Value(tokenContextKey).(string)
	return token
}

// GetRole returns the profile role resolved by RequireRole
func GetRole(r *http.Request) string {
	role, _ := r.Context().Value(roleContextKey).(string)
	return role
}
