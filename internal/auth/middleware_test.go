package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/irdebg/internal/auth"
	"github.com/BradenHooton/irdebg/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-characters!!"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(sub string) *models.TokenClaims {
	return &models.TokenClaims{
		Email: "admin@becas.mx",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Audience:  jwt.ClaimStrings{auth.DefaultAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

type stubRoleLookup struct {
	role string
	err  error
	seen []string
}

func (s *stubRoleLookup) ProfileRole(ctx context.Context, accessToken, userID string) (string, error) {
	s.seen = append(s.seen, accessToken+"|"+userID)
	return s.role, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTokenVerifier_Verify(t *testing.T) {
	tv := auth.NewTokenVerifier(testSecret, auth.DefaultAudience)

	t.Run("valid", func(t *testing.T) {
		claims, err := tv.Verify(signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("user-1")))
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID())
		assert.Equal(t, "admin@becas.mx", claims.Email)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := tv.Verify(signToken(t, "another-secret-of-enough-length!!!!", jwt.SigningMethodHS256, validClaims("user-1")))
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		claims := validClaims("user-1")
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		_, err := tv.Verify(signToken(t, testSecret, jwt.SigningMethodHS256, claims))
		assert.Error(t, err)
	})

	t.Run("missing expiry", func(t *testing.T) {
		claims := validClaims("user-1")
		claims.ExpiresAt = nil
		_, err := tv.Verify(signToken(t, testSecret, jwt.SigningMethodHS256, claims))
		assert.Error(t, err)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := validClaims("user-1")
		claims.Audience = jwt.ClaimStrings{"anon"}
		_, err := tv.Verify(signToken(t, testSecret, jwt.SigningMethodHS256, claims))
		assert.Error(t, err)
	})

	t.Run("other algorithm", func(t *testing.T) {
		_, err := tv.Verify(signToken(t, testSecret, jwt.SigningMethodHS512, validClaims("user-1")))
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		_, err := tv.Verify(signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("")))
		assert.Error(t, err)
	})
}

func TestAuthMiddleware(t *testing.T) {
	tv := auth.NewTokenVerifier(testSecret, auth.DefaultAudience)
	token := signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("user-1"))

	var gotUser, gotToken string
	handler := auth.AuthMiddleware(tv)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = auth.GetUserFromContext(r).UserID()
		gotToken = auth.GetAccessToken(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	assert.Equal(t, "user-1", gotUser)
	assert.Equal(t, token, gotToken)
}

func TestRequireAdmin(t *testing.T) {
	tv := auth.NewTokenVerifier(testSecret, auth.DefaultAudience)
	token := signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("user-1"))

	tests := []struct {
		name string
		role string
		err  error
		want int
	}{
		{"admin", models.RoleAdmin, nil, http.StatusOK},
		{"superadmin", models.RoleSuperAdmin, nil, http.StatusOK},
		{"regular user", models.RoleUser, nil, http.StatusForbidden},
		{"no profile", "", models.ErrNotFound, http.StatusForbidden},
		{"provider down", "", models.ErrProviderUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lookup := &stubRoleLookup{role: tt.role, err: tt.err}
			var gotRole string
			handler := auth.AuthMiddleware(tv)(auth.RequireAdmin(lookup, discardLogger())(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					gotRole = auth.GetRole(r)
					w.WriteHeader(http.StatusOK)
				})))

			req := httptest.NewRequest(http.MethodGet, "/admin/lockouts/a@x.com", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, []string{token + "|user-1"}, lookup.seen)
			if tt.want == http.StatusOK {
				assert.Equal(t, tt.role, gotRole)
			}
		})
	}
}

func TestRequireRole_WithoutAuthMiddleware(t *testing.T) {
	handler := auth.RequireAdmin(&stubRoleLookup{role: models.RoleAdmin}, discardLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run")
		}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
