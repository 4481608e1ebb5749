package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/irdebg/internal/auth"
	"github.com/BradenHooton/irdebg/internal/lockout"
	"github.com/BradenHooton/irdebg/internal/models"
	"github.com/BradenHooton/irdebg/internal/services"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockNotConfigured = errors.New("mock not configured")

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc                func(ctx context.Context, email, password string, meta services.RequestMeta) (*services.LoginResult, error)
	RegisterFunc             func(ctx context.Context, input services.RegisterInput, meta services.RequestMeta) (*services.RegisterResult, error)
	PasswordStrengthFunc     func(password string) services.StrengthReport
	RequestPasswordResetFunc func(ctx context.Context, email, redirectTo string) error
	ResetPasswordFunc        func(ctx context.Context, accessToken, newPassword, confirmPassword string) error
	SendOTPFunc              func(ctx context.Context, phone string, meta services.RequestMeta) error
	VerifyOTPFunc            func(ctx context.Context, phone, code string, meta services.RequestMeta) (*services.LoginResult, error)
	LogoutFunc               func(ctx context.Context, accessToken, userID string)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string, meta services.RequestMeta) (*services.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, meta)
	}
	return nil, errMockNotConfigured
}

func (m *MockAuthService) Register(ctx context.Context, input services.RegisterInput, meta services.RequestMeta) (*services.RegisterResult, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, input, meta)
	}
	return nil, errMockNotConfigured
}

func (m *MockAuthService) PasswordStrength(password string) services.StrengthReport {
	if m.PasswordStrengthFunc != nil {
		return m.PasswordStrengthFunc(password)
	}
	return services.StrengthReport{}
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email, redirectTo string) error {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email, redirectTo)
	}
	return nil
}

func (m *MockAuthService) ResetPassword(ctx context.Context, accessToken, newPassword, confirmPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, accessToken, newPassword, confirmPassword)
	}
	return nil
}

func (m *MockAuthService) SendOTP(ctx context.Context, phone string, meta services.RequestMeta) error {
	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, phone, meta)
	}
	return nil
}

func (m *MockAuthService) VerifyOTP(ctx context.Context, phone, code string, meta services.RequestMeta) (*services.LoginResult, error) {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, phone, code, meta)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAuthService) Logout(ctx context.Context, accessToken, userID string) {
	if m.LogoutFunc != nil {
		m.LogoutFunc(ctx, accessToken, userID)
	}
}

// MockLockoutAdmin implements LockoutAdmin for testing
type MockLockoutAdmin struct {
	StatusFunc func(ctx context.Context, identifier string) (lockout.Status, error)
	ResetFunc  func(ctx context.Context, identifier, reason, actorID string) error
}

func (m *MockLockoutAdmin) Status(ctx context.Context, identifier string) (lockout.Status, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, identifier)
	}
	return lockout.Status{AttemptsRemaining: lockout.DefaultMaxAttempts}, nil
}

func (m *MockLockoutAdmin) Reset(ctx context.Context, identifier, reason, actorID string) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, identifier, reason, actorID)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRequest creates an HTTP request with a JSON body
func newTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withAuthContext attaches verified claims as AuthMiddleware would
func withAuthContext(req *http.Request, userID, accessToken string) *http.Request {
	claims := &models.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}
	return req.WithContext(auth.WithClaims(req.Context(), claims, accessToken))
}

// errorBody is the decoded shape of an error response
type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// assertErrorResponse checks status and error code and returns the decoded body
func assertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedCode string) errorBody {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, expectedCode, body.Error)
	return body
}
