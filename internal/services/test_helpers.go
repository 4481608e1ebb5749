package services

import (
	"context"
	"io"
	"log/slog"

	"github.com/BradenHooton/irdebg/internal/lockout"
	"github.com/BradenHooton/irdebg/internal/models"
	"github.com/BradenHooton/irdebg/internal/provider"
	pkglogger "github.com/BradenHooton/irdebg/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

// MockIdentityProvider implements IdentityProvider for testing
type MockIdentityProvider struct {
	SignInWithPasswordFunc    func(ctx context.Context, email, password string) (*provider.Session, error)
	SignUpFunc                func(ctx context.Context, email, password string, metadata map[string]any) (*provider.User, error)
	SendPhoneOTPFunc          func(ctx context.Context, phone string) error
	VerifyPhoneOTPFunc        func(ctx context.Context, phone, code string) (*provider.Session, error)
	ResetPasswordForEmailFunc func(ctx context.Context, email, redirectTo string) error
	UpdatePasswordFunc        func(ctx context.Context, accessToken, password string) error
	SignOutFunc               func(ctx context.Context, accessToken string) error
	ProfileRoleFunc           func(ctx context.Context, accessToken, userID string) (string, error)

	SignInCalls  int
	SignOutCalls int
}

func (m *MockIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (*provider.Session, error) {
	m.SignInCalls++
	if m.SignInWithPasswordFunc != nil {
		return m.SignInWithPasswordFunc(ctx, email, password)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*provider.User, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, email, password, metadata)
	}
	return &provider.User{ID: "new-user", Email: email}, nil
}

func (m *MockIdentityProvider) SendPhoneOTP(ctx context.Context, phone string) error {
	if m.SendPhoneOTPFunc != nil {
		return m.SendPhoneOTPFunc(ctx, phone)
	}
	return nil
}

func (m *MockIdentityProvider) VerifyPhoneOTP(ctx context.Context, phone, code string) (*provider.Session, error) {
	if m.VerifyPhoneOTPFunc != nil {
		return m.VerifyPhoneOTPFunc(ctx, phone, code)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockIdentityProvider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	if m.ResetPasswordForEmailFunc != nil {
		return m.ResetPasswordForEmailFunc(ctx, email, redirectTo)
	}
	return nil
}

func (m *MockIdentityProvider) UpdatePassword(ctx context.Context, accessToken, password string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, accessToken, password)
	}
	return nil
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	m.SignOutCalls++
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, accessToken)
	}
	return nil
}

func (m *MockIdentityProvider) ProfileRole(ctx context.Context, accessToken, userID string) (string, error) {
	if m.ProfileRoleFunc != nil {
		return m.ProfileRoleFunc(ctx, accessToken, userID)
	}
	return "", models.ErrNotFound
}

// MockLockoutGuard implements LockoutGuard for testing store failures
type MockLockoutGuard struct {
	CheckFunc         func(ctx context.Context, identifier string) (lockout.Status, error)
	RecordFailureFunc func(ctx context.Context, identifier string) (lockout.Status, error)
	ResetFunc         func(ctx context.Context, identifier, reason, actorID string) error
}

func (m *MockLockoutGuard) Check(ctx context.Context, identifier string) (lockout.Status, error) {
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx, identifier)
	}
	return lockout.Status{AttemptsRemaining: lockout.DefaultMaxAttempts}, nil
}

func (m *MockLockoutGuard) RecordFailure(ctx context.Context, identifier string) (lockout.Status, error) {
	if m.RecordFailureFunc != nil {
		return m.RecordFailureFunc(ctx, identifier)
	}
	return lockout.Status{AttemptsRemaining: lockout.DefaultMaxAttempts - 1}, nil
}

func (m *MockLockoutGuard) Reset(ctx context.Context, identifier, reason, actorID string) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, identifier, reason, actorID)
	}
	return nil
}

// MockSESClient implements SESAPI for testing
type MockSESClient struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
	Sent          []*ses.SendEmailInput
}

func (m *MockSESClient) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	m.Sent = append(m.Sent, params)
	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, params, optFns...)
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

// NewTestSession returns a provider session for userID
func NewTestSession(userID, email string) *provider.Session {
	return &provider.Session{
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		TokenType:    "bearer",
		ExpiresIn:    3600,
		User:         provider.User{ID: userID, Email: email},
	}
}

// newTestLogger returns a logger that discards output
func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestLockout returns an in-memory lockout service with the default policy
func newTestLockout(clock lockout.Clock) *lockout.Service {
	logger := newTestLogger()
	tracker := lockout.NewTrackerWithClock(lockout.DefaultConfig(), clock)
	return lockout.NewService(lockout.NewMemoryStore(tracker), logger, pkglogger.NewAuditLogger(logger))
}

// newTestAuthService wires an AuthService without timing padding
func newTestAuthService(idp IdentityProvider, guard LockoutGuard) *AuthService {
	logger := newTestLogger()
	return NewAuthService(idp, guard, nil, logger, pkglogger.NewAuditLogger(logger))
}
