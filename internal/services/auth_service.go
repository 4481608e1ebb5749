package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/irdebg/internal/auth"
	"github.com/BradenHooton/irdebg/internal/lockout"
	"github.com/BradenHooton/irdebg/internal/models"
	"github.com/BradenHooton/irdebg/internal/provider"
	pkglogger "github.com/BradenHooton/irdebg/pkg/logger"
	"github.com/BradenHooton/irdebg/pkg/password"
)

// IdentityProvider is the subset of the provider client the auth flows use
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*provider.Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*provider.User, error)
	SendPhoneOTP(ctx context.Context, phone string) error
	VerifyPhoneOTP(ctx context.Context, phone, code string) (*provider.Session, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, accessToken, password string) error
	SignOut(ctx context.Context, accessToken string) error
	ProfileRole(ctx context.Context, accessToken, userID string) (string, error)
}

// LockoutGuard decides whether an identifier may attempt to authenticate
type LockoutGuard interface {
	Check(ctx context.Context, identifier string) (lockout.Status, error)
	RecordFailure(ctx context.Context, identifier string) (lockout.Status, error)
	Reset(ctx context.Context, identifier, reason, actorID string) error
}

// AuthService handles authentication business logic on top of the identity provider
type AuthService struct {
	provider    IdentityProvider
	lockout     LockoutGuard
	timingDelay *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService. timingDelay may be nil.
func NewAuthService(idp IdentityProvider, guard LockoutGuard, timingDelay *auth.TimingDelay, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *AuthService {
	return &AuthService{
		provider:    idp,
		lockout:     guard,
		timingDelay: timingDelay,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// RequestMeta describes the client making an authentication request
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// LoginResult is returned on successful authentication
type LoginResult struct {
	UserID       string `json:"user_id"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Role         string `json:"role"`
	IsAdmin      bool   `json:"is_admin"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// RegisterInput holds the fields of a registration request
type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
}

// RegisterResult is returned on successful registration
type RegisterResult struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	StrengthScore int    `json:"strength_score"`
	StrengthLevel string `json:"strength_level"`
}

// StrengthReport is the live feedback shown while a password is typed
type StrengthReport struct {
	Valid       bool     `json:"valid"`
	Violations  []string `json:"violations"`
	Score       int      `json:"score"`
	Level       string   `json:"level"`
	Color       string   `json:"color"`
	Suggestions []string `json:"suggestions"`
}

// Login authenticates email and password against the provider, enforcing the lockout
func (s *AuthService) Login(ctx context.Context, email, pwd string, meta RequestMeta) (*LoginResult, error) {
	start := time.Now()

	// 1. Refuse locked identifiers before contacting the provider
	if err := s.checkLocked(ctx, email, meta); err != nil {
		return nil, err
	}

	// 2. Verify credentials
	session, err := s.provider.SignInWithPassword(ctx, email, pwd)
	if err != nil {
		return nil, s.handleSignInError(ctx, email, err, meta, start)
	}

	// 3. Success clears the failure history
	return s.completeSignIn(ctx, email, session, meta), nil
}

// SendOTP texts a one-time code to phone unless the phone is locked out
func (s *AuthService) SendOTP(ctx context.Context, phone string, meta RequestMeta) error {
	if err := s.checkLocked(ctx, phone, meta); err != nil {
		return err
	}

	if err := s.provider.SendPhoneOTP(ctx, phone); err != nil {
		s.logger.Error("failed to send phone otp",
			slog.String("phone", pkglogger.SanitizedIdentifier(phone)),
			slog.Any("error", err))
		return err
	}

	s.logger.Info("phone otp sent", slog.String("phone", pkglogger.SanitizedIdentifier(phone)))
	return nil
}

// VerifyOTP signs in with a texted code. Wrong codes count toward the phone's lockout.
func (s *AuthService) VerifyOTP(ctx context.Context, phone, code string, meta RequestMeta) (*LoginResult, error) {
	start := time.Now()

	if err := s.checkLocked(ctx, phone, meta); err != nil {
		return nil, err
	}

	session, err := s.provider.VerifyPhoneOTP(ctx, phone, code)
	if err != nil {
		return nil, s.handleSignInError(ctx, phone, err, meta, start)
	}

	return s.completeSignIn(ctx, phone, session, meta), nil
}

// Register creates an account after checking the password policy
func (s *AuthService) Register(ctx context.Context, input RegisterInput, meta RequestMeta) (*RegisterResult, error) {
	if input.Password != input.ConfirmPassword {
		return nil, models.ErrPasswordMismatch
	}

	evaluation := password.Evaluate(input.Password)
	if !evaluation.Valid {
		s.logger.Info("registration rejected: weak password",
			slog.String("email", pkglogger.SanitizedEmail(input.Email)),
			slog.Int("score", evaluation.Score),
			slog.Int("violations", len(evaluation.Violations)))
		return nil, &WeakPasswordError{
			Evaluation:  evaluation,
			Suggestions: displayedSuggestions(input.Password),
		}
	}

	fullName := strings.TrimSpace(input.FirstName + " " + input.LastName)
	metadata := map[string]any{
		"first_name": input.FirstName,
		"last_name":  input.LastName,
		"full_name":  fullName,
	}

	user, err := s.provider.SignUp(ctx, input.Email, input.Password, metadata)
	if err != nil {
		s.logger.Warn("registration failed",
			slog.String("email", pkglogger.SanitizedEmail(input.Email)),
			slog.Any("error", err))
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.Int("strength_score", evaluation.Score))
	s.auditLogger.LogAccountAction("user_registered", user.ID, meta.IPAddress, map[string]string{
		"strength_level": password.Level(evaluation.Score),
	})

	return &RegisterResult{
		UserID:        user.ID,
		Email:         user.Email,
		StrengthScore: evaluation.Score,
		StrengthLevel: password.Level(evaluation.Score),
	}, nil
}

// PasswordStrength evaluates pwd for live feedback
func (s *AuthService) PasswordStrength(pwd string) StrengthReport {
	evaluation := password.Evaluate(pwd)
	return StrengthReport{
		Valid:       evaluation.Valid,
		Violations:  evaluation.Violations,
		Score:       evaluation.Score,
		Level:       password.Level(evaluation.Score),
		Color:       password.Color(evaluation.Score),
		Suggestions: password.Suggest(pwd),
	}
}

// RequestPasswordReset asks the provider to send a recovery email. Unknown
// addresses are reported as success so that accounts cannot be enumerated.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, redirectTo string) error {
	err := s.provider.ResetPasswordForEmail(ctx, email, redirectTo)
	if err == nil {
		s.logger.Info("password reset requested", slog.String("email", pkglogger.SanitizedEmail(email)))
		return nil
	}

	if errors.Is(err, models.ErrProviderUnavailable) {
		return err
	}

	s.logger.Warn("password reset request rejected by provider",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.Any("error", err))
	return nil
}

// ResetPassword sets a new password for the holder of a recovery access token
// and ends that recovery session
func (s *AuthService) ResetPassword(ctx context.Context, accessToken, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return models.ErrPasswordMismatch
	}

	evaluation := password.Evaluate(newPassword)
	if !evaluation.Valid {
		return &WeakPasswordError{
			Evaluation:  evaluation,
			Suggestions: displayedSuggestions(newPassword),
		}
	}

	if err := s.provider.UpdatePassword(ctx, accessToken, newPassword); err != nil {
		s.logger.Warn("password update failed", slog.Any("error", err))
		return err
	}

	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		s.logger.Warn("failed to end recovery session", slog.Any("error", err))
	}

	s.logger.Info("password reset completed", slog.Int("strength_score", evaluation.Score))
	return nil
}

// Logout ends the provider session. Provider failures are logged, not returned.
func (s *AuthService) Logout(ctx context.Context, accessToken, userID string) {
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		s.logger.Warn("provider sign-out failed", slog.String("user_id", userID), slog.Any("error", err))
		return
	}
	s.logger.Info("user logged out", slog.String("user_id", userID))
}

// checkLocked returns a LockedError when identifier may not authenticate.
// Store failures fail open: the provider still checks the credentials.
func (s *AuthService) checkLocked(ctx context.Context, identifier string, meta RequestMeta) error {
	status, err := s.lockout.Check(ctx, identifier)
	if err != nil {
		s.logger.Error("lockout check failed, allowing attempt",
			slog.String("identifier", pkglogger.SanitizedIdentifier(identifier)),
			slog.Any("error", err))
		return nil
	}

	if !status.Locked {
		return nil
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		Identifier:    identifier,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
		FailureReason: "account_locked",
	})
	return &LockedError{MinutesRemaining: status.MinutesRemaining}
}

// handleSignInError records a failure only when the provider rejected the credentials
func (s *AuthService) handleSignInError(ctx context.Context, identifier string, err error, meta RequestMeta, start time.Time) error {
	if !errors.Is(err, models.ErrInvalidCredentials) {
		s.logger.Error("sign-in could not be completed",
			slog.String("identifier", pkglogger.SanitizedIdentifier(identifier)),
			slog.Any("error", err))
		return err
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		Identifier:    identifier,
		IPAddress:     meta.IPAddress,
		UserAgent:     meta.UserAgent,
		FailureReason: "invalid_credentials",
	})

	status, recordErr := s.lockout.RecordFailure(ctx, identifier)
	if s.timingDelay != nil {
		s.timingDelay.WaitFrom(ctx, start, false)
	}
	if recordErr != nil {
		s.logger.Error("failed to record failed attempt",
			slog.String("identifier", pkglogger.SanitizedIdentifier(identifier)),
			slog.Any("error", recordErr))
		return models.ErrInvalidCredentials
	}

	return &InvalidCredentialsError{
		AttemptsRemaining: status.AttemptsRemaining,
		Locked:            status.Locked,
		MinutesRemaining:  status.MinutesRemaining,
	}
}

// completeSignIn clears the failure history and resolves the profile role
func (s *AuthService) completeSignIn(ctx context.Context, identifier string, session *provider.Session, meta RequestMeta) *LoginResult {
	if err := s.lockout.Reset(ctx, identifier, lockout.ResetReasonLoginSuccess, ""); err != nil {
		s.logger.Error("failed to reset lockout after successful sign-in",
			slog.String("identifier", pkglogger.SanitizedIdentifier(identifier)),
			slog.Any("error", err))
	}

	role, err := s.provider.ProfileRole(ctx, session.AccessToken, session.User.ID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn("failed to read profile role, using default",
				slog.String("user_id", session.User.ID),
				slog.Any("error", err))
		}
		role = models.DefaultRole
	}

	s.logger.Info("user signed in", slog.String("user_id", session.User.ID), slog.String("role", role))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    session.User.ID,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   true,
	})

	return &LoginResult{
		UserID:       session.User.ID,
		Email:        session.User.Email,
		Phone:        session.User.Phone,
		Role:         role,
		IsAdmin:      models.IsAdminRole(role),
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    session.ExpiresIn,
	}
}

// displayedSuggestions returns the hints shown next to a rejected password
func displayedSuggestions(pwd string) []string {
	suggestions := password.Suggest(pwd)
	if len(suggestions) > password.MaxDisplayedSuggestions {
		suggestions = suggestions[:password.MaxDisplayedSuggestions]
	}
	return suggestions
}
