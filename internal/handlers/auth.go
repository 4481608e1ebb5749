package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/irdebg/internal/auth"
	"github.com/BradenHooton/irdebg/internal/models"
	"github.com/BradenHooton/irdebg/internal/provider"
	"github.com/BradenHooton/irdebg/internal/services"
	pkghttp "github.com/BradenHooton/irdebg/pkg/http"
	"github.com/BradenHooton/irdebg/pkg/password"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string, meta services.RequestMeta) (*services.LoginResult, error)
	Register(ctx context.Context, input services.RegisterInput, meta services.RequestMeta) (*services.RegisterResult, error)
	PasswordStrength(password string) services.StrengthReport
	RequestPasswordReset(ctx context.Context, email, redirectTo string) error
	ResetPassword(ctx context.Context, accessToken, newPassword, confirmPassword string) error
	SendOTP(ctx context.Context, phone string, meta services.RequestMeta) error
	VerifyOTP(ctx context.Context, phone, code string, meta services.RequestMeta) (*services.LoginResult, error)
	Logout(ctx context.Context, accessToken, userID string)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service          AuthServiceInterface
	ipConfig         *pkghttp.IPConfig
	resetRedirectURL string
	logger           *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. resetRedirectURL is where recovery emails link to.
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig, resetRedirectURL string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:          service,
		ipConfig:         ipConfig,
		resetRedirectURL: resetRedirectURL,
		logger:           logger,
	}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,max=128"`
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
}

// PasswordStrengthRequest represents the request body for live strength feedback
type PasswordStrengthRequest struct {
	Password string `json:"password" validate:"max=128"`
}

// ForgotPasswordRequest represents the request body for starting a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

// ResetPasswordRequest represents the request body for setting a new password
type ResetPasswordRequest struct {
	Password        string `json:"password" validate:"required,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,max=128"`
}

// SendOTPRequest represents the request body for texting a one-time code
type SendOTPRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
}

// VerifyOTPRequest represents the request body for signing in with a texted code
type VerifyOTPRequest struct {
	Phone string `json:"phone" validate:"required,e164"`
	Code  string `json:"code" validate:"required,numeric,len=6"`
}

// WeakPasswordDetails is returned with a 400 when a new password is rejected
type WeakPasswordDetails struct {
	Violations  []string `json:"violations"`
	Suggestions []string `json:"suggestions"`
	Score       int      `json:"score"`
	Level       string   `json:"level"`
	Color       string   `json:"color"`
}

// Login handles email and password sign-in
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} services.LoginResult
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 423 {object} pkghttp.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	// Identifiers are matched verbatim; normalize only drops surrounding whitespace
	result, err := h.service.Login(r.Context(), req.Email, req.Password, h.requestMeta(r))
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// Register handles account creation
// @Summary Register a new account
// @Accept json
// @Param request body RegisterRequest true "Registration request"
// @Produce json
// @Success 201 {object} services.RegisterResult
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	input := services.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		FirstName:       SanitizeText(req.FirstName),
		LastName:        SanitizeText(req.LastName),
	}
	if input.FirstName == "" || input.LastName == "" {
		pkghttp.WriteBadRequest(w, "first and last name are required")
		return
	}

	result, err := h.service.Register(r.Context(), input, h.requestMeta(r))
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, result)
}

// PasswordStrength returns live feedback for a candidate password
func (h *AuthHandler) PasswordStrength(w http.ResponseWriter, r *http.Request) {
	var req PasswordStrengthRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, h.service.PasswordStrength(req.Password))
}

// ForgotPassword starts a password reset. The response does not reveal whether the account exists.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email, h.resetRedirectURL); err != nil {
		h.writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "If an account exists for that address, a reset link has been sent",
	})
}

// ResetPassword sets a new password using the recovery session's access token
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), auth.GetAccessToken(r), req.Password, req.ConfirmPassword); err != nil {
		h.writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// SendOTP texts a one-time sign-in code
func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req SendOTPRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.SendOTP(r.Context(), req.Phone, h.requestMeta(r)); err != nil {
		h.writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{"message": "Verification code sent"})
}

// VerifyOTP signs in with a texted code
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.VerifyOTP(r.Context(), req.Phone, req.Code, h.requestMeta(r))
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// Logout ends the caller's provider session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	h.service.Logout(r.Context(), auth.GetAccessToken(r), claims.UserID())
	w.WriteHeader(http.StatusNoContent)
}

// normalizer is implemented by requests that clean their fields before validation
type normalizer interface {
	normalize()
}

func (req *LoginRequest) normalize()          { req.Email = strings.TrimSpace(req.Email) }
func (req *RegisterRequest) normalize()       { req.Email = strings.TrimSpace(req.Email) }
func (req *ForgotPasswordRequest) normalize() { req.Email = strings.TrimSpace(req.Email) }
func (req *SendOTPRequest) normalize()        { req.Phone = strings.TrimSpace(req.Phone) }
func (req *VerifyOTPRequest) normalize() {
	req.Phone = strings.TrimSpace(req.Phone)
	req.Code = strings.TrimSpace(req.Code)
}

func (h *AuthHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := pkghttp.DecodeJSON(w, r, dst); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return false
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := ValidateRequest(dst); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

func (h *AuthHandler) requestMeta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.UserAgent(),
	}
}

// writeAuthError maps service errors to HTTP responses
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error) {
	var (
		lockedErr *services.LockedError
		credErr   *services.InvalidCredentialsError
		weakErr   *services.WeakPasswordError
		apiErr    *provider.APIError
	)

	switch {
	case errors.As(err, &lockedErr):
		pkghttp.WriteLocked(w, "Too many failed attempts. Try again later.", lockedErr.MinutesRemaining)
	case errors.As(err, &credErr):
		if credErr.Locked {
			pkghttp.WriteLocked(w, "Too many failed attempts. Try again later.", credErr.MinutesRemaining)
			return
		}
		pkghttp.WriteErrorWithDetails(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials",
			map[string]int{"attempts_remaining": credErr.AttemptsRemaining})
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
	case errors.As(err, &weakErr):
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "weak_password", "Password does not meet the requirements", WeakPasswordDetails{
			Violations:  weakErr.Evaluation.Violations,
			Suggestions: weakErr.Suggestions,
			Score:       weakErr.Evaluation.Score,
			Level:       password.Level(weakErr.Evaluation.Score),
			Color:       password.Color(weakErr.Evaluation.Score),
		})
	case errors.Is(err, models.ErrPasswordMismatch):
		pkghttp.WriteError(w, http.StatusBadRequest, "password_mismatch", "Passwords do not match")
	case errors.Is(err, models.ErrWeakPassword):
		pkghttp.WriteError(w, http.StatusBadRequest, "weak_password", "Password does not meet the requirements")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "An account with these details already exists")
	case errors.Is(err, models.ErrProviderUnavailable):
		pkghttp.WriteServiceUnavailable(w, "Authentication service is temporarily unavailable")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Session is invalid or expired")
	case errors.As(err, &apiErr):
		pkghttp.WriteBadRequest(w, apiErr.Message)
	default:
		h.logger.Error("unhandled auth error", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
