package provider

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/BradenHooton/irdebg/internal/models"
)

// APIError is a client error reported by the identity provider
type APIError struct {
	StatusCode  int
	Code        string
	Message     string
	sentinelErr error
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
}

// Unwrap allows errors.Is against models.ErrBadRequest and friends
func (e *APIError) Unwrap() error {
	return e.sentinelErr
}

// errorBody covers both GoTrue error formats and the PostgREST one
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Code             any    `json:"code"`
}

func (b errorBody) code() string {
	if b.ErrorCode != "" {
		return b.ErrorCode
	}
	if b.Error != "" {
		return b.Error
	}
	if s, ok := b.Code.(string); ok {
		return s
	}
	return ""
}

func (b errorBody) message() string {
	for _, m := range []string{b.ErrorDescription, b.Msg, b.Message} {
		if m != "" {
			return m
		}
	}
	return ""
}

var credentialCodes = map[string]bool{
	"invalid_grant":       true,
	"invalid_credentials": true,
	"otp_expired":         true,
}

var credentialMessages = []string{
	"invalid login credentials",
	"token has expired or is invalid",
}

// classifyError maps a non-2xx response to the error callers act on.
// Only rejected credentials become models.ErrInvalidCredentials; nothing else may
// count toward a lockout.
func classifyError(statusCode int, body errorBody) error {
	if statusCode >= http.StatusInternalServerError || statusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d", models.ErrProviderUnavailable, statusCode)
	}

	code := body.code()
	msg := body.message()

	switch statusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
		if credentialCodes[code] || containsAny(strings.ToLower(msg), credentialMessages) {
			return models.ErrInvalidCredentials
		}
	}

	apiErr := &APIError{
		StatusCode:  statusCode,
		Code:        code,
		Message:     msg,
		sentinelErr: models.ErrBadRequest,
	}
	switch statusCode {
	case http.StatusUnauthorized:
		apiErr.sentinelErr = models.ErrUnauthorized
	case http.StatusForbidden:
		apiErr.sentinelErr = models.ErrForbidden
	case http.StatusNotFound:
		apiErr.sentinelErr = models.ErrNotFound
	case http.StatusConflict:
		apiErr.sentinelErr = models.ErrConflict
	}
	switch code {
	case "user_already_exists", "email_exists", "phone_exists":
		apiErr.sentinelErr = models.ErrConflict
	case "weak_password":
		apiErr.sentinelErr = models.ErrWeakPassword
	}
	return apiErr
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
