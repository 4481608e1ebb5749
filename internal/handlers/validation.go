package handlers

import (
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// ValidationErrorResponse represents a validation error with field-level details
type ValidationErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Global validator instance (reused across all handlers)
var validate = newValidator()

// textPolicy strips every tag from free-text fields
var textPolicy = bluemonday.StrictPolicy()

// ValidateRequest validates a request struct and returns the first failure as a readable error
func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			return fmt.Errorf("validation failed: %s: %s", ve[0].Field(), formatValidationError(ve[0]))
		}
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// SanitizeText removes markup from user-supplied text such as names
func SanitizeText(s string) string {
	cleaned := html.UnescapeString(textPolicy.Sanitize(s))
	cleaned = strings.NewReplacer("<", "", ">", "").Replace(cleaned)
	return strings.TrimSpace(cleaned)
}

// newValidator reports fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "e164":
		return "must be a phone number in international format, e.g. +525512345678"
	case "numeric":
		return "must contain only digits"
	case "len":
		return fmt.Sprintf("must have exactly %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
