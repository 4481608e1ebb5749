package services

import (
	"fmt"

	"github.com/BradenHooton/irdebg/internal/models"
	"github.com/BradenHooton/irdebg/pkg/password"
)

// LockedError is returned when an identifier is locked out
type LockedError struct {
	MinutesRemaining int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account is temporarily locked, try again in %d minutes", e.MinutesRemaining)
}

func (e *LockedError) Unwrap() error {
	return models.ErrAccountLocked
}

// InvalidCredentialsError is returned when the provider rejects the credentials.
// Locked is true when this failure triggered the lockout.
type InvalidCredentialsError struct {
	AttemptsRemaining int
	Locked            bool
	MinutesRemaining  int
}

func (e *InvalidCredentialsError) Error() string {
	if e.Locked {
		return fmt.Sprintf("invalid credentials, account locked for %d minutes", e.MinutesRemaining)
	}
	return fmt.Sprintf("invalid credentials, %d attempts remaining", e.AttemptsRemaining)
}

func (e *InvalidCredentialsError) Unwrap() error {
	return models.ErrInvalidCredentials
}

// WeakPasswordError is returned when a new password fails the strength policy
type WeakPasswordError struct {
	Evaluation  password.Evaluation
	Suggestions []string
}

func (e *WeakPasswordError) Error() string {
	return fmt.Sprintf("weak password: %d violations, score %d", len(e.Evaluation.Violations), e.Evaluation.Score)
}

func (e *WeakPasswordError) Unwrap() error {
	return models.ErrWeakPassword
}
