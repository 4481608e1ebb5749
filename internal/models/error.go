package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("resource already exists")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// Authentication outcomes
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrWeakPassword       = errors.New("password does not meet strength requirements")
	ErrPasswordMismatch   = errors.New("passwords do not match")

	// Identity provider failures; never counted as failed login attempts
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)
