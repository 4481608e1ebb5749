package models

import "time"

// LoginAttempt is a failed authentication attempt persisted by the shared lockout store
type LoginAttempt struct {
	ID             string    `db:"id"`
	IdentifierHash string    `db:"identifier_hash"`
	AttemptTime    time.Time `db:"attempt_time"`
	ExpiresAt      time.Time `db:"expires_at"`
}
