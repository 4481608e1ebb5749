package repositories

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/BradenHooton/irdebg/internal/database"
	"github.com/BradenHooton/irdebg/internal/lockout"
	"github.com/BradenHooton/irdebg/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/blake2b"
)

// LoginAttemptRepository is a lockout.Store backed by the login_attempts table.
// Every replica pointed at the same database shares one view of the failures.
type LoginAttemptRepository struct {
	db      *database.DB
	hashKey []byte
	config  lockout.Config
	now     lockout.Clock
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository.
// hashKey keys the BLAKE2b digest used in place of the raw identifier and must be at most 64 bytes.
func NewLoginAttemptRepository(db *database.DB, hashKey []byte, config lockout.Config) (*LoginAttemptRepository, error) {
	return NewLoginAttemptRepositoryWithClock(db, hashKey, config, time.Now)
}

// NewLoginAttemptRepositoryWithClock creates a LoginAttemptRepository that reads time from clock
func NewLoginAttemptRepositoryWithClock(db *database.DB, hashKey []byte, config lockout.Config, clock lockout.Clock) (*LoginAttemptRepository, error) {
	if len(hashKey) > blake2b.Size {
		return nil, fmt.Errorf("lockout hash key must be at most %d bytes", blake2b.Size)
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = lockout.DefaultMaxAttempts
	}
	if config.LockoutDuration <= 0 {
		config.LockoutDuration = lockout.DefaultLockoutDuration
	}
	if clock == nil {
		clock = time.Now
	}

	return &LoginAttemptRepository{
		db:      db,
		hashKey: hashKey,
		config:  config,
		now:     clock,
	}, nil
}

// HashIdentifier returns the hex digest stored for identifier. Case is preserved.
func (r *LoginAttemptRepository) HashIdentifier(identifier string) string {
	h, _ := blake2b.New256(r.hashKey) // key length checked in the constructor
	h.Write([]byte(identifier))
	return hex.EncodeToString(h.Sum(nil))
}

// RecordFailure inserts a failed attempt and returns the resulting status. Each failure is
// its own row so concurrent inserts are never lost; a transaction-scoped advisory lock on the
// identifier hash serializes recorders so exactly one of them observes the lock transition.
func (r *LoginAttemptRepository) RecordFailure(ctx context.Context, identifier string) (lockout.Status, bool, error) {
	hash := r.HashIdentifier(identifier)

	var (
		status    lockout.Status
		triggered bool
	)
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, hash); err != nil {
			return fmt.Errorf("failed to lock identifier: %w", err)
		}

		// Read the clock once the lock is held so rows are appended in order
		now := r.timestamp()
		if err := r.prune(ctx, tx, hash, now); err != nil {
			return err
		}

		before, err := r.windowStatus(ctx, tx, hash, now)
		if err != nil {
			return err
		}

		attempt := &models.LoginAttempt{
			ID:             uuid.New().String(),
			IdentifierHash: hash,
			AttemptTime:    now,
			ExpiresAt:      now.Add(r.config.LockoutDuration),
		}

		query := `
			INSERT INTO login_attempts (id, identifier_hash, attempt_time, expires_at)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.Exec(ctx, query,
			attempt.ID,
			attempt.IdentifierHash,
			attempt.AttemptTime,
			attempt.ExpiresAt,
		); err != nil {
			return fmt.Errorf("failed to record login attempt: %w", database.MapPostgresError(err))
		}

		status, err = r.windowStatus(ctx, tx, hash, now)
		if err != nil {
			return err
		}
		triggered = status.Locked && !before.Locked
		return nil
	})
	if err != nil {
		return lockout.Status{}, false, err
	}

	return status, triggered, nil
}

// Status returns the lock state for identifier within the trailing window
func (r *LoginAttemptRepository) Status(ctx context.Context, identifier string) (lockout.Status, error) {
	now := r.timestamp()
	hash := r.HashIdentifier(identifier)

	if err := r.prune(ctx, r.db.Pool, hash, now); err != nil {
		return lockout.Status{}, err
	}

	return r.windowStatus(ctx, r.db.Pool, hash, now)
}

// windowStatus counts the failures for hash after the window cutoff
func (r *LoginAttemptRepository) windowStatus(ctx context.Context, q database.Querier, hash string, now time.Time) (lockout.Status, error) {
	query := `
		SELECT COUNT(*), MIN(attempt_time) FROM login_attempts
		WHERE identifier_hash = $1 AND attempt_time > $2
	`

	var (
		count  int
		oldest *time.Time
	)
	err := q.QueryRow(ctx, query, hash, r.cutoff(now)).Scan(&count, &oldest)
	if err != nil {
		return lockout.Status{}, fmt.Errorf("failed to count login attempts: %w", database.MapPostgresError(err))
	}

	status := lockout.Status{AttemptsRemaining: r.config.MaxAttempts - count}
	if count >= r.config.MaxAttempts {
		status.Locked = true
		status.AttemptsRemaining = 0
		if oldest != nil {
			status.MinutesRemaining = minutesUntil(oldest.Add(r.config.LockoutDuration), now)
		}
	}

	return status, nil
}

// Reset deletes every recorded failure for identifier
func (r *LoginAttemptRepository) Reset(ctx context.Context, identifier string) error {
	query := `DELETE FROM login_attempts WHERE identifier_hash = $1`
	if _, err := r.db.Pool.Exec(ctx, query, r.HashIdentifier(identifier)); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", database.MapPostgresError(err))
	}
	return nil
}

// DeleteExpiredAttempts removes rows that have left the window for every identifier
func (r *LoginAttemptRepository) DeleteExpiredAttempts(ctx context.Context) (int64, error) {
	query := `DELETE FROM login_attempts WHERE expires_at <= $1`
	tag, err := r.db.Pool.Exec(ctx, query, r.timestamp())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired login attempts: %w", database.MapPostgresError(err))
	}
	return tag.RowsAffected(), nil
}

// prune drops rows at or before the window cutoff for one identifier
func (r *LoginAttemptRepository) prune(ctx context.Context, q database.Querier, hash string, now time.Time) error {
	query := `DELETE FROM login_attempts WHERE identifier_hash = $1 AND attempt_time <= $2`
	if _, err := q.Exec(ctx, query, hash, r.cutoff(now)); err != nil {
		return fmt.Errorf("failed to prune login attempts: %w", database.MapPostgresError(err))
	}
	return nil
}

func (r *LoginAttemptRepository) cutoff(now time.Time) time.Time {
	return now.Add(-r.config.LockoutDuration)
}

// timestamp returns the current time at the precision Postgres stores
func (r *LoginAttemptRepository) timestamp() time.Time {
	return r.now().UTC().Truncate(time.Microsecond)
}

func minutesUntil(unlockAt, now time.Time) int {
	left := unlockAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Minute)
}
