// Package lockout tracks failed authentication attempts per identifier and
// decides when an identifier is temporarily locked out.
package lockout

import (
	"sync"
	"time"
)

const (
	DefaultMaxAttempts     = 5
	DefaultLockoutDuration = 15 * time.Minute
)

// Config holds the lockout policy
type Config struct {
	MaxAttempts     int           // Failures within the window that trigger a lock
	LockoutDuration time.Duration // Trailing window over which failures are counted
}

// DefaultConfig returns the standard policy: 5 failures within 15 minutes
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     DefaultMaxAttempts,
		LockoutDuration: DefaultLockoutDuration,
	}
}

// Clock returns the current instant. Tests substitute a controllable clock.
type Clock func() time.Time

// Tracker is an in-process sliding-window failure counter keyed by identifier.
// Stale timestamps are pruned lazily whenever an identifier is read or written;
// there is no background sweep. Identifiers are used verbatim, without case folding.
type Tracker struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	config   Config
	now      Clock
}

// NewTracker creates a Tracker using the wall clock
func NewTracker(config Config) *Tracker {
	return NewTrackerWithClock(config, time.Now)
}

// NewTrackerWithClock creates a Tracker that reads time from clock
func NewTrackerWithClock(config Config, clock Clock) *Tracker {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultMaxAttempts
	}
	if config.LockoutDuration <= 0 {
		config.LockoutDuration = DefaultLockoutDuration
	}
	if clock == nil {
		clock = time.Now
	}

	return &Tracker{
		attempts: make(map[string][]time.Time),
		config:   config,
		now:      clock,
	}
}

// Config returns the policy the tracker enforces
func (t *Tracker) Config() Config {
	return t.config
}

// RecordFailure appends a failed attempt for identifier and prunes stale entries.
// Callers must only record confirmed bad-credential rejections.
func (t *Tracker) RecordFailure(identifier string) {
	t.RecordFailureStatus(identifier)
}

// RecordFailureStatus records a failure like RecordFailure and returns the resulting
// status. triggered is true only for the failure that moved identifier into the locked
// state; concurrent callers never both observe the same transition.
func (t *Tracker) RecordFailureStatus(identifier string) (status Status, triggered bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	wasLocked := t.pruneLocked(identifier, now) >= t.config.MaxAttempts
	t.attempts[identifier] = append(t.attempts[identifier], now)

	status = t.statusLocked(identifier, now)
	return status, status.Locked && !wasLocked
}

// Status returns the lock state, attempts remaining and minutes remaining from one
// consistent view of identifier's failures
func (t *Tracker) Status(identifier string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.statusLocked(identifier, t.now())
}

// IsLocked reports whether identifier is locked and how many attempts remain
func (t *Tracker) IsLocked(identifier string) (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	count := t.pruneLocked(identifier, t.now())
	return count >= t.config.MaxAttempts, remaining(t.config.MaxAttempts, count)
}

// Reset forgets every recorded failure for identifier. Safe to call for unknown identifiers.
func (t *Tracker) Reset(identifier string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.attempts, identifier)
}

// MinutesRemaining returns the whole minutes until identifier unlocks, truncated toward zero.
// It returns 0 when the identifier has fewer than MaxAttempts recent failures.
func (t *Tracker) MinutesRemaining(identifier string) int {
	return t.Status(identifier).MinutesRemaining
}

// statusLocked prunes identifier and derives its status at now. t.mu must be held.
func (t *Tracker) statusLocked(identifier string, now time.Time) Status {
	count := t.pruneLocked(identifier, now)
	status := Status{
		Locked:            count >= t.config.MaxAttempts,
		AttemptsRemaining: remaining(t.config.MaxAttempts, count),
	}
	if !status.Locked {
		return status
	}

	oldest := t.attempts[identifier][0]
	for _, ts := range t.attempts[identifier][1:] {
		if ts.Before(oldest) {
			oldest = ts
		}
	}
	status.MinutesRemaining = minutesUntil(oldest.Add(t.config.LockoutDuration), now)
	return status
}

// pruneLocked drops timestamps at or before the window cutoff and returns what remains.
// Empty sequences are removed so that they are indistinguishable from unknown identifiers.
func (t *Tracker) pruneLocked(identifier string, now time.Time) int {
	timestamps, ok := t.attempts[identifier]
	if !ok {
		return 0
	}

	cutoff := now.Add(-t.config.LockoutDuration)
	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) == 0 {
		delete(t.attempts, identifier)
		return 0
	}

	t.attempts[identifier] = kept
	return len(kept)
}

func remaining(maxAttempts, count int) int {
	if count >= maxAttempts {
		return 0
	}
	return maxAttempts - count
}

func minutesUntil(unlockAt, now time.Time) int {
	left := unlockAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Minute)
}
