package lockout

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	pkglogger "github.com/BradenHooton/irdebg/pkg/logger"
)

// Notifier is told when an identifier transitions into the locked state.
// It is called once per transition, from the request that caused it.
type Notifier interface {
	NotifyLocked(ctx context.Context, identifier string, status Status) error
}

// Reset reasons recorded in metrics and audit logs
const (
	ResetReasonLoginSuccess = "login_success"
	ResetReasonAdmin        = "admin"
)

// Service wraps a Store with logging, metrics and lock notifications
type Service struct {
	store       Store
	notifier    Notifier
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewService creates a new lockout Service
func NewService(store Store, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *Service {
	return &Service{
		store:       store,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// SetNotifier enables lock notifications
func (s *Service) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// Status returns the current lock state without side effects beyond pruning
func (s *Service) Status(ctx context.Context, identifier string) (Status, error) {
	status, err := s.store.Status(ctx, identifier)
	if err != nil {
		storeErrors.WithLabelValues("status").Inc()
		return Status{}, fmt.Errorf("failed to read lockout status: %w", err)
	}
	return status, nil
}

// Check returns the lock state for an identifier about to authenticate and
// records a rejection when it is locked
func (s *Service) Check(ctx context.Context, identifier string) (Status, error) {
	status, err := s.Status(ctx, identifier)
	if err != nil {
		return Status{}, err
	}

	if status.Locked {
		lockedRejections.Inc()
		s.logger.Warn("authentication blocked by lockout",
			slog.String("identifier", pkglogger.SanitizedIdentifier(identifier)),
			slog.Int("minutes_remaining", status.MinutesRemaining))
	}

	return status, nil
}

// RecordFailure records a confirmed bad-credential rejection and returns the resulting state.
// The notifier is invoked only for the failure that moved the identifier into the locked state.
func (s *Service) RecordFailure(ctx context.Context, identifier string) (Status, error) {
	status, triggered, err := s.store.RecordFailure(ctx, identifier)
	if err != nil {
		storeErrors.WithLabelValues("record_failure").Inc()
		return Status{}, fmt.Errorf("failed to record failed attempt: %w", err)
	}
	failuresRecorded.Inc()

	s.logger.Warn("failed attempt recorded",
		slog.String("identifier", pkglogger.SanitizedIdentifier(identifier)),
		slog.Int("attempts_remaining", status.AttemptsRemaining))

	if triggered {
		s.onLocked(ctx, identifier, status)
	}

	return status, nil
}

// Reset clears all failures for identifier
func (s *Service) Reset(ctx context.Context, identifier, reason, actorID string) error {
	if err := s.store.Reset(ctx, identifier); err != nil {
		storeErrors.WithLabelValues("reset").Inc()
		return fmt.Errorf("failed to reset lockout: %w", err)
	}

	resets.WithLabelValues(reason).Inc()

	if reason != ResetReasonLoginSuccess {
		s.auditLogger.LogLockoutAction("lockout_reset", identifier, actorID, map[string]string{
			"reason": reason,
		})
	}

	return nil
}

func (s *Service) onLocked(ctx context.Context, identifier string, status Status) {
	locksTriggered.Inc()

	s.auditLogger.LogLockoutAction("account_locked", identifier, "", map[string]string{
		"minutes_remaining": strconv.Itoa(status.MinutesRemaining),
	})

	if s.notifier == nil {
		return
	}

	if err := s.notifier.NotifyLocked(ctx, identifier, status); err != nil {
		// Best-effort: the lock is already in effect
		s.logger.Error("failed to send lockout notification",
			slog.String("identifier", pkglogger.SanitizedIdentifier(identifier)),
			slog.Any("error", err))
	}
}
