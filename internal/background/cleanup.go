package background

import (
	"context"
	"log/slog"
	"time"
)

// ExpiredAttemptDeleter removes failed attempts that no longer affect any lock
type ExpiredAttemptDeleter interface {
	DeleteExpiredAttempts(ctx context.Context) (int64, error)
}

// CleanupManager periodically removes expired login attempts from the shared store.
// Reads prune lazily per identifier; this sweep reclaims rows for identifiers never read again.
type CleanupManager struct {
	attempts ExpiredAttemptDeleter
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	attempts ExpiredAttemptDeleter,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		attempts: attempts,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task. It blocks until Stop or ctx is done.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := cm.attempts.DeleteExpiredAttempts(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup expired login attempts", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("expired login attempt cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
