package lockout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	pkglogger "github.com/BradenHooton/irdebg/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingNotifier captures lock notifications
type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (n *recordingNotifier) NotifyLocked(ctx context.Context, identifier string, status Status) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, identifier)
	return n.err
}

// failingStore returns err from every operation
type failingStore struct {
	err error
}

func (f *failingStore) RecordFailure(ctx context.Context, identifier string) (Status, bool, error) {
	return Status{}, false, f.err
}
func (f *failingStore) Status(ctx context.Context, identifier string) (Status, error) {
	return Status{}, f.err
}
func (f *failingStore) Reset(ctx context.Context, identifier string) error { return f.err }

func newTestService(store Store) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, logger, pkglogger.NewAuditLogger(logger))
}

func TestMemoryStore_Status(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(NewTrackerWithClock(DefaultConfig(), clock.Now))
	ctx := context.Background()

	status, err := store.Status(ctx, "x@example.com")
	require.NoError(t, err)
	assert.Equal(t, Status{Locked: false, AttemptsRemaining: 5}, status)

	for i := 0; i < 5; i++ {
		_, triggered, err := store.RecordFailure(ctx, "x@example.com")
		require.NoError(t, err)
		assert.Equal(t, i == 4, triggered)
	}

	status, err = store.Status(ctx, "x@example.com")
	require.NoError(t, err)
	assert.Equal(t, Status{Locked: true, AttemptsRemaining: 0, MinutesRemaining: 15}, status)

	require.NoError(t, store.Reset(ctx, "x@example.com"))
	status, err = store.Status(ctx, "x@example.com")
	require.NoError(t, err)
	assert.False(t, status.Locked)
}

func TestService_RecordFailure_NotifiesOnceOnTransition(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(NewTrackerWithClock(Config{MaxAttempts: 3, LockoutDuration: 10 * time.Minute}, clock.Now))
	notifier := &recordingNotifier{}
	service := newTestService(store)
	service.SetNotifier(notifier)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		status, err := service.RecordFailure(ctx, "x@example.com")
		require.NoError(t, err)
		assert.False(t, status.Locked)
	}
	assert.Empty(t, notifier.calls)

	status, err := service.RecordFailure(ctx, "x@example.com")
	require.NoError(t, err)
	assert.True(t, status.Locked)
	assert.Equal(t, 10, status.MinutesRemaining)
	assert.Equal(t, []string{"x@example.com"}, notifier.calls)

	// further failures while already locked do not notify again
	_, err = service.RecordFailure(ctx, "x@example.com")
	require.NoError(t, err)
	assert.Len(t, notifier.calls, 1)
}

func TestService_RecordFailure_ConcurrentFailuresNotifyOnce(t *testing.T) {
	store := NewMemoryStore(NewTracker(Config{MaxAttempts: 3, LockoutDuration: 10 * time.Minute}))
	notifier := &recordingNotifier{}
	service := newTestService(store)
	service.SetNotifier(notifier)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.RecordFailure(context.Background(), "x@example.com")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, notifier.calls, 1)
}

func TestService_RecordFailure_NotifierErrorIsNotFatal(t *testing.T) {
	store := NewMemoryStore(NewTracker(Config{MaxAttempts: 1, LockoutDuration: time.Minute}))
	service := newTestService(store)
	service.SetNotifier(&recordingNotifier{err: errors.New("smtp down")})

	status, err := service.RecordFailure(context.Background(), "x@example.com")

	require.NoError(t, err)
	assert.True(t, status.Locked)
}

func TestService_Check(t *testing.T) {
	store := NewMemoryStore(NewTracker(Config{MaxAttempts: 1, LockoutDuration: time.Minute}))
	service := newTestService(store)
	ctx := context.Background()

	status, err := service.Check(ctx, "x@example.com")
	require.NoError(t, err)
	assert.False(t, status.Locked)

	_, err = service.RecordFailure(ctx, "x@example.com")
	require.NoError(t, err)

	status, err = service.Check(ctx, "x@example.com")
	require.NoError(t, err)
	assert.True(t, status.Locked)
}

func TestService_Reset(t *testing.T) {
	store := NewMemoryStore(NewTracker(Config{MaxAttempts: 1, LockoutDuration: time.Minute}))
	service := newTestService(store)
	ctx := context.Background()

	_, err := service.RecordFailure(ctx, "x@example.com")
	require.NoError(t, err)

	require.NoError(t, service.Reset(ctx, "x@example.com", ResetReasonAdmin, "admin-1"))

	status, err := service.Status(ctx, "x@example.com")
	require.NoError(t, err)
	assert.False(t, status.Locked)
	assert.Equal(t, 1, status.AttemptsRemaining)
}

func TestService_StoreErrorsAreWrapped(t *testing.T) {
	storeErr := errors.New("connection refused")
	service := newTestService(&failingStore{err: storeErr})
	ctx := context.Background()

	_, err := service.Status(ctx, "x@example.com")
	assert.ErrorIs(t, err, storeErr)

	_, err = service.RecordFailure(ctx, "x@example.com")
	assert.ErrorIs(t, err, storeErr)

	err = service.Reset(ctx, "x@example.com", ResetReasonAdmin, "")
	assert.ErrorIs(t, err, storeErr)
}
