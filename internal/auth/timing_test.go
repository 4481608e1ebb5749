package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/irdebg/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_WaitFrom_OnFailure(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   50 * time.Millisecond,
		RandomDelay: 20 * time.Millisecond,
	})
	start := time.Now()

	timing.WaitFrom(context.Background(), start, false)

	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestTimingDelay_WaitFrom_OnSuccess_NoDelay(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelay: 200 * time.Millisecond})
	start := time.Now()

	timing.WaitFrom(context.Background(), start, true)

	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestTimingDelay_WaitFrom_OnSuccess_WithDelay(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:      50 * time.Millisecond,
		DelayOnSuccess: true,
	})
	start := time.Now()

	timing.WaitFrom(context.Background(), start, true)

	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestTimingDelay_WaitFrom_AlreadyElapsed(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelay: 50 * time.Millisecond})
	start := time.Now().Add(-time.Second)

	before := time.Now()
	timing.WaitFrom(context.Background(), start, false)

	assert.Less(t, time.Since(before), 20*time.Millisecond)
}

func TestTimingDelay_WaitFrom_ContextCancelled(t *testing.T) {
	timing := auth.NewTimingDelay(auth.TimingConfig{BaseDelay: 5 * time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	timing.WaitFrom(ctx, start, false)

	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
