package auth

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// TimingConfig controls the padding applied to failed sign-ins
type TimingConfig struct {
	BaseDelay      time.Duration // Minimum total duration of a failed attempt
	RandomDelay    time.Duration // Upper bound of extra random jitter
	DelayOnSuccess bool
}

// TimingDelay pads authentication responses so that the time taken does not
// reveal whether the provider rejected an unknown account or a wrong password
type TimingDelay struct {
	config TimingConfig
}

// NewTimingDelay creates a new TimingDelay
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{config: config}
}

// target returns base delay plus crypto-random jitter
func (td *TimingDelay) target() time.Duration {
	delay := td.config.BaseDelay
	if td.config.RandomDelay > 0 {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(td.config.RandomDelay)))
		if err == nil {
			delay += time.Duration(n.Int64())
		}
	}
	return delay
}

// WaitFrom sleeps until at least the target delay has passed since start.
// It returns early if ctx is cancelled.
func (td *TimingDelay) WaitFrom(ctx context.Context, start time.Time, success bool) {
	if success && !td.config.DelayOnSuccess {
		return
	}

	remaining := td.target() - time.Since(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
