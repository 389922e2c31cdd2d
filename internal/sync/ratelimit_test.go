package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_SpacesAcquisitions(t *testing.T) {
	limiter := NewLimiter(100) // 10ms apart
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Acquire(ctx))
	}
	elapsed := time.Since(start)

	// First slot is immediate, the remaining four are spaced 10ms apart.
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
}

func TestLimiter_ConcurrentCallersQueue(t *testing.T) {
	limiter := NewLimiter(100)
	ctx := context.Background()

	done := make(chan time.Time, 4)
	for i := 0; i < 4; i++ {
		go func() {
			_ = limiter.Acquire(ctx)
			done <- time.Now()
		}()
	}

	var times []time.Time
	for i := 0; i < 4; i++ {
		times = append(times, <-done)
	}

	var min, max time.Time
	for _, ts := range times {
		if min.IsZero() || ts.Before(min) {
			min = ts
		}
		if ts.After(max) {
			max = ts
		}
	}
	// Four concurrent callers cannot all fire at once.
	assert.GreaterOrEqual(t, max.Sub(min), 20*time.Millisecond)
}

func TestLimiter_AcquireHonorsContext(t *testing.T) {
	limiter := NewLimiter(1) // 1s apart

	ctx := context.Background()
	require.NoError(t, limiter.Acquire(ctx))

	cancelCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()

	err := limiter.Acquire(cancelCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLimiter_DefaultsInvalidRate(t *testing.T) {
	limiter := NewLimiter(0)
	assert.Equal(t, time.Second, limiter.interval)
}
