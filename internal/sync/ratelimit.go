package sync

import (
	"context"
	"sync"
	"time"
)

// Limiter spaces outbound TMDB requests evenly rather than allowing bursts:
// each acquisition is scheduled one interval after the previous one, so N
// requests per second arrive 1/N apart no matter how many goroutines are
// waiting.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func NewLimiter(requestsPerSecond int) *Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Limiter{
		interval: time.Second / time.Duration(requestsPerSecond),
	}
}

// Acquire blocks until the caller's request slot arrives or the context is
// cancelled. The slot is reserved before sleeping, so concurrent callers
// queue fairly instead of stampeding when a slot opens.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	next := l.last.Add(l.interval)
	if next.Before(now) {
		next = now
	}
	l.last = next
	l.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
