package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter meters outbound vendor calls with a credit bucket: capacity
// credits are available up front and one credit regrows per interval. The
// free Twelve Data tier budgets 8 credits per minute, so the provider runs
// one bucket shared by all series and price fetches.
type RateLimiter struct {
	mu       sync.Mutex
	credits  int
	capacity int
	interval time.Duration
	last     time.Time
}

func NewRateLimiter(capacity int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		credits:  capacity,
		capacity: capacity,
		interval: interval,
		last:     time.Now(),
	}
}

// Wait takes one credit, sleeping until a credit regrows when the bucket is
// empty. Returns early with ctx.Err() if the context ends first.
func (l *RateLimiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		now := time.Now()
		l.regrow(now)
		if l.credits > 0 {
			l.credits--
			l.mu.Unlock()
			return nil
		}
		sleep := l.interval - now.Sub(l.last)
		l.mu.Unlock()

		if sleep <= 0 {
			sleep = time.Millisecond
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// regrow credits one per full interval elapsed since the last regrow, capped
// at capacity. Caller holds the lock.
func (l *RateLimiter) regrow(now time.Time) {
	grown := int(now.Sub(l.last) / l.interval)
	if grown <= 0 {
		return
	}
	l.credits += grown
	if l.credits > l.capacity {
		l.credits = l.capacity
	}
	l.last = l.last.Add(time.Duration(grown) * l.interval)
}
