package provider

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterSpendsBurstImmediately(t *testing.T) {
	// A fresh bucket carries its whole budget; a vendor poll cycle of
	// three calls should never sleep.
	limiter := NewRateLimiter(3, time.Minute)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i+1, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Fatalf("burst took %v, expected no sleeping", elapsed)
	}
}

func TestRateLimiterRegrowsCredits(t *testing.T) {
	limiter := NewRateLimiter(1, 5*time.Millisecond)
	ctx := context.Background()

	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The empty bucket must block, then release once one interval passes.
	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		t.Fatalf("expected credit after regrow, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 250*time.Millisecond {
		t.Fatalf("regrow wait took %v, expected about one interval", elapsed)
	}
}

func TestRateLimiterWaitStopsOnContextEnd(t *testing.T) {
	limiter := NewRateLimiter(1, time.Hour)
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error draining bucket: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}
