package providers

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := NewRateLimiter(60)
	ctx := context.Background()

	// A fresh limiter starts with a full bucket.
	for i := 0; i < 10; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait() error on request %d: %v", i, err)
		}
	}

	status := rl.Status()
	if status.TotalConsumed != 10 {
		t.Errorf("TotalConsumed = %d, want 10", status.TotalConsumed)
	}
	if status.TokensLimit != 60 {
		t.Errorf("TokensLimit = %d, want 60", status.TokensLimit)
	}
}

func TestRateLimiterBlocksWhenDrained(t *testing.T) {
	rl := NewRateLimiter(60)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait() error: %v", err)
		}
	}

	// Bucket is empty; the next token arrives after ~1s at 60 rpm, so a
	// short deadline must expire first.
	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := rl.Wait(shortCtx); err == nil {
		t.Error("Wait() should time out on a drained bucket")
	}
}

func TestRateLimiterRecord429(t *testing.T) {
	rl := NewRateLimiter(60)
	rl.Record429(2 * time.Second)

	status := rl.Status()
	if status.Last429Time.IsZero() {
		t.Error("Last429Time should be recorded")
	}
	if status.TokensAvailable > 1 {
		t.Errorf("TokensAvailable = %d, bucket should be drained after a 429", status.TokensAvailable)
	}
}

func TestRateLimiterDefault(t *testing.T) {
	rl := NewRateLimiter(0)
	if got := rl.Status().TokensLimit; got != 60 {
		t.Errorf("TokensLimit = %d, want default 60", got)
	}
}
