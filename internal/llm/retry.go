package llm

import (
	"context"
	"time"
)

// Retrier runs an operation through a bounded retry loop with
// escalating backoff. It carries no per-call state; one Retrier is
// shared across all narration calls.
type Retrier struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a retrier; attempts < 1 means a single try.
func NewRetrier(maxAttempts int, initialBackoff time.Duration) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if initialBackoff <= 0 {
		initialBackoff = time.Second
	}
	return &Retrier{
		MaxAttempts:    maxAttempts,
		InitialBackoff: initialBackoff,
		Multiplier:     2,
		sleep:          sleepCtx,
	}
}

// Do runs fn until it succeeds, attempts run out, or the context is
// cancelled. The last error is returned; cancellation during backoff
// returns the context error.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := r.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == r.MaxAttempts {
			break
		}
		if err := r.sleep(ctx, backoff); err != nil {
			return err
		}
		backoff = time.Duration(float64(backoff) * r.Multiplier)
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
