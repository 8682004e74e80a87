package bigquery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/budget-sync/internal/logger"
)

// exponentialBackoff waits 2^attempt seconds: 1s, 2s, 4s...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// withRetry runs fn up to attempts times, sleeping backoff(n) after the n-th
// failure. Context errors are not retried.
func withRetry(ctx context.Context, op string, attempts int, backoff func(int) time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	log := logger.FromContext(ctx)

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", op, err)
		}
		if attempt == attempts-1 {
			break
		}

		wait := backoff(attempt)
		log.Warn().
			Err(err).
			Str("operation", op).
			Int("attempt", attempt+1).
			Dur("backoff", wait).
			Msg("Warehouse write failed, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("%s: giving up after %d attempts: %w", op, attempts, err)
}
