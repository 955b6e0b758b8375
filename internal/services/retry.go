package services

import (
	"context"
	"errors"
	"time"
)

const (
	defaultBackoffBase = 1 * time.Second
	defaultBackoffMax  = 30 * time.Second
)

// Sleeper performs retry waits. Tests substitute a recording implementation so
// retries run without real delays.
type Sleeper func(time.Duration)

// BackoffDelay returns the wait before the next retry after the given 1-based
// attempt: 2^attempt seconds, capped.
func BackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := 2 * defaultBackoffBase
	for i := 1; i < attempt; i++ {
		if delay > defaultBackoffMax/2 {
			return defaultBackoffMax
		}
		delay *= 2
	}
	if delay > defaultBackoffMax {
		return defaultBackoffMax
	}
	return delay
}

// SleepWithContext waits for the given delay, honoring context cancellation.
// A non-nil sleeper replaces the real wait.
func SleepWithContext(ctx context.Context, delay time.Duration, sleeper Sleeper) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("retry: nil context")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if sleeper != nil {
		sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
