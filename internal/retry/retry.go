// Package retry runs an operation under a fixed-delay retry policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Policy describes how many times an operation runs and which errors are worth
// another attempt. A nil Retryable retries every error.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	Retryable   func(error) bool
	// OnRetry is called before sleeping ahead of the next attempt.
	OnRetry func(attempt int, err error)
}

// Do calls op until it succeeds, returns a non-retryable error, ctx is done or the
// attempts run out. In the last case the returned error matches both
// ErrAttemptsExhausted and the final error of op.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var (
		calls     int
		lastErr   error
		permanent bool
	)

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(attempts-1)),
		ctx,
	)

	operation := func() error {
		calls++

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if p.Retryable != nil && !p.Retryable(lastErr) {
			permanent = true
			return backoff.Permanent(lastErr)
		}

		return lastErr
	}

	notify := func(err error, _ time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry(calls, err)
		}
	}

	err := backoff.RetryNotify(operation, b, notify)

	switch {
	case err == nil:
		return nil
	case permanent:
		return lastErr
	case ctx.Err() != nil:
		return fmt.Errorf("retry interrupted after %d attempts: %w", calls, errors.Join(ctx.Err(), lastErr))
	default:
		return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, calls, lastErr)
	}
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
