// Package retry implements a single retryable-operation wrapper used by all
// network-bound call sites. Policy lives here so individual providers never
// hand-roll their own loops.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Policy holds the tuning parameters for a retryable operation. Zero values
// are replaced with the defaults documented below by Do.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	// A value of 3 means the operation runs at most 3 times. Default: 3.
	MaxAttempts int

	// InitialBackoff is the wait duration before the first retry attempt.
	// Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff so it never exceeds this value.
	// Default: 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth multiplier applied to
	// InitialBackoff on successive retries. Default: 2.0.
	BackoffFactor float64

	// JitterFraction adds random noise to the computed backoff in the range
	// [0, JitterFraction * backoff] to avoid thundering-herd problems.
	// Default: 0.1.
	JitterFraction float64

	// IsRetryable returns true when an error should trigger another attempt.
	// Default: never retry.
	IsRetryable func(error) bool
}

// ExhaustedError is returned by Do when every attempt failed with a retryable
// error. It wraps the error from the final attempt.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

func applyDefaults(p *Policy) {
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff == 0 {
		p.InitialBackoff = time.Second
	}
	if p.MaxBackoff == 0 {
		p.MaxBackoff = 30 * time.Second
	}
	if p.BackoffFactor == 0 {
		p.BackoffFactor = 2.0
	}
	if p.JitterFraction == 0 {
		p.JitterFraction = 0.1
	}
	if p.IsRetryable == nil {
		p.IsRetryable = func(error) bool { return false }
	}
}

// backoff returns the wait duration for the given retry (0-indexed).
// backoff = min(InitialBackoff * BackoffFactor^attempt, MaxBackoff) + jitter
func backoff(p Policy, attempt int) time.Duration {
	base := float64(p.InitialBackoff) * math.Pow(p.BackoffFactor, float64(attempt))
	if base > float64(p.MaxBackoff) {
		base = float64(p.MaxBackoff)
	}
	jitter := base * p.JitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter is intentional
	return time.Duration(base + jitter)
}

// Do runs op until it succeeds, fails with a non-retryable error, the policy
// is exhausted or ctx is cancelled. Context cancellation is respected between
// attempts. On exhaustion the returned error is an *ExhaustedError wrapping
// the final attempt's error.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, int, error) {
	applyDefaults(&p)

	var zero T
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, attempt, ctx.Err()
			case <-time.After(backoff(p, attempt-1)):
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, attempt + 1, nil
		}
		lastErr = err

		if !p.IsRetryable(err) {
			return zero, attempt + 1, err
		}
	}

	return zero, p.MaxAttempts, &ExhaustedError{Attempts: p.MaxAttempts, Last: lastErr}
}
