// Package retry provides a generic bounded-attempt exponential-backoff helper,
// generalized from the native host's SolanaRetryManager transaction-retry loop
// into a chain-agnostic primitive used by the broker publisher.
package retry

import (
	"context"
	"math"
	"time"
)

// Do invokes op up to attempts times. Attempt 1 runs immediately; the caller
// sleeps base*factor^(k-1) between attempt k and attempt k+1, so the delay
// before attempt 2 equals base. It returns the first successful result, or the
// last observed error once the attempt budget is exhausted. attempts <= 0 is
// treated as 1 (invoke once, no retry).
func Do[T any](ctx context.Context, attempts int, base time.Duration, factor float64, op func(ctx context.Context) (T, error)) (T, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var (
		result T
		lastErr error
	)

	for k := 1; k <= attempts; k++ {
		if k > 1 {
			delay := delayBefore(k, base, factor)
			select {
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, lastErr = op(ctx)
		if lastErr == nil {
			return result, nil
		}
	}

	return result, lastErr
}

// delayBefore returns the sleep duration before attempt k (k >= 2), i.e.
// base*factor^(k-2), rounded to whole milliseconds.
func delayBefore(k int, base time.Duration, factor float64) time.Duration {
	return roundMillis(base, factor, k-2)
}

// BackoffSequence returns the precomputed delay sequence of length n for the
// given base delay and multiplicative factor: element i equals
// round(base*factor^i) milliseconds, so seq[0] == base.
func BackoffSequence(n int, base time.Duration, factor float64) []time.Duration {
	if n <= 0 {
		return nil
	}
	seq := make([]time.Duration, n)
	for i := 0; i < n; i++ {
		seq[i] = roundMillis(base, factor, i)
	}
	return seq
}

func roundMillis(base time.Duration, factor float64, exponent int) time.Duration {
	ms := float64(base.Milliseconds()) * math.Pow(factor, float64(exponent))
	return time.Duration(math.Round(ms)) * time.Millisecond
}
