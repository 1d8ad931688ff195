package autorebase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/cooltabs/autorebase/internal/goorderr"
)

// ErrNotSettled is returned by AwaitSettled when the value did not settle
// before the retry budget was exhausted.
var ErrNotSettled = errors.New("value did not settle")

// BackoffPolicy configures the intervals between fetches in AwaitSettled.
type BackoffPolicy struct {
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
	// MaxRetries is the maximum number of fetches after the first one.
	MaxRetries int
}

// DefaultBackoffPolicy returns the policy used to wait for GitHub to compute
// the mergeable state of a pull request.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		InitialInterval:     500 * time.Millisecond,
		MaxInterval:         30 * time.Second,
		Multiplier:          2,
		RandomizationFactor: 0,
		MaxRetries:          10,
	}
}

func (p *BackoffPolicy) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.MaxInterval = p.MaxInterval
	bo.Multiplier = p.Multiplier
	bo.RandomizationFactor = p.RandomizationFactor
	bo.MaxElapsedTime = 0
	bo.Reset()

	return bo
}

// AwaitSettled calls fetch until isSettled returns true for its result.
// Between fetches it waits for the interval defined by policy.
//
// Errors returned by fetch that wrap a goorderr.RetryableError are retried,
// all other errors are returned immediately.
// When policy.MaxRetries retries were done and the value did not settle, an
// error wrapping ErrNotSettled is returned.
// onRetry is called before each retry, it can be nil.
func AwaitSettled[T any](
	ctx context.Context,
	fetch func(context.Context) (T, error),
	isSettled func(T) bool,
	policy BackoffPolicy,
	onRetry func(retry int, delay time.Duration, lastErr error),
) (T, error) {
	var zero T

	bo := policy.newBackOff()

	for retry := 0; ; retry++ {
		val, err := fetch(ctx)
		if err == nil && isSettled(val) {
			return val, nil
		}

		if err != nil && !goorderr.IsRetryable(err) {
			return zero, err
		}

		delay := bo.NextBackOff()
		if retry >= policy.MaxRetries || delay == backoff.Stop {
			if err != nil {
				return zero, fmt.Errorf("%w after %d attempts, last error: %w", ErrNotSettled, retry+1, err)
			}

			return zero, fmt.Errorf("%w after %d attempts", ErrNotSettled, retry+1)
		}

		if onRetry != nil {
			onRetry(retry+1, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}
