package autorebase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cooltabs/autorebase/internal/goorderr"
)

func TestAwaitSettledReturnsFirstSettledValue(t *testing.T) {
	var calls int
	fetch := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	var retries []int
	onRetry := func(retry int, _ time.Duration, _ error) {
		retries = append(retries, retry)
	}

	v, err := AwaitSettled(context.Background(), fetch, func(v int) bool { return v == 3 }, testBackoffPolicy(), onRetry)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, []int{1, 2}, retries)
}

func TestAwaitSettledRetriesRetryableErrors(t *testing.T) {
	var calls int
	fetch := func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", goorderr.NewRetryableAnytimeError(errors.New("bad gateway"))
		}

		return "done", nil
	}

	v, err := AwaitSettled(context.Background(), fetch, func(string) bool { return true }, testBackoffPolicy(), nil)
	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.Equal(t, 3, calls)
}

func TestAwaitSettledReturnsNonRetryableErrorsImmediately(t *testing.T) {
	fetchErr := errors.New("not found")

	var calls int
	fetch := func(context.Context) (int, error) {
		calls++
		return 0, fetchErr
	}

	_, err := AwaitSettled(context.Background(), fetch, func(int) bool { return true }, testBackoffPolicy(), nil)
	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, 1, calls)
}

func TestAwaitSettledFailsWhenRetriesAreExhausted(t *testing.T) {
	var calls int
	fetch := func(context.Context) (int, error) {
		calls++
		return 0, goorderr.NewRetryableAnytimeError(errors.New("unavailable"))
	}

	policy := testBackoffPolicy()
	policy.MaxRetries = 3

	_, err := AwaitSettled(context.Background(), fetch, func(int) bool { return true }, policy, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotSettled)
	assert.True(t, goorderr.IsRetryable(err))
	assert.Equal(t, 4, calls)
}

func TestAwaitSettledIsCancelable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fetch := func(context.Context) (int, error) {
		cancel()
		return 0, nil
	}

	policy := testBackoffPolicy()
	policy.InitialInterval = time.Hour
	policy.MaxInterval = time.Hour

	_, err := AwaitSettled(ctx, fetch, func(int) bool { return false }, policy, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultBackoffPolicyIntervals(t *testing.T) {
	policy := DefaultBackoffPolicy()
	bo := policy.newBackOff()

	assert.Equal(t, 500*time.Millisecond, bo.NextBackOff())
	assert.Equal(t, time.Second, bo.NextBackOff())
	assert.Equal(t, 2*time.Second, bo.NextBackOff())
}
