package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffSchedule(t *testing.T) {
	b := NewBackoff(RetryOptions{MaxAttempts: 4, BaseDelay: 5 * time.Second, MaxDelay: 30 * time.Second})

	// delay = baseDelay * 2^(attempt-1), capped at maxDelay.
	d1, more := b.Next()
	require.True(t, more)
	assert.Equal(t, 5*time.Second, d1)

	d2, more := b.Next()
	require.True(t, more)
	assert.Equal(t, 10*time.Second, d2)

	d3, more := b.Next()
	require.True(t, more)
	assert.Equal(t, 20*time.Second, d3)

	_, more = b.Next()
	assert.False(t, more, "attempts exhausted")
	assert.Equal(t, 4, b.Attempt())
}

func TestBackoffCapsAtMaxDelay(t *testing.T) {
	b := NewBackoff(RetryOptions{MaxAttempts: 6, BaseDelay: 5 * time.Second, MaxDelay: 30 * time.Second})

	var last time.Duration
	for {
		d, more := b.Next()
		if !more {
			break
		}
		last = d
		assert.LessOrEqual(t, d, 30*time.Second)
	}
	assert.Equal(t, 30*time.Second, last)
}

func TestWithRetrySucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), nil,
		RetryOptions{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		IsRetryable,
		func() error {
			calls++
			if calls < 3 {
				return &RetryableError{Err: errors.New("flaky"), Retryable: true}
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	err := WithRetry(context.Background(), nil,
		RetryOptions{MaxAttempts: 3, BaseDelay: time.Millisecond},
		func(err error) bool { return errors.Is(err, ErrRateLimit) },
		func() error {
			calls++
			return permanent
		})

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls, "non-retryable errors are not retried")
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), nil,
		RetryOptions{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		func(error) bool { return true },
		func() error {
			calls++
			return ErrRateLimit
		})

	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 3, calls)
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, nil,
		RetryOptions{MaxAttempts: 3, BaseDelay: time.Hour},
		func(error) bool { return true },
		func() error { return ErrRateLimit })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	ch := clock.After(10 * time.Second)
	select {
	case <-ch:
		t.Fatal("timer fired before advance")
	default:
	}

	clock.Advance(9 * time.Second)
	select {
	case <-ch:
		t.Fatal("timer fired early")
	default:
	}

	clock.Advance(time.Second)
	select {
	case fired := <-ch:
		assert.Equal(t, start.Add(10*time.Second), fired)
	default:
		t.Fatal("timer did not fire at its deadline")
	}

	assert.Equal(t, start.Add(10*time.Second), clock.Now())
}
