package common

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryOptions configures backoff behavior for retried operations.
type RetryOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryOptions matches the AI-tier defaults: three attempts with
// exponential backoff from 5s capped at 30s.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

func (o RetryOptions) withDefaults() RetryOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 5 * time.Second
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 30 * time.Second
	}
	return o
}

// Backoff is a small state machine tracking retry attempts and the delay
// before the next one. It holds no timers; callers combine it with a Clock.
type Backoff struct {
	opts    RetryOptions
	attempt int
}

// NewBackoff creates a Backoff with zero attempts consumed.
func NewBackoff(opts RetryOptions) *Backoff {
	return &Backoff{opts: opts.withDefaults()}
}

// Attempt returns the number of attempts consumed so far.
func (b *Backoff) Attempt() int {
	return b.attempt
}

// Next consumes an attempt and returns the delay to wait before the
// following one. The second return is false once attempts are exhausted;
// the delay is then meaningless.
func (b *Backoff) Next() (time.Duration, bool) {
	b.attempt++
	if b.attempt >= b.opts.MaxAttempts {
		return 0, false
	}

	delay := b.opts.BaseDelay << (b.attempt - 1)
	if delay > b.opts.MaxDelay || delay <= 0 {
		delay = b.opts.MaxDelay
	}
	return delay, true
}

// WithRetry executes an operation, retrying with exponential backoff while
// shouldRetry approves the error. The final error is wrapped in
// ErrMaxRetries when attempts run out.
func WithRetry(ctx context.Context, clock Clock, opts RetryOptions, shouldRetry func(error) bool, operation func() error) error {
	if clock == nil {
		clock = NewSystemClock()
	}
	if shouldRetry == nil {
		shouldRetry = IsRetryable
	}

	backoff := NewBackoff(opts)

	for {
		err := operation()
		if err == nil {
			return nil
		}

		if !shouldRetry(err) {
			return err
		}

		delay, more := backoff.Next()
		if !more {
			return fmt.Errorf("%w after %d attempts: %v", ErrMaxRetries, backoff.Attempt(), err)
		}

		slog.Warn("Operation failed, retrying",
			"attempt", backoff.Attempt(),
			"delay", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(delay):
		}
	}
}
