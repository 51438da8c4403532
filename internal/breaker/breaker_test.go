package breaker

import (
	"testing"
	"time"

	"github.com/finsift/finsift/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreaker(t *testing.T) (*Breaker, *common.FakeClock) {
	t.Helper()
	clock := common.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	b := New("ai", Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
	}, clock)
	return b, clock
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, _ := testBreaker(t)

	for i := 0; i < 4; i++ {
		b.RecordFailure()
		assert.True(t, b.CanCall(), "breaker should stay closed below threshold")
	}

	b.RecordFailure()
	assert.False(t, b.CanCall())
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b, clock := testBreaker(t)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	require.False(t, b.CanCall())

	// Still open just before the timeout.
	clock.Advance(59 * time.Second)
	assert.False(t, b.CanCall())

	clock.Advance(time.Second)
	assert.True(t, b.CanCall())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreakerClosesAfterSuccessThreshold(t *testing.T) {
	b, clock := testBreaker(t)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	clock.Advance(60 * time.Second)
	require.True(t, b.CanCall())

	b.RecordSuccess()
	assert.Equal(t, StateHalfOpen, b.State(), "one success should not close the breaker")

	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.CanCall())
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b, clock := testBreaker(t)

	for i := 0; i < 5; i++ {
		b.RecordFailure()
	}
	clock.Advance(60 * time.Second)
	require.True(t, b.CanCall())
	require.Equal(t, StateHalfOpen, b.State())

	// A single failure while half-open reopens with a fresh timer.
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.CanCall())

	clock.Advance(59 * time.Second)
	assert.False(t, b.CanCall(), "timer should have been reset on reopen")

	clock.Advance(time.Second)
	assert.True(t, b.CanCall())
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	b, _ := testBreaker(t)

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	b.RecordSuccess()

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	assert.True(t, b.CanCall(), "streak should restart after a success")

	b.RecordFailure()
	assert.False(t, b.CanCall())
}
