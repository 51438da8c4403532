// Package breaker implements a circuit breaker that gates calls to an
// external capability, stopping traffic after repeated failures until the
// capability has had time to recover.
package breaker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/finsift/finsift/internal/common"
)

// State is the circuit breaker state.
type State string

const (
	// StateClosed allows all calls.
	StateClosed State = "CLOSED"
	// StateOpen rejects all calls until the open timeout elapses.
	StateOpen State = "OPEN"
	// StateHalfOpen allows probe calls after the open timeout.
	StateHalfOpen State = "HALF_OPEN"
)

// Config holds circuit breaker thresholds.
type Config struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

// DefaultConfig returns the default breaker thresholds.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
	}
}

// Breaker is a single-capability circuit breaker. One instance protects one
// external capability per process; construct it once and share by reference.
type Breaker struct {
	clock                common.Clock
	openedAt             time.Time
	name                 string
	state                State
	cfg                  Config
	consecutiveFailures  int
	consecutiveSuccesses int
	mu                   sync.Mutex
}

// New creates a circuit breaker for the named capability.
func New(name string, cfg Config, clock common.Clock) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 60 * time.Second
	}
	if clock == nil {
		clock = common.NewSystemClock()
	}

	return &Breaker{
		name:  name,
		cfg:   cfg,
		clock: clock,
		state: StateClosed,
	}
}

// CanCall reports whether a call may be attempted. It must be consulted
// before every call so rejected calls never count as failures. The
// OPEN -> HALF_OPEN transition is evaluated lazily here.
func (b *Breaker) CanCall() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.clock.Now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
			b.transition(StateHalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess reports a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures = 0

	if b.state == StateHalfOpen {
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.cfg.SuccessThreshold {
			b.transition(StateClosed)
		}
	}
}

// RecordFailure reports a failed call. In HALF_OPEN any failure reopens the
// circuit and resets the timer.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveSuccesses = 0

	switch b.state {
	case StateHalfOpen:
		b.open()
	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.open()
		}
	}
}

// State returns the current state, evaluating the lazy OPEN timeout.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.clock.Now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
		return StateHalfOpen
	}
	return b.state
}

func (b *Breaker) open() {
	b.openedAt = b.clock.Now()
	b.transition(StateOpen)
}

func (b *Breaker) transition(next State) {
	if b.state == next {
		return
	}
	slog.Info("circuit breaker state change",
		"capability", b.name,
		"from", b.state,
		"to", next,
		"consecutive_failures", b.consecutiveFailures)
	b.state = next
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
}
