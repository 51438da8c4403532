package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/finsift/finsift/internal/common"
)

// pacer enforces a minimum delay between consecutive AI calls, tracking the
// timestamp of the last call process-wide.
type pacer struct {
	clock       common.Clock
	next        time.Time
	minInterval time.Duration
	mu          sync.Mutex
}

// newPacer creates a pacer with the given minimum interval between calls.
func newPacer(minInterval time.Duration, clock common.Clock) *pacer {
	if minInterval <= 0 {
		minInterval = 2 * time.Second
	}
	if clock == nil {
		clock = common.NewSystemClock()
	}
	return &pacer{minInterval: minInterval, clock: clock}
}

// wait blocks until the caller may proceed. Slots are claimed under the lock
// so concurrent callers queue behind each other rather than racing.
func (p *pacer) wait(ctx context.Context) error {
	p.mu.Lock()
	now := p.clock.Now()
	delay := p.next.Sub(now)
	if delay < 0 {
		delay = 0
	}
	p.next = now.Add(delay + p.minInterval)
	p.mu.Unlock()

	if delay == 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("pacer canceled: %w", ctx.Err())
	case <-p.clock.After(delay):
		return nil
	}
}
