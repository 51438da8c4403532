// Package threads implements conversation-level analysis: cheap pre-filters,
// a TTL result cache in front of the AI tier, and the optimization levels
// that trade recall for API cost.
package threads

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/finsift/finsift/internal/common"
	"github.com/finsift/finsift/internal/model"
)

// ThreadKey builds a deterministic cache key from the ordered set of
// messages composing a conversation.
func ThreadKey(messages []model.ThreadMessage) string {
	var b strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&b, "%s|%s|%s|%d\n", m.MessageID, m.Sender, m.Subject, m.Timestamp.Unix())
	}
	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", sum)
}

type cacheEntry struct {
	computedAt time.Time
	result     model.AnalysisResult
}

// Cache is a TTL map of thread analysis results. Reads and writes may come
// from concurrent callers; last write wins, which is safe because the
// analysis is idempotent. Expired entries are treated as absent on read;
// EvictExpired is driven by an external scheduler to bound memory.
type Cache struct {
	clock   common.Clock
	entries map[string]cacheEntry
	ttl     time.Duration
	mu      sync.RWMutex
}

// NewCache creates a cache with the given TTL.
func NewCache(ttl time.Duration, clock common.Clock) *Cache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	if clock == nil {
		clock = common.NewSystemClock()
	}
	return &Cache{
		clock:   clock,
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get returns the cached result if present and younger than the TTL.
func (c *Cache) Get(key string) (model.AnalysisResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return model.AnalysisResult{}, false
	}
	if c.clock.Now().Sub(entry.computedAt) >= c.ttl {
		return model.AnalysisResult{}, false
	}
	return entry.result, true
}

// Put stores a result under the key.
func (c *Cache) Put(key string, result model.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{result: result, computedAt: c.clock.Now()}
}

// EvictExpired removes expired entries and returns how many were dropped.
func (c *Cache) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evicted := 0
	for key, entry := range c.entries {
		if now.Sub(entry.computedAt) >= c.ttl {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}

// Size returns the number of entries, including not-yet-evicted expired ones.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
