package application

import (
	"strings"
	"sync"
	"time"

	"github.com/example/intake-tracker/internal/reconcile"
)

// indicatorCache stores recently aggregated day indicators to avoid repeated
// reconciliation for identical range queries while the underlying logs remain
// unchanged. Any successful mutation invalidates the whole cache.
type indicatorCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]indicatorCacheEntry
}

type indicatorCacheEntry struct {
	indicators []DayIndicator
	expiresAt  time.Time
}

func newIndicatorCache(ttl time.Duration, maxEntries int, now func() time.Time) *indicatorCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &indicatorCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]indicatorCacheEntry),
	}
}

func (c *indicatorCache) Get(key string) ([]DayIndicator, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneIndicators(entry.indicators), true
}

func (c *indicatorCache) Store(key string, indicators []DayIndicator) {
	if c == nil {
		return
	}
	cloned := cloneIndicators(indicators)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = indicatorCacheEntry{indicators: cloned, expiresAt: expiry}
}

func (c *indicatorCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]indicatorCacheEntry)
	c.mu.Unlock()
}

func (c *indicatorCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *indicatorCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneIndicators(indicators []DayIndicator) []DayIndicator {
	if len(indicators) == 0 {
		return nil
	}
	out := make([]DayIndicator, len(indicators))
	copy(out, indicators)
	return out
}

func buildIndicatorCacheKey(userID string, start, end time.Time) string {
	builder := strings.Builder{}
	builder.WriteString(userID)
	builder.WriteString("|")
	builder.WriteString(reconcile.FormatDate(start))
	builder.WriteString("|")
	builder.WriteString(reconcile.FormatDate(end))
	return builder.String()
}
