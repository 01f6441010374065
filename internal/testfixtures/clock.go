package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manually driven time source. Tests inject it wherever a service
// takes a now func so timestamps stay deterministic.
type Clock struct {
	mu sync.Mutex
	at time.Time
}

// NewClock returns a clock pinned to start, or to the shared ReferenceTime
// when start is the zero value.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{at: start}
}

// Now reports the instant the clock is currently pinned to.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

// NowFunc adapts the clock to the now-func shape services expect. A nil clock
// degrades to the real time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set pins the clock to an absolute instant.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.at = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.at = c.at.Add(d)
	moved := c.at
	c.mu.Unlock()
	return moved
}

// Current is a read-only alias for Now, for call sites that want to stress
// that no time passes.
func (c *Clock) Current() time.Time {
	return c.Now()
}
