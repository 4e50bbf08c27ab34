package testfixtures

import (
	"sync"
	"time"
)

// Clock is a manually driven time source. Services under test take its
// NowFunc so timestamps stay pinned until a test moves them.
type Clock struct {
	mu      sync.Mutex
	instant time.Time
}

// NewClock returns a clock pinned to start, or to ReferenceTime when start
// is the zero value.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{instant: start}
}

// Now reports the pinned instant.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instant
}

// NowFunc adapts the clock to the now func() time.Time shape the services
// accept. A nil clock degrades to time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set pins the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.instant = t
	c.mu.Unlock()
}

// Advance moves the pinned instant forward by d and returns the result.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.instant = c.instant.Add(d)
	moved := c.instant
	c.mu.Unlock()
	return moved
}

// Current is an alias for Now used in assertions, where the name reads as
// "the time the clock was left at".
func (c *Clock) Current() time.Time {
	return c.Now()
}
