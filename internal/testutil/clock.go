package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a thread-safe clock for tests whose Now advances by a
// fixed step on every call, starting from a fixed base.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   sync.Mutex
	base time.Time
	step time.Duration
	n    int64
}

// DefaultBase is the first instant returned by a clock created with a zero
// base: 2024-01-01T00:00:00Z.
var DefaultBase = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// NewDeterministicClock creates a clock. A zero base means DefaultBase and a
// zero step means one second.
//
// The first call to Now() returns base.
func NewDeterministicClock(base time.Time, step time.Duration) *DeterministicClock {
	if base.IsZero() {
		base = DefaultBase
	}
	if step == 0 {
		step = time.Second
	}
	return &DeterministicClock{base: base, step: step}
}

// Now returns the next instant.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Calls returns how many times Now was called.
func (c *DeterministicClock) Calls() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset rewinds the clock so the next Now returns the base again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
