package testutil

import (
	"sync"
	"time"
)

// DefaultEpoch is the start time used when a FixedClock is created with a
// zero start.
var DefaultEpoch = time.Date(2025, 12, 28, 9, 0, 0, 0, time.UTC)

// FixedClock is a deterministic wall clock for tests.
//
// Each call to Now returns the current instant and then advances it by
// step, so bookmarks created one after another get strictly increasing
// dates. A zero step freezes time, which is how tests produce date ties.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu    sync.Mutex
	start time.Time
	now   time.Time
	step  time.Duration
}

// NewFixedClock creates a clock starting at start (DefaultEpoch if zero).
func NewFixedClock(start time.Time, step time.Duration) *FixedClock {
	if start.IsZero() {
		start = DefaultEpoch
	}
	start = start.UTC()
	return &FixedClock{start: start, now: start, step: step}
}

// Now returns the current instant and advances the clock by step.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the instant the next Now call will return.
func (c *FixedClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d without returning a value.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Reset rewinds the clock to its start so a scenario can be replayed with
// identical dates.
func (c *FixedClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
