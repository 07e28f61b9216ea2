package testutil

import "sync"

// ManualClock is a deterministic clock for tests and pacing simulations.
//
// Time only moves when Advance, Set or Sleep is called. Sleep advances the
// clock by the requested duration instead of blocking, so a scheduler driven
// by a ManualClock runs instantly and reproducibly.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ManualClock struct {
	mu     sync.Mutex
	now    float64
	sleeps int
	slept  float64

	// OnSleep, if set, is called after each Sleep with the requested duration.
	// It runs without the clock's lock held.
	OnSleep func(seconds float64)
}

// NewManualClock creates a clock reading start seconds.
func NewManualClock(start float64) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the clock by seconds. Non-positive durations are counted
// but do not move time.
func (c *ManualClock) Sleep(seconds float64) {
	c.mu.Lock()
	c.sleeps++
	if seconds > 0 {
		c.now += seconds
		c.slept += seconds
	}
	hook := c.OnSleep
	c.mu.Unlock()

	if hook != nil {
		hook(seconds)
	}
}

// Advance moves the clock forward. Negative values are ignored so the clock
// stays monotonic.
func (c *ManualClock) Advance(seconds float64) {
	if seconds <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += seconds
}

// Set jumps the clock to t if t is not in the past.
func (c *ManualClock) Set(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t > c.now {
		c.now = t
	}
}

// Sleeps returns how many times Sleep was called.
func (c *ManualClock) Sleeps() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sleeps
}

// Slept returns the total seconds advanced by Sleep.
func (c *ManualClock) Slept() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slept
}
