// Package clock provides the wall-clock time source and the sleep primitive
// that pace the fixed-step scheduler.
//
// Time is expressed as float64 seconds. Only differences between readings
// are meaningful; the epoch is platform dependent.
//
// The platform implementation is chosen at build time:
//   - linux: CLOCK_MONOTONIC via clock_gettime, nanosleep retried on EINTR
//   - other: the Go runtime monotonic clock and time.Sleep
package clock

import (
	"errors"
	"fmt"
	"time"
)

// ErrClockUnavailable is returned when the platform clock cannot be read.
// The host cannot pace anything without it, so callers treat it as fatal.
var ErrClockUnavailable = errors.New("clock unavailable")

// Clock is a monotonic time source with a blocking sleep.
//
// Now must never go backwards between calls within one process run and must
// resolve at least microseconds. Sleep blocks for at least the requested
// duration; non-positive durations return immediately.
type Clock interface {
	Now() float64
	Sleep(seconds float64)
}

// System returns the platform clock after probing it once.
func System() (Clock, error) {
	c, err := newSystemClock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClockUnavailable, err)
	}
	return c, nil
}

// MustSystem is like System but panics if the clock cannot be read.
func MustSystem() Clock {
	c, err := System()
	if err != nil {
		panic(err)
	}
	return c
}

// Duration converts seconds to a time.Duration, truncating below a nanosecond.
func Duration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// Seconds converts a time.Duration to seconds.
func Seconds(d time.Duration) float64 {
	return d.Seconds()
}
