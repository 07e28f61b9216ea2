//go:build !linux

package clock

import "time"

// runtimeClock measures from a process-local epoch using the monotonic
// reading carried by time.Time.
type runtimeClock struct {
	epoch time.Time
}

func newSystemClock() (Clock, error) {
	return runtimeClock{epoch: time.Now()}, nil
}

func (c runtimeClock) Now() float64 {
	return time.Since(c.epoch).Seconds()
}

// Sleep relies on the runtime timer, which already resumes after signals.
func (runtimeClock) Sleep(seconds float64) {
	if seconds <= 0 {
		return
	}
	time.Sleep(Duration(seconds))
}
