//go:build linux

package clock

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// monotonicClock reads CLOCK_MONOTONIC directly so readings are immune to
// wall-clock adjustments.
type monotonicClock struct{}

func newSystemClock() (Clock, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return nil, fmt.Errorf("clock_gettime(CLOCK_MONOTONIC): %w", err)
	}
	return monotonicClock{}, nil
}

// Now returns seconds on the monotonic clock.
// The clock was probed at construction; a failing read afterwards means the
// kernel withdrew CLOCK_MONOTONIC, which is not survivable.
func (monotonicClock) Now() float64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		panic(fmt.Errorf("%w: %v", ErrClockUnavailable, err))
	}
	sec, nsec := ts.Unix()
	return float64(sec) + float64(nsec)*1e-9
}

// Sleep blocks in nanosleep, resuming with the remaining time when a signal
// interrupts it.
func (monotonicClock) Sleep(seconds float64) {
	if seconds <= 0 {
		return
	}
	req := unix.NsecToTimespec(Duration(seconds).Nanoseconds())
	for {
		var rem unix.Timespec
		err := unix.Nanosleep(&req, &rem)
		if err != unix.EINTR {
			return
		}
		req = rem
	}
}
