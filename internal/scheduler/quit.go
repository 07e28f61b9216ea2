package scheduler

import "sync/atomic"

// QuitFlag is a process-level request to stop the run loop.
//
// Hosts and scripts set it from any goroutine. The scheduler itself never
// consults it; Run checks it between iterations.
type QuitFlag struct {
	set atomic.Bool
}

// Set requests termination.
func (q *QuitFlag) Set() { q.set.Store(true) }

// IsSet reports whether termination was requested.
func (q *QuitFlag) IsSet() bool { return q.set.Load() }

// Reset clears the request.
func (q *QuitFlag) Reset() { q.set.Store(false) }
