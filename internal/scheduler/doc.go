// Package scheduler implements the fixed-step update/render scheduler that
// paces the host.
//
// The scheduler decouples a logical update clock from the render clock.
// Logical time advances in ticks of 1/UpdatesPerSecond seconds; every call
// to RunOnce renders exactly once, after running every tick that has come
// due, up to a bounded number.
//
// ITERATION PHASES:
//
// WAIT:    while no tick is due, call the idle hook; if still nothing is due,
//          sleep one update period. Exits with at least one tick due.
// CATCHUP: run update at least once, then once per due tick. If the backlog
//          outgrows a countdown that starts at BailThreshold, resynchronise the
//          tick counter to wall-clock time and drop the remaining backlog.
// RENDER:  call draw exactly once.
//
// The bail check compares the pending count cached by the most recent
// Pending() call, taken before the update that just ran, against the
// countdown, and happens before the tick counter is incremented. The first
// update of a burst therefore always runs, even when the backlog is already
// past the threshold.
//
// Under sustained overload this bounds the updates per render to
// BailThreshold+1 and turns overload into dropped ticks rather than an
// unbounded stall.
//
// CONCURRENCY:
//
// A Scheduler is single-threaded. RunOnce is not reentrant and must not be
// called concurrently with itself. The only blocking point is Clock.Sleep in
// the WAIT phase. QuitFlag is the one piece of state meant to be shared
// across goroutines; the scheduler never reads it, Run does between
// iterations.
package scheduler
