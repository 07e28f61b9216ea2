package scheduler

// IterationReport summarises one completed RunOnce call.
type IterationReport struct {
	Iteration uint64  // 1-based count of completed iterations
	Updates   int     // update hook calls, in [1, BailThreshold+1]
	Idles     int     // idle hook calls during the wait phase
	Sleeps    int     // sleeps during the wait phase
	Bailed    bool    // catch-up was cut short
	Dropped   int64   // ticks skipped by the bail resync
	Updated   int64   // tick counter after the iteration
	Pending   int64   // cached pending count after the iteration
	Elapsed   float64 // wall seconds spent in RunOnce
}

// Observer receives a report after every successful iteration.
// Observers run synchronously on the scheduler's goroutine and must not call
// back into the scheduler.
type Observer interface {
	ObserveIteration(IterationReport)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(IterationReport)

func (f ObserverFunc) ObserveIteration(r IterationReport) { f(r) }

// Stats are cumulative counters since construction.
type Stats struct {
	Iterations uint64
	Updates    uint64
	Idles      uint64
	Sleeps     uint64
	Bails      uint64
	Dropped    uint64
}

func (s *Stats) add(r IterationReport) {
	s.Iterations++
	s.Updates += uint64(r.Updates)
	s.Idles += uint64(r.Idles)
	s.Sleeps += uint64(r.Sleeps)
	if r.Bailed {
		s.Bails++
	}
	if r.Dropped > 0 {
		s.Dropped += uint64(r.Dropped)
	}
}
