package scheduler

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/roach88/avhost/internal/clock"
)

const (
	// DefaultUpdatesPerSecond is the logical tick rate.
	DefaultUpdatesPerSecond = 120

	// DefaultBailThreshold is the maximum number of updates per render, and
	// the largest backlog tolerated before ticks are dropped.
	DefaultBailThreshold = 40
)

// Config holds the pacing constants. They are fixed for the lifetime of a
// Scheduler.
type Config struct {
	UpdatesPerSecond int64
	BailThreshold    int64
}

// DefaultConfig returns 120 updates per second with a bail threshold of 40.
func DefaultConfig() Config {
	return Config{
		UpdatesPerSecond: DefaultUpdatesPerSecond,
		BailThreshold:    DefaultBailThreshold,
	}
}

// Validate checks that both constants are positive.
func (c Config) Validate() error {
	if c.UpdatesPerSecond <= 0 {
		return fmt.Errorf("%w: updates per second must be positive, got %d", ErrInvalidConfig, c.UpdatesPerSecond)
	}
	if c.BailThreshold < 1 {
		return fmt.Errorf("%w: bail threshold must be at least 1, got %d", ErrInvalidConfig, c.BailThreshold)
	}
	return nil
}

// UpdatePeriod returns the seconds of logical time covered by one tick.
func (c Config) UpdatePeriod() float64 {
	return 1 / float64(c.UpdatesPerSecond)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithObserver adds an observer. Observers run in the order they were added.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithLogger sets the logger used for bail diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scheduler is the fixed-step update/render scheduler.
//
// All state is owned by the instance; independent schedulers do not
// interact. See the package documentation for the iteration algorithm.
//
// INVARIANTS:
//   - updated never decreases
//   - after each RunOnce, either the cached pending count is <= 0 or the
//     iteration bailed and updated equals floor(now * UpdatesPerSecond)
type Scheduler struct {
	clock     clock.Clock
	hooks     Hooks
	cfg       Config
	period    float64
	observers []Observer
	logger    *slog.Logger

	updated        int64 // ticks executed or skipped since Init
	pendingUpdates int64 // cached by Pending
	initialized    bool
	running        bool
	stats          Stats
}

// New creates a Scheduler. Init must be called before the first RunOnce.
func New(clk clock.Clock, hooks Hooks, cfg Config, opts ...Option) (*Scheduler, error) {
	if clk == nil {
		return nil, fmt.Errorf("%w: nil clock", ErrInvalidConfig)
	}
	if hooks == nil {
		return nil, fmt.Errorf("%w: nil hooks", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{
		clock:  clk,
		hooks:  hooks,
		cfg:    cfg,
		period: cfg.UpdatePeriod(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Init seeds the tick counter from the current wall-clock time and clears
// the pending count. Calling it again restarts pacing from now.
func (s *Scheduler) Init() {
	s.updated = s.tickNow()
	s.pendingUpdates = 0
	s.initialized = true
}

// Initialized reports whether Init has been called.
func (s *Scheduler) Initialized() bool {
	return s.initialized
}

// Pending recomputes the number of ticks due, caches it and returns it.
//
// The cache is visible through PendingUpdates. Callers that need a stable
// value within one iteration should keep the return value rather than
// calling Pending again.
func (s *Scheduler) Pending() int64 {
	s.pendingUpdates = s.tickNow() - s.updated
	return s.pendingUpdates
}

// RunOnce runs one WAIT, CATCHUP, RENDER iteration.
//
// A hook error aborts the iteration immediately and is returned as a
// *HookError. Panics in hooks propagate unchanged.
func (s *Scheduler) RunOnce() error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if s.running {
		return ErrReentrant
	}
	s.running = true
	defer func() { s.running = false }()

	start := s.clock.Now()
	var report IterationReport

	// WAIT: offer idle work on every pass, sleep only if it did not use up
	// the remaining time.
	for s.Pending() <= 0 {
		if err := s.call(PhaseIdle, s.hooks.Idle); err != nil {
			return err
		}
		report.Idles++
		if s.Pending() <= 0 {
			s.clock.Sleep(s.period)
			report.Sleeps++
		}
	}

	// CATCHUP: at least one update; the bail check sees the pending count
	// from before this update and runs before updated is incremented.
	budget := newCatchUpBudget(s.cfg.BailThreshold)
	for {
		if err := s.call(PhaseUpdate, s.hooks.Update); err != nil {
			return err
		}
		report.Updates++

		if budget.Spend(s.pendingUpdates) {
			report.Bailed = true
			report.Dropped = s.resync()
			s.logger.Debug("catch-up bailed",
				"pending", s.pendingUpdates,
				"threshold", s.cfg.BailThreshold,
				"updates", report.Updates,
				"dropped", report.Dropped,
				"updated", s.updated,
			)
			break
		}

		s.updated++
		if s.Pending() <= 0 {
			break
		}
	}

	// RENDER
	if err := s.call(PhaseDraw, s.hooks.Draw); err != nil {
		return err
	}

	report.Updated = s.updated
	report.Pending = s.pendingUpdates
	report.Elapsed = s.clock.Now() - start
	s.stats.add(report)
	report.Iteration = s.stats.Iterations

	for _, o := range s.observers {
		o.ObserveIteration(report)
	}
	return nil
}

// resync jumps the tick counter to wall-clock time and returns how many
// ticks were skipped. The update that triggered the bail accounts for one
// of the ticks it jumps over.
func (s *Scheduler) resync() int64 {
	before := s.updated
	if now := s.tickNow(); now > s.updated {
		s.updated = now
	}
	dropped := s.updated - before - 1
	if dropped < 0 {
		dropped = 0
	}
	return dropped
}

func (s *Scheduler) tickNow() int64 {
	return int64(math.Floor(s.clock.Now() * float64(s.cfg.UpdatesPerSecond)))
}

func (s *Scheduler) call(phase Phase, hook func() error) error {
	if err := hook(); err != nil {
		return &HookError{Phase: phase, Err: err}
	}
	return nil
}

// Updated returns the tick counter.
func (s *Scheduler) Updated() int64 {
	return s.updated
}

// PendingUpdates returns the pending count cached by the last Pending call
// without consulting the clock.
func (s *Scheduler) PendingUpdates() int64 {
	return s.pendingUpdates
}

// UpdatePeriod returns seconds per tick.
func (s *Scheduler) UpdatePeriod() float64 {
	return s.period
}

// Config returns the pacing constants.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Stats returns cumulative counters.
func (s *Scheduler) Stats() Stats {
	return s.stats
}
