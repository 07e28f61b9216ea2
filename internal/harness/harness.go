package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/avhost/internal/scheduler"
	"github.com/roach88/avhost/internal/testutil"
)

// Harness runs one scenario against a real scheduler driven by a manual
// clock and recording hooks.
type Harness struct {
	scenario *Scenario
	clock    *testutil.ManualClock
	hooks    *testutil.RecordingHooks
	sched    *scheduler.Scheduler
	result   *Result
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Create a manual clock at start_at and hooks with the configured costs
// 2. Build the scheduler and Init it at init_at
// 3. Execute the steps in order, checking pending expectations
// 4. Evaluate assertions against the trace
//
// An error is returned only when the scenario cannot run at all (bad config
// or a hook failure). Expectation mismatches are reported in Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with the scheduler's log output sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	h, err := newHarness(scenario, logger)
	if err != nil {
		return nil, err
	}
	if err := h.executeSteps(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	h.result.Updated = h.sched.Updated()
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}
	return h.result, nil
}

func newHarness(s *Scenario, logger *slog.Logger) (*Harness, error) {
	h := &Harness{
		scenario: s,
		clock:    testutil.NewManualClock(s.StartAt),
		result:   NewResult(),
		logger:   logger,
	}

	h.hooks = testutil.NewRecordingHooks(h.clock)
	h.hooks.UpdateCost = s.UpdateCost
	h.hooks.DrawCost = s.DrawCost
	h.hooks.IdleCost = s.IdleCost
	h.hooks.OnCall = h.onCall
	h.clock.OnSleep = func(float64) { h.record(EventSleep) }

	cfg := scheduler.Config{
		UpdatesPerSecond: s.UpdatesPerSecond,
		BailThreshold:    s.BailThreshold,
	}
	if cfg.BailThreshold == 0 {
		cfg.BailThreshold = scheduler.DefaultBailThreshold
	}

	sched, err := scheduler.New(h.clock, h.hooks, cfg,
		scheduler.WithObserver(scheduler.ObserverFunc(h.observe)),
		scheduler.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	h.sched = sched

	if s.InitAt > s.StartAt {
		h.clock.Set(s.InitAt)
	}
	sched.Init()
	h.record(EventInit)
	return h, nil
}

func (h *Harness) executeSteps() error {
	for i, step := range h.scenario.Steps {
		switch {
		case step.Advance != nil:
			h.clock.Advance(*step.Advance)

		case step.RunOnce:
			if err := h.sched.RunOnce(); err != nil {
				return fmt.Errorf("steps[%d]: run_once: %w", i, err)
			}
			h.result.Iterations++

		case step.Pending != nil:
			got := h.sched.Pending()
			h.result.addEvent(TraceEvent{Type: EventPending, Updated: h.sched.Updated(), Pending: &got})
			if want := step.Pending.Expect; want != nil && *want != got {
				h.result.AddError(fmt.Sprintf("steps[%d]: pending: expected %d, got %d", i, *want, got))
			}
		}
	}
	return nil
}

// onCall runs before the hook's cost is applied to the clock.
func (h *Harness) onCall(name string) {
	h.record(name)
}

func (h *Harness) record(eventType string) {
	ev := TraceEvent{Type: eventType}
	if h.sched != nil {
		ev.Updated = h.sched.Updated()
	}
	h.result.addEvent(ev)
}

func (h *Harness) observe(r scheduler.IterationReport) {
	if !r.Bailed {
		return
	}
	h.result.Bails++
	h.result.insertBeforeLastDraw(TraceEvent{Type: EventBail, Updated: r.Updated, Dropped: r.Dropped})
	h.logger.Debug("scenario bail", "scenario", h.scenario.Name, "iteration", r.Iteration, "dropped", r.Dropped)
}
