package scheduler

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/avhost/internal/testutil"
)

// newTestScheduler builds an initialised scheduler at t=0 on a manual clock.
func newTestScheduler(t *testing.T, ups, threshold int64, opts ...Option) (*Scheduler, *testutil.ManualClock, *testutil.RecordingHooks) {
	t.Helper()

	clk := testutil.NewManualClock(0)
	hooks := testutil.NewRecordingHooks(clk)
	s, err := New(clk, hooks, Config{UpdatesPerSecond: ups, BailThreshold: threshold}, opts...)
	require.NoError(t, err)
	s.Init()
	return s, clk, hooks
}

func TestNew_Validation(t *testing.T) {
	clk := testutil.NewManualClock(0)
	hooks := testutil.NewRecordingHooks(clk)

	tests := []struct {
		name  string
		cfg   Config
		clock *testutil.ManualClock
		hooks Hooks
	}{
		{"zero rate", Config{UpdatesPerSecond: 0, BailThreshold: 40}, clk, hooks},
		{"negative rate", Config{UpdatesPerSecond: -5, BailThreshold: 40}, clk, hooks},
		{"zero threshold", Config{UpdatesPerSecond: 120, BailThreshold: 0}, clk, hooks},
		{"nil hooks", DefaultConfig(), clk, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.clock, tt.hooks, tt.cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := New(nil, hooks, DefaultConfig())
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, int64(120), cfg.UpdatesPerSecond)
	assert.Equal(t, int64(40), cfg.BailThreshold)
	assert.InDelta(t, 1.0/120, cfg.UpdatePeriod(), 1e-15)
	assert.NoError(t, cfg.Validate())
}

func TestInit_SeedsFromWallClock(t *testing.T) {
	clk := testutil.NewManualClock(12.345)
	s, err := New(clk, HookFuncs{}, Config{UpdatesPerSecond: 100, BailThreshold: 40})
	require.NoError(t, err)

	assert.False(t, s.Initialized())
	s.Init()

	assert.True(t, s.Initialized())
	assert.Equal(t, int64(1234), s.Updated())
	assert.Equal(t, int64(0), s.PendingUpdates())
}

func TestRunOnce_BeforeInit(t *testing.T) {
	clk := testutil.NewManualClock(1000)
	hooks := testutil.NewRecordingHooks(clk)
	s, err := New(clk, hooks, DefaultConfig())
	require.NoError(t, err)

	err = s.RunOnce()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Empty(t, hooks.Calls(), "no hook may run before Init")
}

// Scenario A: nothing due yet, so the wait phase idles and then sleeps.
func TestRunOnce_WaitPhaseIdlesThenSleeps(t *testing.T) {
	s, clk, hooks := newTestScheduler(t, 100, 40)
	assert.Equal(t, int64(0), s.Updated())

	clk.Set(0.005)
	assert.Equal(t, int64(0), s.Pending())

	require.NoError(t, s.RunOnce())

	assert.Equal(t, []string{testutil.CallIdle, testutil.CallUpdate, testutil.CallDraw}, hooks.Calls())
	assert.Equal(t, 1, clk.Sleeps())
	assert.InDelta(t, 0.01, clk.Slept(), 1e-12, "sleeps exactly one update period")
	assert.Equal(t, int64(1), s.Updated())
}

// Scenario B: three ticks due, all three run, then one draw.
func TestRunOnce_CatchUpRunsEveryDueTick(t *testing.T) {
	s, clk, hooks := newTestScheduler(t, 100, 40)

	clk.Set(0.031)
	assert.Equal(t, int64(3), s.Pending())

	require.NoError(t, s.RunOnce())

	assert.Equal(t, []string{
		testutil.CallUpdate, testutil.CallUpdate, testutil.CallUpdate, testutil.CallDraw,
	}, hooks.Calls())
	assert.Equal(t, int64(3), s.Updated())
	assert.Equal(t, int64(0), s.PendingUpdates())
	assert.Equal(t, 0, clk.Sleeps())
}

// Scenario C: slow updates blow through the budget on the second update.
func TestRunOnce_BailResynchronises(t *testing.T) {
	var report IterationReport
	s, clk, hooks := newTestScheduler(t, 100, 2, WithObserver(ObserverFunc(func(r IterationReport) {
		report = r
	})))
	hooks.UpdateCost = 0.5

	clk.Set(0.011)
	require.NoError(t, s.RunOnce())

	assert.Equal(t, 2, hooks.Count(testutil.CallUpdate))
	assert.Equal(t, 1, hooks.Count(testutil.CallDraw))
	assert.Equal(t, int64(math.Floor(clk.Now()*100)), s.Updated())
	assert.Equal(t, int64(101), s.Updated())

	assert.True(t, report.Bailed)
	assert.Equal(t, 2, report.Updates)
	assert.Equal(t, int64(99), report.Dropped)
	assert.Equal(t, int64(101), report.Updated)
	assert.Equal(t, uint64(1), report.Iteration)
	assert.InDelta(t, 1.0, report.Elapsed, 1e-9)
}

// Scenario D: Pending is a pure read while the clock is frozen.
func TestPending_IdempotentWhenFrozen(t *testing.T) {
	s, clk, _ := newTestScheduler(t, 100, 40)
	clk.Set(0.047)

	first := s.Pending()
	second := s.Pending()

	assert.Equal(t, int64(4), first)
	assert.Equal(t, first, second)
	assert.Equal(t, first, s.PendingUpdates())
}

func TestRunOnce_FirstUpdateAlwaysRuns(t *testing.T) {
	s, clk, hooks := newTestScheduler(t, 100, 1)

	// 500 ticks of backlog against a threshold of 1.
	clk.Set(5.0)
	require.NoError(t, s.RunOnce())

	assert.Equal(t, 1, hooks.Count(testutil.CallUpdate))
	assert.Equal(t, 1, hooks.Count(testutil.CallDraw))
	assert.Equal(t, int64(500), s.Updated())
}

// The bail check must use the pending count cached before the update ran.
// A fresh recount after the slow update would see 26 ticks and bail at the
// first update; the cached count of 1 lets the tick be consumed.
func TestRunOnce_BailCheckUsesCachedPending(t *testing.T) {
	s, clk, hooks := newTestScheduler(t, 100, 2)
	hooks.UpdateCost = 0.25

	clk.Set(0.011)
	require.NoError(t, s.RunOnce())

	// update 1: budget 1, cached pending 1 -> no bail, updated 1, pending 25
	// update 2: budget 0, cached pending 25 -> bail, resync to floor(51.1)
	assert.Equal(t, 2, hooks.Count(testutil.CallUpdate))
	assert.Equal(t, int64(51), s.Updated())
}

func TestRunOnce_SaturatedUpdatesBailWithinBudget(t *testing.T) {
	s, clk, hooks := newTestScheduler(t, 100, 5)
	// Each update costs a little more than one period: the backlog never drains.
	hooks.UpdateCost = 0.0101

	clk.Set(0.011)
	require.NoError(t, s.RunOnce())

	updates := hooks.Count(testutil.CallUpdate)
	assert.GreaterOrEqual(t, updates, 1)
	assert.LessOrEqual(t, updates, 6)
	assert.Equal(t, uint64(1), s.Stats().Bails)
	assert.Equal(t, int64(math.Floor(clk.Now()*100)), s.Updated())
}

func TestRunOnce_BoundedCatchUpProperties(t *testing.T) {
	costs := []float64{0, 0.001, 0.004, 0.0099, 0.013, 0.05, 0.5}
	backlogs := []float64{0.0051, 0.011, 0.2, 3.0}
	const threshold = 5

	for _, cost := range costs {
		for _, backlog := range backlogs {
			var reports []IterationReport
			s, clk, hooks := newTestScheduler(t, 100, threshold, WithObserver(ObserverFunc(func(r IterationReport) {
				reports = append(reports, r)
			})))
			hooks.UpdateCost = cost
			hooks.DrawCost = cost / 2

			// Idle must only ever run when nothing is due.
			hooks.OnCall = func(name string) {
				if name == testutil.CallIdle {
					due := int64(math.Floor(clk.Now()*100)) - s.Updated()
					assert.LessOrEqual(t, due, int64(0), "idle called with %d ticks due", due)
				}
			}

			clk.Set(backlog)
			prevUpdated := s.Updated()
			for i := 0; i < 25; i++ {
				hooks.Reset()
				require.NoError(t, s.RunOnce())

				calls := hooks.Calls()
				updates := hooks.Count(testutil.CallUpdate)

				// P2
				assert.GreaterOrEqual(t, updates, 1)
				assert.LessOrEqual(t, updates, threshold+1)
				// P3
				assert.Equal(t, 1, hooks.Count(testutil.CallDraw))
				assert.Equal(t, testutil.CallDraw, calls[len(calls)-1])
				// P1
				assert.GreaterOrEqual(t, s.Updated(), prevUpdated)
				prevUpdated = s.Updated()
				// Post-iteration invariant
				if !reports[len(reports)-1].Bailed {
					assert.LessOrEqual(t, s.PendingUpdates(), int64(0))
				}
			}
			assert.Len(t, reports, 25)
		}
	}
}

func TestRunOnce_HookErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("update aborts before draw", func(t *testing.T) {
		s, clk, hooks := newTestScheduler(t, 100, 40)
		hooks.UpdateErr = boom
		clk.Set(0.031)

		err := s.RunOnce()
		require.ErrorIs(t, err, boom)
		phase, ok := IsHookError(err)
		assert.True(t, ok)
		assert.Equal(t, PhaseUpdate, phase)

		assert.Equal(t, []string{testutil.CallUpdate}, hooks.Calls(), "no retry, no further ticks, no draw")
		assert.Equal(t, int64(0), s.Updated())
		assert.Equal(t, uint64(0), s.Stats().Iterations)
	})

	t.Run("idle aborts the wait", func(t *testing.T) {
		s, _, hooks := newTestScheduler(t, 100, 40)
		hooks.IdleErr = boom

		err := s.RunOnce()
		phase, ok := IsHookError(err)
		assert.True(t, ok)
		assert.Equal(t, PhaseIdle, phase)
		assert.Equal(t, []string{testutil.CallIdle}, hooks.Calls())
	})

	t.Run("draw", func(t *testing.T) {
		s, clk, hooks := newTestScheduler(t, 100, 40)
		hooks.DrawErr = boom
		clk.Set(0.011)

		err := s.RunOnce()
		phase, ok := IsHookError(err)
		assert.True(t, ok)
		assert.Equal(t, PhaseDraw, phase)
		assert.Equal(t, int64(1), s.Updated(), "ticks consumed before the failure stay consumed")
	})

	t.Run("panics propagate", func(t *testing.T) {
		clk := testutil.NewManualClock(0)
		panicking := true
		s, err := New(clk, HookFuncs{OnUpdate: func() error {
			if panicking {
				panic("kaboom")
			}
			return nil
		}}, Config{UpdatesPerSecond: 100, BailThreshold: 40})
		require.NoError(t, err)
		s.Init()
		clk.Set(0.011)

		assert.PanicsWithValue(t, "kaboom", func() { _ = s.RunOnce() })

		// The scheduler stays usable once the hook stops panicking.
		panicking = false
		assert.NoError(t, s.RunOnce())
	})
}

func TestRunOnce_NotReentrant(t *testing.T) {
	clk := testutil.NewManualClock(0)
	var s *Scheduler
	var inner error
	s, err := New(clk, HookFuncs{
		OnDraw: func() error {
			inner = s.RunOnce()
			return nil
		},
	}, Config{UpdatesPerSecond: 100, BailThreshold: 40})
	require.NoError(t, err)
	s.Init()
	clk.Set(0.011)

	require.NoError(t, s.RunOnce())
	assert.ErrorIs(t, inner, ErrReentrant)
}

func TestHookFuncs_NilSlotsAreNoOps(t *testing.T) {
	var h HookFuncs
	assert.NoError(t, h.Update())
	assert.NoError(t, h.Draw())
	assert.NoError(t, h.Idle())
}

func TestStats_Accumulate(t *testing.T) {
	s, clk, hooks := newTestScheduler(t, 100, 2)

	clk.Set(0.031) // 3 due, threshold 2 -> cached 3 > 1 bails on first update
	require.NoError(t, s.RunOnce())

	hooks.Reset()
	clk.Advance(0.0001) // nothing new due; waits one sleep
	require.NoError(t, s.RunOnce())

	st := s.Stats()
	assert.Equal(t, uint64(2), st.Iterations)
	assert.Equal(t, uint64(2), st.Updates)
	assert.Equal(t, uint64(1), st.Bails)
	assert.Equal(t, uint64(2), st.Dropped)
	assert.Equal(t, uint64(1), st.Idles)
	assert.Equal(t, uint64(1), st.Sleeps)
}

func TestBudget_Countdown(t *testing.T) {
	b := newCatchUpBudget(3)
	assert.False(t, b.Spend(2)) // 2 > 2
	assert.True(t, b.Spend(2))  // 2 > 1
	assert.Equal(t, int64(1), b.Remaining())
}
