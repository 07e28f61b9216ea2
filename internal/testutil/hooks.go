package testutil

import "sync"

// Hook names recorded by RecordingHooks.
const (
	CallUpdate = "update"
	CallDraw   = "draw"
	CallIdle   = "idle"
)

// RecordingHooks implements the scheduler hook set for tests.
//
// Every call is appended to an ordered log. Each hook can advance the clock
// by a fixed cost to simulate slow work, and can be made to fail.
type RecordingHooks struct {
	// Clock, if set, is advanced by the per-hook cost after each call.
	Clock *ManualClock

	UpdateCost float64
	DrawCost   float64
	IdleCost   float64

	UpdateErr error
	DrawErr   error
	IdleErr   error

	// OnCall, if set, runs before the cost is applied.
	OnCall func(name string)

	mu    sync.Mutex
	calls []string
}

// NewRecordingHooks creates hooks bound to clk (which may be nil).
func NewRecordingHooks(clk *ManualClock) *RecordingHooks {
	return &RecordingHooks{Clock: clk}
}

func (h *RecordingHooks) Update() error { return h.record(CallUpdate, h.UpdateCost, h.UpdateErr) }
func (h *RecordingHooks) Draw() error   { return h.record(CallDraw, h.DrawCost, h.DrawErr) }
func (h *RecordingHooks) Idle() error   { return h.record(CallIdle, h.IdleCost, h.IdleErr) }

func (h *RecordingHooks) record(name string, cost float64, err error) error {
	h.mu.Lock()
	h.calls = append(h.calls, name)
	h.mu.Unlock()

	if h.OnCall != nil {
		h.OnCall(name)
	}
	if h.Clock != nil && cost > 0 {
		h.Clock.Advance(cost)
	}
	return err
}

// Calls returns a copy of the ordered call log.
func (h *RecordingHooks) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.calls))
	copy(out, h.calls)
	return out
}

// Count returns how many times the named hook ran.
func (h *RecordingHooks) Count(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c == name {
			n++
		}
	}
	return n
}

// Reset clears the call log.
func (h *RecordingHooks) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = nil
}
