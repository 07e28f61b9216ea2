package scheduler

// Hooks are the host-supplied callbacks driven by the scheduler.
//
// Update advances simulation state by one logical tick. Draw renders the
// current state and presents any output buffer. Idle performs low-priority
// polling while no tick is due; it must return promptly so the wait phase
// can re-check the clock.
//
// A returned error aborts the rest of the iteration.
type Hooks interface {
	Update() error
	Draw() error
	Idle() error
}

// HookFuncs adapts plain functions to Hooks. A nil slot is a no-op.
type HookFuncs struct {
	OnUpdate func() error
	OnDraw   func() error
	OnIdle   func() error
}

func (h HookFuncs) Update() error { return callOrNil(h.OnUpdate) }
func (h HookFuncs) Draw() error   { return callOrNil(h.OnDraw) }
func (h HookFuncs) Idle() error   { return callOrNil(h.OnIdle) }

func callOrNil(fn func() error) error {
	if fn == nil {
		return nil
	}
	return fn()
}
