package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by RunOnce before Init has been called.
	// Running uninitialised would see the whole of wall-clock time as backlog.
	ErrNotInitialized = errors.New("scheduler: RunOnce called before Init")

	// ErrReentrant is returned when a hook calls RunOnce on its own scheduler.
	ErrReentrant = errors.New("scheduler: RunOnce is not reentrant")

	// ErrInvalidConfig wraps configuration validation failures.
	ErrInvalidConfig = errors.New("scheduler: invalid config")
)

// Phase names the hook that was running when an iteration failed.
type Phase string

const (
	PhaseIdle   Phase = "idle"
	PhaseUpdate Phase = "update"
	PhaseDraw   Phase = "draw"
)

// HookError reports a hook failure. The iteration that produced it was
// abandoned at the failing hook: no later update ran and draw was skipped
// unless draw itself failed.
type HookError struct {
	Phase Phase
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook: %v", e.Phase, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// IsHookError reports whether err is a HookError, returning its phase.
// Uses errors.As to handle wrapped errors.
func IsHookError(err error) (Phase, bool) {
	var he *HookError
	if errors.As(err, &he) {
		return he.Phase, true
	}
	return "", false
}
