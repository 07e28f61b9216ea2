package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s updated=%d\n", ev.Seq, ev.Type, ev.Updated)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertCallCount:
		return assertCallCount(result, a)
	case AssertUpdated:
		return assertUpdated(result, a)
	case AssertDrawAfterUpdates:
		return assertDrawAfterUpdates(result.Trace)
	case AssertBailed:
		return assertBailed(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertCallCount checks how often a hook ran (or the clock slept).
func assertCallCount(result *Result, a Assertion) error {
	n := result.Count(a.Hook)
	fail := func(expected string) error {
		return &AssertionError{
			Type:     AssertCallCount,
			Expected: fmt.Sprintf("%s called %s", a.Hook, expected),
			Actual:   fmt.Sprintf("%d calls", n),
			Trace:    result.Trace,
		}
	}

	if a.Exact != nil && n != *a.Exact {
		return fail(fmt.Sprintf("exactly %d times", *a.Exact))
	}
	if a.Min != nil && n < *a.Min {
		return fail(fmt.Sprintf("at least %d times", *a.Min))
	}
	if a.Max != nil && n > *a.Max {
		return fail(fmt.Sprintf("at most %d times", *a.Max))
	}
	return nil
}

func assertUpdated(result *Result, a Assertion) error {
	if result.Updated == *a.Expect {
		return nil
	}
	return &AssertionError{
		Type:     AssertUpdated,
		Expected: fmt.Sprintf("updated = %d", *a.Expect),
		Actual:   fmt.Sprintf("updated = %d", result.Updated),
	}
}

// assertDrawAfterUpdates checks that every draw has at least one update
// since the previous draw.
func assertDrawAfterUpdates(trace []TraceEvent) error {
	updates := 0
	for _, ev := range trace {
		switch ev.Type {
		case EventUpdate:
			updates++
		case EventDraw:
			if updates == 0 {
				return &AssertionError{
					Type:     AssertDrawAfterUpdates,
					Expected: "at least one update before each draw",
					Actual:   fmt.Sprintf("draw at seq %d with no update since the previous draw", ev.Seq),
					Trace:    trace,
				}
			}
			updates = 0
		}
	}
	return nil
}

func assertBailed(result *Result, a Assertion) error {
	got := result.Bails > 0
	if got == *a.Bailed {
		return nil
	}
	return &AssertionError{
		Type:     AssertBailed,
		Expected: fmt.Sprintf("bailed = %t", *a.Bailed),
		Actual:   fmt.Sprintf("%d bails", result.Bails),
		Trace:    result.Trace,
	}
}
