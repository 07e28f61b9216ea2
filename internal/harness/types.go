package harness

// Trace event types.
const (
	EventInit    = "init"
	EventIdle    = "idle"
	EventSleep   = "sleep"
	EventUpdate  = "update"
	EventBail    = "bail"
	EventDraw    = "draw"
	EventPending = "pending"
)

// TraceEvent is one observable step of a scenario run.
type TraceEvent struct {
	Seq  int    `json:"seq"`
	Type string `json:"type"`

	// Updated is the tick counter when the event happened. For update events
	// it is the value before the increment.
	Updated int64 `json:"updated"`

	// Pending is set on pending events only.
	Pending *int64 `json:"pending,omitempty"`

	// Dropped is the number of skipped ticks on a bail event.
	Dropped int64 `json:"dropped,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace lists every event in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Updated is the final tick counter.
	Updated int64 `json:"updated"`

	// Iterations is the number of completed run_once steps.
	Iterations int `json:"iterations"`

	// Bails counts iterations whose catch-up bailed.
	Bails int `json:"bails"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// addEvent appends an event, numbering it.
func (r *Result) addEvent(ev TraceEvent) {
	ev.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, ev)
}

// insertBeforeLastDraw places ev just before the most recent draw event and
// renumbers. Observers run after draw, but a bail happens before it.
func (r *Result) insertBeforeLastDraw(ev TraceEvent) {
	idx := len(r.Trace)
	for i := len(r.Trace) - 1; i >= 0; i-- {
		if r.Trace[i].Type == EventDraw {
			idx = i
			break
		}
	}
	r.Trace = append(r.Trace, TraceEvent{})
	copy(r.Trace[idx+1:], r.Trace[idx:])
	r.Trace[idx] = ev
	for i := range r.Trace {
		r.Trace[i].Seq = i + 1
	}
}

// Count returns how many events of the given type are in the trace.
func (r *Result) Count(eventType string) int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}
