package scheduler

// catchUpBudget is the per-iteration countdown that bounds catch-up work.
//
// It starts at the bail threshold and shrinks by one per update. The burst
// must bail once the backlog exceeds the remaining budget, which catches both
// a runaway backlog and steady saturation where each update costs about one
// period.
type catchUpBudget struct {
	remaining int64
}

func newCatchUpBudget(threshold int64) *catchUpBudget {
	return &catchUpBudget{remaining: threshold}
}

// Spend consumes one update and reports whether pending now exceeds what is
// left of the budget.
func (b *catchUpBudget) Spend(pending int64) bool {
	b.remaining--
	return pending > b.remaining
}

// Remaining returns the budget left. It goes negative only if Spend keeps
// being called after it reported a bail.
func (b *catchUpBudget) Remaining() int64 {
	return b.remaining
}
