package journal

import (
	"context"
	"fmt"
)

// ListSessions returns all sessions, oldest first.
func (j *Journal) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, started_at, ended_at, script, updates_per_second, bail_threshold, end_reason
		FROM sessions
		ORDER BY started_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// Summary aggregates a session's iterations.
type Summary struct {
	Session      Session `json:"session"`
	Iterations   int64   `json:"iterations"`
	Updates      int64   `json:"updates"`
	Bails        int64   `json:"bails"`
	DroppedTicks int64   `json:"dropped_ticks"`
	Idles        int64   `json:"idles"`
	Sleeps       int64   `json:"sleeps"`
	MaxUpdates   int64   `json:"max_updates_per_iteration"`
	LastUpdated  int64   `json:"last_updated"`
	BusySeconds  float64 `json:"busy_seconds"`
}

// Summarize aggregates the iterations of one session.
func (j *Journal) Summarize(ctx context.Context, id string) (Summary, error) {
	s, err := j.GetSession(ctx, id)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{Session: s}
	err = j.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(updates), 0),
			COALESCE(SUM(bailed), 0),
			COALESCE(SUM(dropped), 0),
			COALESCE(SUM(idles), 0),
			COALESCE(SUM(sleeps), 0),
			COALESCE(MAX(updates), 0),
			COALESCE(MAX(updated), 0),
			COALESCE(SUM(elapsed), 0.0)
		FROM iterations
		WHERE session_id = ?
	`, id).Scan(
		&sum.Iterations,
		&sum.Updates,
		&sum.Bails,
		&sum.DroppedTicks,
		&sum.Idles,
		&sum.Sleeps,
		&sum.MaxUpdates,
		&sum.LastUpdated,
		&sum.BusySeconds,
	)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize session: %w", err)
	}
	return sum, nil
}

// BailedIterations returns the iteration numbers that bailed, in order.
func (j *Journal) BailedIterations(ctx context.Context, id string) ([]int64, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT iteration FROM iterations
		WHERE session_id = ? AND bailed = 1
		ORDER BY iteration ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("bailed iterations: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("bailed iterations: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
