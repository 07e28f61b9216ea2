package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

// SessionInfo describes a run being started.
type SessionInfo struct {
	Script           string
	UpdatesPerSecond int64
	BailThreshold    int64
}

// Session is a stored run.
type Session struct {
	ID               string     `json:"id"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at,omitempty"`
	Script           string     `json:"script"`
	UpdatesPerSecond int64      `json:"updates_per_second"`
	BailThreshold    int64      `json:"bail_threshold"`
	EndReason        string     `json:"end_reason,omitempty"`
}

// BeginSession records the start of a run and returns it with a fresh id.
func (j *Journal) BeginSession(ctx context.Context, info SessionInfo) (Session, error) {
	s := Session{
		ID:               j.ids.Generate(),
		StartedAt:        j.clock().UTC(),
		Script:           info.Script,
		UpdatesPerSecond: info.UpdatesPerSecond,
		BailThreshold:    info.BailThreshold,
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, script, updates_per_second, bail_threshold)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, formatTime(s.StartedAt), s.Script, s.UpdatesPerSecond, s.BailThreshold)
	if err != nil {
		return Session{}, fmt.Errorf("begin session: %w", err)
	}
	return s, nil
}

// EndSession stamps the end time and reason ("quit", "cancelled", "error").
func (j *Journal) EndSession(ctx context.Context, id, reason string) error {
	res, err := j.db.ExecContext(ctx, `
		UPDATE sessions SET ended_at = ?, end_reason = ? WHERE id = ?
	`, formatTime(j.clock().UTC()), reason, id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("end session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}

// GetSession reads one session.
func (j *Journal) GetSession(ctx context.Context, id string) (Session, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, started_at, ended_at, script, updates_per_second, bail_threshold, end_reason
		FROM sessions WHERE id = ?
	`, id)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("get session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (Session, error) {
	var (
		s       Session
		started string
		ended   sql.NullString
	)
	if err := r.Scan(&s.ID, &started, &ended, &s.Script, &s.UpdatesPerSecond, &s.BailThreshold, &s.EndReason); err != nil {
		return Session{}, err
	}

	t, err := parseTime(started)
	if err != nil {
		return Session{}, err
	}
	s.StartedAt = t
	if ended.Valid {
		e, err := parseTime(ended.String)
		if err != nil {
			return Session{}, err
		}
		s.EndedAt = &e
	}
	return s, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
