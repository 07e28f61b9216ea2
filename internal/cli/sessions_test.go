package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/avhost/internal/journal"
	"github.com/roach88/avhost/internal/scheduler"
)

// seedJournal writes one finished session with 1,500 updates.
func seedJournal(t *testing.T) (string, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pacing.db")
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	jr, err := journal.Open(path,
		journal.WithIDGenerator(journal.NewFixedGenerator("session-one")),
		journal.WithWallClock(func() time.Time { return start }),
	)
	require.NoError(t, err)
	defer jr.Close()

	ctx := context.Background()
	s, err := jr.BeginSession(ctx, journal.SessionInfo{Script: "/games/main.lua", UpdatesPerSecond: 120, BailThreshold: 40})
	require.NoError(t, err)

	rec := jr.NewRecorder(s.ID)
	rec.ObserveIteration(scheduler.IterationReport{Iteration: 1, Updates: 1000, Updated: 1000})
	rec.ObserveIteration(scheduler.IterationReport{Iteration: 2, Updates: 500, Bailed: true, Dropped: 7, Updated: 1507})
	require.NoError(t, rec.Flush(ctx))
	require.NoError(t, jr.EndSession(ctx, s.ID, "quit"))
	return path, s.ID
}

func TestSessions_List(t *testing.T) {
	path, id := seedJournal(t)

	out, err := executeRoot(t, "sessions", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "/games/main.lua")
	assert.Contains(t, out, "quit")
	assert.Contains(t, out, "1 session(s)")
}

func TestSessions_Summary(t *testing.T) {
	path, id := seedJournal(t)

	out, err := executeRoot(t, "sessions", "--db", path, id)
	require.NoError(t, err)
	assert.Contains(t, out, "Session "+id)
	assert.Contains(t, out, "1,500 (max 1,000 per frame)")
	assert.Contains(t, out, "bails:         1 (7 ticks dropped)")
	assert.Contains(t, out, "last tick:     1,507")
}

func TestSessions_SummaryJSON(t *testing.T) {
	path, id := seedJournal(t)

	out, err := executeRoot(t, "sessions", "--db", path, "--format", "json", id)
	require.NoError(t, err)

	var resp struct {
		Status string          `json:"status"`
		Data   journal.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, int64(1500), resp.Data.Updates)
	assert.Equal(t, int64(7), resp.Data.DroppedTicks)
}

func TestSessions_UnknownSession(t *testing.T) {
	path, _ := seedJournal(t)

	_, err := executeRoot(t, "sessions", "--db", path, "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSessions_MissingDatabase(t *testing.T) {
	_, err := executeRoot(t, "sessions", "--db", filepath.Join(t.TempDir(), "absent.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "journal not found")
}
