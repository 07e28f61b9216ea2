package journal

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/avhost/internal/scheduler"
)

// DefaultBatchSize is how many iterations a Recorder buffers per transaction.
const DefaultBatchSize = 120

// Recorder writes scheduler iteration reports to a session.
//
// It implements scheduler.Observer and so runs on the scheduler goroutine.
// Reports are buffered and flushed in one transaction per batch. A failed
// flush is logged, counted and dropped; pacing never waits on a retry.
type Recorder struct {
	journal   *Journal
	sessionID string
	batchSize int
	logger    *slog.Logger

	buf      []scheduler.IterationReport
	written  int
	failures int
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithBatchSize sets the flush threshold. Values below 1 flush every report.
func WithBatchSize(n int) RecorderOption {
	return func(r *Recorder) {
		if n < 1 {
			n = 1
		}
		r.batchSize = n
	}
}

// WithRecorderLogger sets the logger for flush failures.
func WithRecorderLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRecorder creates a Recorder for an existing session.
func (j *Journal) NewRecorder(sessionID string, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		journal:   j,
		sessionID: sessionID,
		batchSize: DefaultBatchSize,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.buf = make([]scheduler.IterationReport, 0, r.batchSize)
	return r
}

// ObserveIteration buffers a report and flushes when the batch is full.
func (r *Recorder) ObserveIteration(rep scheduler.IterationReport) {
	r.buf = append(r.buf, rep)
	if len(r.buf) < r.batchSize {
		return
	}
	if err := r.Flush(context.Background()); err != nil {
		r.logger.Error("journal flush failed",
			"session", r.sessionID,
			"dropped_reports", r.batchSize,
			"error", err,
		)
	}
}

// Flush writes buffered reports. The buffer is cleared even on failure.
func (r *Recorder) Flush(ctx context.Context) error {
	if len(r.buf) == 0 {
		return nil
	}
	batch := r.buf
	r.buf = r.buf[:0]

	if err := r.journal.writeIterations(ctx, r.sessionID, batch); err != nil {
		r.failures++
		return err
	}
	r.written += len(batch)
	return nil
}

// Written returns how many reports reached the database.
func (r *Recorder) Written() int {
	return r.written
}

// Failures returns how many flushes failed.
func (r *Recorder) Failures() int {
	return r.failures
}

func (j *Journal) writeIterations(ctx context.Context, sessionID string, batch []scheduler.IterationReport) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write iterations: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO iterations
		(session_id, iteration, updates, idles, sleeps, bailed, dropped, updated, elapsed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write iterations: prepare: %w", err)
	}
	defer stmt.Close()

	for _, rep := range batch {
		bailed := 0
		if rep.Bailed {
			bailed = 1
		}
		if _, err := stmt.ExecContext(ctx,
			sessionID,
			int64(rep.Iteration),
			rep.Updates,
			rep.Idles,
			rep.Sleeps,
			bailed,
			rep.Dropped,
			rep.Updated,
			rep.Elapsed,
		); err != nil {
			return fmt.Errorf("write iteration %d: %w", rep.Iteration, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write iterations: commit: %w", err)
	}
	return nil
}
