package store

import (
	"context"
	"database/sql"
	"fmt"
)

// BeginRun inserts run with status running. Counters and FinishedAt are
// ignored.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, bench, status, started_at)
		VALUES (?, ?, ?, ?)
	`,
		run.ID,
		run.Bench,
		StatusRunning,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// WriteResult appends rec to its run and returns the assigned seq. The
// RunID must belong to a run started with BeginRun.
func (s *Store) WriteResult(ctx context.Context, rec Record) (int64, error) {
	if rec.Kind != KindResult && rec.Kind != KindInfo {
		return 0, fmt.Errorf("write result: unknown kind %q", rec.Kind)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("write result: begin tx: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM results WHERE run_id = ?`,
		rec.RunID,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("write result: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO results
		(run_id, seq, kind, group_name, test_name, passed, detail, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RunID,
		seq,
		rec.Kind,
		rec.Group,
		rec.Test,
		rec.Passed && rec.Kind == KindResult,
		rec.Detail,
		formatTime(rec.RecordedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("write result: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("write result: commit: %w", err)
	}
	return seq, nil
}

// WriteConflict records a resource conflict against its run.
func (s *Store) WriteConflict(ctx context.Context, c Conflict) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conflicts (run_id, resource, owner, existing, recorded_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		c.RunID,
		c.Resource,
		c.Owner,
		c.Existing,
		formatTime(c.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("write conflict: %w", err)
	}
	return nil
}

// FinishRun stores the final status, counters, finish time and error of
// run. It returns ErrRunNotFound when no run has run.ID.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	var finished sql.NullString
	if run.FinishedAt != nil {
		finished = sql.NullString{String: formatTime(*run.FinishedAt), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, finished_at = ?, total = ?, passed = ?, failed = ?, error = ?
		WHERE id = ?
	`,
		run.Status,
		finished,
		run.Total,
		run.Passed,
		run.Failed,
		run.Error,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", run.ID, ErrRunNotFound)
	}
	return nil
}
