package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const runColumns = `id, bench, status, started_at, finished_at, total, passed, failed, error`

// ListRuns returns the most recent runs, newest first. A non-positive limit
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return r, err
}

// RunResults returns every record of a run in report order. Returns an
// empty slice (not nil) when the run has none.
func (s *Store) RunResults(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, kind, group_name, test_name, passed, detail, recorded_at
		FROM results
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var (
			rec      Record
			recorded string
		)
		if err := rows.Scan(&rec.RunID, &rec.Seq, &rec.Kind, &rec.Group, &rec.Test, &rec.Passed, &rec.Detail, &recorded); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if rec.RecordedAt, err = parseTime(recorded); err != nil {
			return nil, fmt.Errorf("scan result: recorded_at: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return records, nil
}

// RunConflicts returns the conflicts recorded for a run in insert order.
func (s *Store) RunConflicts(ctx context.Context, runID string) ([]Conflict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, resource, owner, existing, recorded_at
		FROM conflicts
		WHERE run_id = ?
		ORDER BY rowid ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query conflicts: %w", err)
	}
	defer rows.Close()

	conflicts := []Conflict{}
	for rows.Next() {
		var (
			c        Conflict
			recorded string
		)
		if err := rows.Scan(&c.RunID, &c.Resource, &c.Owner, &c.Existing, &recorded); err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		if c.RecordedAt, err = parseTime(recorded); err != nil {
			return nil, fmt.Errorf("scan conflict: recorded_at: %w", err)
		}
		conflicts = append(conflicts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conflicts: %w", err)
	}
	return conflicts, nil
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r        Run
		started  string
		finished sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Bench, &r.Status, &started, &finished, &r.Total, &r.Passed, &r.Failed, &r.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	t, err := parseTime(started)
	if err != nil {
		return Run{}, fmt.Errorf("scan run: started_at: %w", err)
	}
	r.StartedAt = t
	if finished.Valid {
		t, err := parseTime(finished.String)
		if err != nil {
			return Run{}, fmt.Errorf("scan run: finished_at: %w", err)
		}
		r.FinishedAt = &t
	}
	return r, nil
}
