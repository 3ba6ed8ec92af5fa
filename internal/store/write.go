package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run describes one recorded test run.
type Run struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Version   string    `json:"version"`
	Platform  string    `json:"platform"`
	StartedAt time.Time `json:"started_at"`
}

// Result is the outcome of one test case within a run.
type Result struct {
	Name    string `json:"name"`
	Subtest string `json:"subtest,omitempty"`
	Passed  bool   `json:"passed"`
	Seq     int64  `json:"seq"`
}

// Key identifies a result across runs.
func (r Result) Key() string {
	if r.Subtest == "" {
		return r.Name
	}
	return r.Name + " [" + r.Subtest + "]"
}

// RunTx is an open run. Nothing it writes is visible until Commit.
type RunTx struct {
	tx  *sql.Tx
	run Run
	seq int64
}

// BeginRun starts a transaction and inserts the run row. The run's Seq is
// assigned here and is one greater than any existing run.
func (s *Store) BeginRun(ctx context.Context, run Run) (*RunTx, error) {
	if run.ID == "" {
		return nil, errors.New("begin run: empty run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&run.Seq); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("begin run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, seq, version, platform, started_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Version,
		run.Platform,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("begin run: %w", err)
	}

	return &RunTx{tx: tx, run: run}, nil
}

// Run returns the run being written.
func (t *RunTx) Run() Run {
	return t.run
}

// WriteResult appends one result. Writing the same name and subtest twice
// in a run is an error.
func (t *RunTx) WriteResult(ctx context.Context, name, subtest string, passed bool) error {
	t.seq++
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO results (run_id, name, subtest, passed, seq)
		VALUES (?, ?, ?, ?, ?)
	`,
		t.run.ID,
		name,
		subtest,
		boolToInt(passed),
		t.seq,
	)
	if err != nil {
		return fmt.Errorf("write result %q: %w", name, err)
	}
	return nil
}

// Commit makes the run and its results visible.
func (t *RunTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// Rollback discards the run. Calling it after Commit is a no-op.
func (t *RunTx) Rollback() error {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback run: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
