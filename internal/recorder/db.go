package recorder

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/rendertest/internal/store"
)

// DB persists the run as a new baseline. The run is committed on End only
// if Report succeeded; an aborted run is rolled back.
type DB struct {
	*Console

	Store    *store.Store
	Version  string
	Platform string

	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string

	tx       *store.RunTx
	reported bool
}

// NewDB returns a DB recorder reporting to console.
func NewDB(s *store.Store, console *Console, version string) *DB {
	return &DB{
		Console:  console,
		Store:    s,
		Version:  version,
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		Now:      time.Now,
		NewID:    func() string { return uuid.New().String() },
	}
}

// Start implements Recorder.
func (d *DB) Start(ctx context.Context) error {
	if err := d.Console.Start(ctx); err != nil {
		return err
	}
	tx, err := d.Store.BeginRun(ctx, store.Run{
		ID:        d.NewID(),
		Version:   d.Version,
		Platform:  d.Platform,
		StartedAt: d.Now(),
	})
	if err != nil {
		return fmt.Errorf("start recording: %w", err)
	}
	d.tx = tx
	d.reported = false
	return nil
}

// Record implements Recorder.
func (d *DB) Record(ctx context.Context, testID, subtestID string, passed bool) error {
	if d.tx == nil {
		return errors.New("record: run not started")
	}
	if err := d.tx.WriteResult(ctx, testID, subtestID, passed); err != nil {
		return err
	}
	return d.Console.Record(ctx, testID, subtestID, passed)
}

// RecordSkipped stores a skipped test as passing so later comparisons do not
// report it as a regression.
func (d *DB) RecordSkipped(ctx context.Context, testID, subtestID string) error {
	if d.tx == nil {
		return errors.New("record: run not started")
	}
	if err := d.tx.WriteResult(ctx, testID, subtestID, true); err != nil {
		return err
	}
	return d.Console.RecordSkipped(ctx, testID, subtestID)
}

// Report implements Recorder.
func (d *DB) Report(ctx context.Context) error {
	if err := d.Console.Report(ctx); err != nil {
		return err
	}
	d.reported = true
	return nil
}

// End implements Recorder.
func (d *DB) End(ctx context.Context) error {
	if d.tx == nil {
		return nil
	}
	tx := d.tx
	d.tx = nil
	if !d.reported {
		return tx.Rollback()
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	fmt.Fprintf(d.Out, "Recorded run %s.\n", tx.Run().ID)
	return nil
}
