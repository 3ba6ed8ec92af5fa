package recorder

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/roach88/rendertest/internal/store"
)

// Change classifies how a test's outcome moved relative to the baseline.
type Change int

const (
	Fixed Change = iota
	Regression
	NewPassing
	NewFailing
	Removed
)

func (c Change) String() string {
	switch c {
	case Fixed:
		return "fixed"
	case Regression:
		return "regression"
	case NewPassing:
		return "new passing"
	case NewFailing:
		return "new failing"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("Change(%d)", int(c))
	}
}

// Delta is one changed test.
type Delta struct {
	Key    string
	Change Change
}

// Previewer compares the run against the latest persisted run. Nothing is
// written to the store.
type Previewer struct {
	*Console

	Store *store.Store

	baseline    *store.Run
	previous    map[string]bool
	current     map[string]bool
	currentKeys []string
}

// NewPreviewer returns a Previewer reporting to console.
func NewPreviewer(s *store.Store, console *Console) *Previewer {
	return &Previewer{Console: console, Store: s}
}

// Start implements Recorder. It loads the baseline.
func (p *Previewer) Start(ctx context.Context) error {
	if err := p.Console.Start(ctx); err != nil {
		return err
	}
	p.current = map[string]bool{}
	p.currentKeys = nil
	p.previous = map[string]bool{}
	p.baseline = nil

	run, err := p.Store.LatestRun(ctx)
	if errors.Is(err, store.ErrNoRuns) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load baseline: %w", err)
	}
	results, err := p.Store.Results(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("load baseline: %w", err)
	}
	for _, r := range results {
		p.previous[r.Key()] = r.Passed
	}
	p.baseline = &run
	return nil
}

// Record implements Recorder.
func (p *Previewer) Record(ctx context.Context, testID, subtestID string, passed bool) error {
	p.remember(testID, subtestID, passed)
	return p.Console.Record(ctx, testID, subtestID, passed)
}

// RecordSkipped keeps the baseline outcome for a skipped test, so skipping
// never shows up as a change.
func (p *Previewer) RecordSkipped(ctx context.Context, testID, subtestID string) error {
	key := store.Result{Name: testID, Subtest: subtestID}.Key()
	prev, ok := p.previous[key]
	if !ok {
		prev = true
	}
	p.remember(testID, subtestID, prev)
	return p.Console.RecordSkipped(ctx, testID, subtestID)
}

func (p *Previewer) remember(testID, subtestID string, passed bool) {
	key := store.Result{Name: testID, Subtest: subtestID}.Key()
	if _, seen := p.current[key]; !seen {
		p.currentKeys = append(p.currentKeys, key)
	}
	p.current[key] = passed
}

// Deltas returns every change against the baseline, grouped by kind and
// sorted by key within a group.
func (p *Previewer) Deltas() []Delta {
	var deltas []Delta
	for key, now := range p.current {
		before, existed := p.previous[key]
		switch {
		case !existed && now:
			deltas = append(deltas, Delta{Key: key, Change: NewPassing})
		case !existed:
			deltas = append(deltas, Delta{Key: key, Change: NewFailing})
		case !before && now:
			deltas = append(deltas, Delta{Key: key, Change: Fixed})
		case before && !now:
			deltas = append(deltas, Delta{Key: key, Change: Regression})
		}
	}
	for key := range p.previous {
		if _, ok := p.current[key]; !ok {
			deltas = append(deltas, Delta{Key: key, Change: Removed})
		}
	}
	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].Change != deltas[j].Change {
			return deltas[i].Change < deltas[j].Change
		}
		return deltas[i].Key < deltas[j].Key
	})
	return deltas
}

// Report implements Recorder. It prints the console summary followed by
// the change table.
func (p *Previewer) Report(ctx context.Context) error {
	if err := p.Console.Report(ctx); err != nil {
		return err
	}
	if p.baseline == nil {
		fmt.Fprintln(p.Out, "No previous run to compare against.")
		return nil
	}

	deltas := p.Deltas()
	if len(deltas) == 0 {
		fmt.Fprintf(p.Out, "No changes since run %s.\n", p.baseline.ID)
		return nil
	}

	// The heading is printed on its own; a table title wraps to the
	// table width.
	fmt.Fprintf(p.Out, "Changes since run %s (%s)\n", p.baseline.ID, p.baseline.Version)
	t := table.NewWriter()
	t.SetOutputMirror(p.Out)
	t.AppendHeader(table.Row{"Change", "Test"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Change", AutoMerge: true},
	})
	for _, d := range deltas {
		t.AppendRow(table.Row{d.Change.String(), d.Key})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}
