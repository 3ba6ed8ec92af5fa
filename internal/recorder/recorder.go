// Package recorder receives per-test outcomes and reports on a run.
//
// Three backends share one lifecycle: Console only counts, DB persists the
// run as a new baseline, and Previewer compares the run against the last
// persisted baseline without writing anything.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/fatih/color"

	"github.com/roach88/rendertest/internal/term"
)

// ErrNoTests is returned by Report when nothing was recorded.
var ErrNoTests = errors.New("no tests found")

// Recorder receives lifecycle calls from the runner. Any error it returns
// is fatal to the run.
type Recorder interface {
	Start(ctx context.Context) error
	Record(ctx context.Context, testID, subtestID string, passed bool) error
	Report(ctx context.Context) error
	End(ctx context.Context) error
}

// SkipRecorder is implemented by recorders that track skipped tests
// separately. The runner records skipped tests as passed otherwise.
type SkipRecorder interface {
	RecordSkipped(ctx context.Context, testID, subtestID string) error
}

// Console counts outcomes and prints a one-line summary.
type Console struct {
	Out  io.Writer
	Term term.Colorer

	total   int
	passed  int
	skipped int
}

// NewConsole returns a Console writing to out.
func NewConsole(out io.Writer, colorer term.Colorer) *Console {
	if colorer == nil {
		colorer = term.New(false)
	}
	return &Console{Out: out, Term: colorer}
}

// Start implements Recorder.
func (c *Console) Start(ctx context.Context) error {
	c.total, c.passed, c.skipped = 0, 0, 0
	return nil
}

// Record implements Recorder.
func (c *Console) Record(ctx context.Context, testID, subtestID string, passed bool) error {
	c.total++
	if passed {
		c.passed++
	}
	return nil
}

// RecordSkipped implements SkipRecorder.
func (c *Console) RecordSkipped(ctx context.Context, testID, subtestID string) error {
	c.skipped++
	return nil
}

// Counts returns the number of recorded, passed and skipped tests. Skipped
// tests are not included in recorded.
func (c *Console) Counts() (total, passed, skipped int) {
	return c.total, c.passed, c.skipped
}

// Report implements Recorder. It prints
// "Passed N of M tests (P%)... ALL TESTS PASSED!" or "... K tests failed!".
func (c *Console) Report(ctx context.Context) error {
	if c.total == 0 && c.skipped == 0 {
		fmt.Fprintln(c.Out, "No tests found.")
		return ErrNoTests
	}
	if c.total > 0 {
		fmt.Fprintf(c.Out, "Passed %d of %d tests (%s%%)... ", c.passed, c.total, Percent(c.passed, c.total))
		if c.passed == c.total {
			fmt.Fprint(c.Out, c.Term.Paint("ALL TESTS PASSED!", color.FgGreen))
		} else {
			fmt.Fprint(c.Out, c.Term.Paint(fmt.Sprintf("%d tests failed!", c.total-c.passed), color.FgRed))
		}
		fmt.Fprintln(c.Out)
	}
	if c.skipped > 0 {
		fmt.Fprintf(c.Out, "Skipped %d tests.\n", c.skipped)
	}
	return nil
}

// End implements Recorder.
func (c *Console) End(ctx context.Context) error {
	return nil
}

// Percent formats part/total as a percentage rounded to two decimals,
// without trailing zeros.
func Percent(part, total int) string {
	if total == 0 {
		return "0"
	}
	p := math.Round(float64(part)*10000/float64(total)) / 100
	return strconv.FormatFloat(p, 'f', -1, 64)
}
