// Package compare decides whether rendered output matches the golden
// expectation and explains mismatches.
//
// Equality is exact: callers normalise both sides first. Everything else in
// this package (diffs, whitespace marking, well-formedness diagnostics) only
// enriches a failure report and never changes the verdict.
package compare

import (
	"github.com/acarl005/stripansi"

	"github.com/roach88/rendertest/internal/term"
)

// Options controls how failures are explained.
type Options struct {
	// MarkWhitespace replaces newline, space and tab with visible glyphs in
	// the diff display.
	MarkWhitespace bool

	// WordDiff renders an inline word diff instead of a unified line diff.
	WordDiff bool

	// CheckWellFormed parses the actual output as XML and reports the first
	// syntax error.
	CheckWellFormed bool

	// Context is the number of unchanged lines around each hunk.
	// Zero means 3.
	Context int
}

// Verdict is the outcome of one comparison.
type Verdict struct {
	Pass bool

	// Diff is the rendered difference; empty when Pass is true.
	Diff string

	// XMLError describes why the actual output is not well-formed, when the
	// check is enabled and fails.
	XMLError *XMLError
}

// PlainDiff returns Diff with terminal colour codes removed.
func (v Verdict) PlainDiff() string {
	return stripansi.Strip(v.Diff)
}

// Comparator compares expected and actual output.
type Comparator struct {
	opts Options
	term term.Colorer
}

// New creates a Comparator. A nil colorer disables colour.
func New(opts Options, colorer term.Colorer) *Comparator {
	if colorer == nil {
		colorer = term.New(false)
	}
	if opts.Context <= 0 {
		opts.Context = 3
	}
	return &Comparator{opts: opts, term: colorer}
}

// Equal reports whether the two texts are byte-identical.
func Equal(expected, actual string) bool {
	return expected == actual
}

// Compare returns Pass when expected and actual are identical and a failure
// report otherwise.
func (c *Comparator) Compare(expected, actual string) Verdict {
	if Equal(expected, actual) {
		return Verdict{Pass: true}
	}

	v := Verdict{Diff: c.Diff(expected, actual)}
	if c.opts.CheckWellFormed {
		v.XMLError = c.WellFormed(actual)
	}
	return v
}

// Diff renders the difference between expected and actual for display.
func (c *Comparator) Diff(expected, actual string) string {
	if c.opts.MarkWhitespace {
		expected = markWhitespace(expected)
		actual = markWhitespace(actual)
	}
	if c.opts.WordDiff {
		return c.wordDiff(expected, actual)
	}
	return c.unifiedDiff(expected, actual)
}
