package compare

import (
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var whitespaceMarks = strings.NewReplacer(
	"\n", "¶",
	" ", "·",
	"\t", "→",
)

// markWhitespace substitutes visible glyphs for newline, space and tab.
func markWhitespace(s string) string {
	return whitespaceMarks.Replace(s)
}

// unifiedDiff produces a unified line diff labelled expected/actual. SplitLines
// terminates the last line, so each side reads as if dumped to a file.
func (c *Comparator) unifiedDiff(expected, actual string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  c.opts.Context,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return err.Error()
	}
	return c.colorDiff(text)
}

// colorDiff paints removed lines blue and added lines red.
func (c *Comparator) colorDiff(text string) string {
	if !c.term.Enabled() {
		return text
	}
	lines := strings.SplitAfter(text, "\n")
	for i, line := range lines {
		body := strings.TrimSuffix(line, "\n")
		nl := line[len(body):]
		switch {
		case strings.HasPrefix(body, "-"):
			lines[i] = c.term.Paint(body, color.FgBlue) + nl
		case strings.HasPrefix(body, "+"):
			lines[i] = c.term.Paint(body, color.FgRed) + nl
		}
	}
	return strings.Join(lines, "")
}

// wordDiff renders an inline diff with [-removed-] and {+added+} markers.
func (c *Comparator) wordDiff(expected, actual string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(expected, actual, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString(c.term.Paint("[-"+d.Text+"-]", color.FgRed))
		case diffmatchpatch.DiffInsert:
			b.WriteString(c.term.Paint("{+"+d.Text+"+}", color.FgGreen))
		default:
			b.WriteString(d.Text)
		}
	}
	b.WriteString("\n")
	return b.String()
}
