package compare

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rendertest/internal/normalize"
	"github.com/roach88/rendertest/internal/term"
)

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestComparePassOnIdentical(t *testing.T) {
	v := New(Options{}, nil).Compare("<p>Hi</p>", "<p>Hi</p>")
	assert.True(t, v.Pass)
	assert.Empty(t, v.Diff)
	assert.Nil(t, v.XMLError)
}

func TestCompareOneLineDiff(t *testing.T) {
	v := New(Options{}, nil).Compare("<p>A</p>", "<p>B</p>")

	require.False(t, v.Pass)
	newGoldie(t).Assert(t, "one_line_diff", []byte(v.Diff))
}

func TestCompareDiffKeepsContext(t *testing.T) {
	v := New(Options{}, nil).Compare("<ul>\n<li>one</li>\n</ul>", "<ul>\n<li>two</li>\n</ul>")

	require.False(t, v.Pass)
	newGoldie(t).Assert(t, "context_diff", []byte(v.Diff))
}

func TestCompareMissingTrailingNewline(t *testing.T) {
	v := New(Options{}, nil).Compare("<p>Hi</p>\n", "<p>Hi</p>")

	require.False(t, v.Pass)
	newGoldie(t).Assert(t, "missing_trailing_newline", []byte(v.Diff))
}

func TestCompareAfterTrimWhitespace(t *testing.T) {
	p := normalize.Pipeline{normalize.TrimWhitespace}
	v := New(Options{}, nil).Compare(p.Apply("<p>Hi</p>\n"), p.Apply("<p>Hi</p>"))
	assert.True(t, v.Pass)
}

func TestColoredDiff(t *testing.T) {
	v := New(Options{}, term.New(true)).Compare("<p>A</p>", "<p>B</p>")

	require.False(t, v.Pass)
	assert.Contains(t, v.Diff, "\x1b[34m-<p>A</p>")
	assert.Contains(t, v.Diff, "\x1b[31m+<p>B</p>")
	assert.Equal(t, "--- expected\n+++ actual\n@@ -1 +1 @@\n-<p>A</p>\n+<p>B</p>\n", v.PlainDiff())
}

func TestMarkWhitespace(t *testing.T) {
	v := New(Options{MarkWhitespace: true}, nil).Compare("a b", "a  b")

	require.False(t, v.Pass)
	assert.Contains(t, v.Diff, "-a·b")
	assert.Contains(t, v.Diff, "+a··b")
}

func TestMarkWhitespaceGlyphs(t *testing.T) {
	assert.Equal(t, "a·b→c¶", markWhitespace("a b\tc\n"))
}

func TestWordDiff(t *testing.T) {
	v := New(Options{WordDiff: true}, nil).Compare("the quick fox", "the slow fox")

	require.False(t, v.Pass)
	assert.Equal(t, "the [-quick-]{+slow+} fox\n", v.Diff)
}

func TestWellFormedAcceptsHTMLEntities(t *testing.T) {
	c := New(Options{}, nil)
	assert.Nil(t, c.WellFormed("<p>a&nbsp;b</p>"))
	assert.Nil(t, c.WellFormed(""))
}

func TestWellFormedReportsMismatchedTag(t *testing.T) {
	text := "<p>some text</b>"
	xerr := New(Options{}, nil).WellFormed(text)

	require.NotNil(t, xerr)
	assert.NotEmpty(t, xerr.Message)
	assert.GreaterOrEqual(t, xerr.Offset, 0)
	assert.LessOrEqual(t, xerr.Offset, len(text))
	assert.True(t, strings.HasPrefix(xerr.Fragment, "..."))
	assert.Contains(t, xerr.Fragment, "^")
	assert.Contains(t, xerr.Error(), " at byte ")
}

func TestCompareChecksWellFormedOnFailure(t *testing.T) {
	c := New(Options{CheckWellFormed: true}, nil)

	v := c.Compare("<p>a</p>", "<p>a")
	require.False(t, v.Pass)
	assert.NotNil(t, v.XMLError)

	v = c.Compare("<p>a</p>", "<p>b</p>")
	require.False(t, v.Pass)
	assert.Nil(t, v.XMLError)
}

func TestExtractFragment(t *testing.T) {
	c := New(Options{}, nil)
	text := "0123456789ABCDEFGHIJ\nrest"

	got := c.extractFragment(text, 12)

	assert.Equal(t, "...23456789ABCDEFGHIJ r...\n   "+strings.Repeat(" ", 10)+"^", got)
}

func TestExtractFragmentAtStart(t *testing.T) {
	got := New(Options{}, nil).extractFragment("<x", 0)
	assert.Equal(t, "...<x...\n   ^", got)
}
