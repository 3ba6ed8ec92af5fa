package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rendertest/internal/directive"
)

func TestSelectMode(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Mode
	}{
		{"default", "", FullRender{}},
		{"pst", "pst", PreSaveTransform{}},
		{"msg", "msg", MessageTransform{}},
		{"section", "section=2", Section{ID: "2"}},
		{"replace", `replace=1,"new text"`, ReplaceSection{ID: "1", Text: "new text"}},
		{"comment", "comment", Comment{}},
		{"local comment", "comment local", Comment{Local: true}},
		{"preload", "preload", Preload{}},
		{"pst beats msg", "msg pst", PreSaveTransform{}},
		{"msg beats section", "section=1 msg", MessageTransform{}},
		{"section beats replace", "replace=1,x section=T-2", Section{ID: "T-2"}},
		{"replace beats comment", "comment replace=0,x", ReplaceSection{ID: "0", Text: "x"}},
		{"comment beats preload", "preload comment", Comment{}},
		{"full render options", "notoc tidy showtitle showindicators", FullRender{NoTOC: true, Tidy: true, ShowTitle: true, ShowIndicators: true}},
		{"language links", "ill", FullRender{Extract: ExtractLanguageLinks}},
		{"categories", "cat", FullRender{Extract: ExtractCategories}},
		{"ill beats cat", "cat ill", FullRender{Extract: ExtractLanguageLinks}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SelectMode(directive.Parse(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectModeErrors(t *testing.T) {
	for _, raw := range []string{"section", "section=1,2", "replace=1", "replace", "replace=1,2,3", "replace={\"a\":1},x"} {
		t.Run(raw, func(t *testing.T) {
			_, err := SelectMode(directive.Parse(raw))
			assert.Error(t, err)
		})
	}
}

func TestSelectModeIsPure(t *testing.T) {
	opts := directive.Parse("section=3 notoc")
	first, err := SelectMode(opts)
	require.NoError(t, err)
	second, err := SelectMode(opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, directive.Parse("section=3 notoc"), opts)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "full render", FullRender{}.String())
	assert.Equal(t, "replace section", ReplaceSection{}.String())
	assert.Equal(t, "invoking", Invoking.String())
	assert.Equal(t, "skipped", Skipped.String())
}

func TestStatusText(t *testing.T) {
	text, err := Failed.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "failed", string(text))

	var s Status
	require.NoError(t, s.UnmarshalText([]byte("skipped")))
	assert.Equal(t, Skipped, s)
	assert.Error(t, s.UnmarshalText([]byte("bogus")))
}
