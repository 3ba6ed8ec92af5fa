package runner

import (
	"fmt"

	"github.com/roach88/rendertest/internal/directive"
)

// Mode selects how a test case invokes the engine. Exactly one mode applies
// to each case.
type Mode interface {
	fmt.Stringer
	mode()
}

// Extract picks what a full render returns instead of the body text.
type Extract int

const (
	ExtractBody Extract = iota
	ExtractLanguageLinks
	ExtractCategories
)

// FullRender parses the input and post-processes the document.
type FullRender struct {
	NoTOC          bool
	Tidy           bool
	ShowTitle      bool
	ShowIndicators bool
	Extract        Extract
}

// PreSaveTransform runs the pre-save transform.
type PreSaveTransform struct{}

// MessageTransform runs the message transform.
type MessageTransform struct{}

// Section extracts one section of the input.
type Section struct{ ID string }

// ReplaceSection replaces one section of the input with Text.
type ReplaceSection struct {
	ID   string
	Text string
}

// Comment formats the input as an edit summary.
type Comment struct{ Local bool }

// Preload returns the preload text of the input.
type Preload struct{}

func (FullRender) mode()       {}
func (PreSaveTransform) mode() {}
func (MessageTransform) mode() {}
func (Section) mode()          {}
func (ReplaceSection) mode()   {}
func (Comment) mode()          {}
func (Preload) mode()          {}

func (FullRender) String() string       { return "full render" }
func (PreSaveTransform) String() string { return "pre-save transform" }
func (MessageTransform) String() string { return "message transform" }
func (Section) String() string          { return "section" }
func (ReplaceSection) String() string   { return "replace section" }
func (Comment) String() string          { return "comment" }
func (Preload) String() string          { return "preload" }

// SelectMode picks the output mode from the test's options. The first
// present key wins, in the order pst, msg, section, replace, comment,
// preload; otherwise the case is a full render.
func SelectMode(opts directive.OptionSet) (Mode, error) {
	switch {
	case opts.Has("pst"):
		return PreSaveTransform{}, nil
	case opts.Has("msg"):
		return MessageTransform{}, nil
	case opts.Has("section"):
		v, _ := opts.Get("section")
		id, ok := v.(directive.String)
		if !ok {
			return nil, fmt.Errorf("option section: expected a single value")
		}
		return Section{ID: string(id)}, nil
	case opts.Has("replace"):
		vals := opts.Values("replace")
		if len(vals) != 2 {
			return nil, fmt.Errorf("option replace: expected section,text, got %d values", len(vals))
		}
		id, ok1 := vals[0].(directive.String)
		text, ok2 := vals[1].(directive.String)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("option replace: values must be strings")
		}
		return ReplaceSection{ID: string(id), Text: string(text)}, nil
	case opts.Has("comment"):
		return Comment{Local: opts.Has("local")}, nil
	case opts.Has("preload"):
		return Preload{}, nil
	}

	m := FullRender{
		NoTOC:          opts.Has("notoc"),
		Tidy:           opts.Has("tidy"),
		ShowTitle:      opts.Has("showtitle"),
		ShowIndicators: opts.Has("showindicators"),
	}
	switch {
	case opts.Has("ill"):
		m.Extract = ExtractLanguageLinks
	case opts.Has("cat"):
		m.Extract = ExtractCategories
	}
	return m, nil
}
