// Package render defines the contract between the harness and the
// text-rendering engine under test.
//
// The harness never interprets markup itself. It hands an engine the input
// text, a page title and an Options bundle, and receives either plain text or
// a Document for the full-render path.
package render

import (
	"context"
	"strings"
)

// Options is everything an engine needs to render one test case.
type Options struct {
	Language string `json:"language"`
	Variant  string `json:"variant,omitempty"`

	// Tidy asks the engine to run its output through the tidy post-processor.
	Tidy bool `json:"tidy,omitempty"`

	// Settings are the effective engine settings after defaults, option
	// derived values and config overrides.
	Settings map[string]any `json:"settings,omitempty"`

	// Flags are the raw test options, for engine-specific directives the
	// harness does not interpret.
	Flags map[string]any `json:"flags,omitempty"`

	// Articles are the fixture pages available to the engine, keyed by title.
	Articles map[string]string `json:"articles,omitempty"`
}

// Indicator is a page status indicator.
type Indicator struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Category is a category link attached to rendered output.
type Category struct {
	Name    string `json:"name"`
	SortKey string `json:"sortKey,omitempty"`
	// Link is the rendered link text.
	Link   string `json:"link"`
	Hidden bool   `json:"hidden,omitempty"`
}

// Document is the structured result of a full render.
type Document struct {
	Body          string      `json:"text"`
	TOC           string      `json:"toc,omitempty"`
	TOCEnabled    bool        `json:"-"`
	Title         string      `json:"title,omitempty"`
	Indicators    []Indicator `json:"indicators,omitempty"`
	LanguageLinks []string    `json:"languageLinks,omitempty"`
	Categories    []Category  `json:"categories,omitempty"`
}

// NewDocument returns a document with the table of contents enabled.
func NewDocument(body string) *Document {
	return &Document{Body: body, TOCEnabled: true}
}

// SetTOCEnabled toggles whether Text includes the table of contents.
func (d *Document) SetTOCEnabled(enabled bool) {
	d.TOCEnabled = enabled
}

// Text returns the rendered body, preceded by the table of contents when one
// exists and is enabled.
func (d *Document) Text() string {
	if d.TOCEnabled && d.TOC != "" {
		return d.TOC + d.Body
	}
	return d.Body
}

// TitleText returns the display title override, if the engine set one.
func (d *Document) TitleText() string {
	return d.Title
}

// VisibleCategoryLinks returns the link text of categories that are not
// hidden, in engine order.
func (d *Document) VisibleCategoryLinks() []string {
	var links []string
	for _, c := range d.Categories {
		if !c.Hidden {
			links = append(links, c.Link)
		}
	}
	return links
}

// Engine renders text. Every method corresponds to one output mode.
type Engine interface {
	Parse(ctx context.Context, input, title string, opts Options) (*Document, error)
	PreSaveTransform(ctx context.Context, input, title, user string, opts Options) (string, error)
	TransformMessage(ctx context.Context, input, title string, opts Options) (string, error)
	GetSection(ctx context.Context, input, section string) (string, error)
	ReplaceSection(ctx context.Context, input, section, text string) (string, error)
	PreloadText(ctx context.Context, input, title string, opts Options) (string, error)
	FormatComment(ctx context.Context, input, title string, local bool) (string, error)
}

// Hook kinds, matching the fixture file sections that declare them.
const (
	TagHook         = "hooks"
	FunctionHook    = "functionhooks"
	TransparentHook = "transparenthooks"
)

// HookSet lists the extension hooks an engine provides, by kind.
type HookSet map[string][]string

// Has reports whether the set contains name under kind. Names compare
// case-insensitively.
func (h HookSet) Has(kind, name string) bool {
	for _, n := range h[kind] {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// HookProvider is implemented by engines that can report their hooks.
type HookProvider interface {
	Hooks(ctx context.Context) (HookSet, error)
}
