package env

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrDuplicateArticle is returned when a fixture title is registered twice.
var ErrDuplicateArticle = errors.New("duplicate article")

// ErrInvalidTitle is returned for titles that are empty after normalisation.
var ErrInvalidTitle = errors.New("invalid title")

// Fixtures is an in-memory page store keyed by normalised title.
type Fixtures struct {
	pages map[string]string
}

// NewFixtures returns an empty store.
func NewFixtures() *Fixtures {
	return &Fixtures{pages: map[string]string{}}
}

// NormalizeTitle canonicalises a page title: underscores become spaces,
// runs of spaces collapse, surrounding space is trimmed and the first
// letter is upper-cased.
func NormalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "_", " ")
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(r)) + title[size:]
}

// Add stores a page.
func (f *Fixtures) Add(title, text string, ignoreDuplicate bool) error {
	key := NormalizeTitle(title)
	if key == "" {
		return fmt.Errorf("%w %q", ErrInvalidTitle, title)
	}
	if _, exists := f.pages[key]; exists {
		if ignoreDuplicate {
			return nil
		}
		return fmt.Errorf("%w %q", ErrDuplicateArticle, title)
	}
	f.pages[key] = text
	return nil
}

// Get returns the text stored under title.
func (f *Fixtures) Get(title string) (string, bool) {
	text, ok := f.pages[NormalizeTitle(title)]
	return text, ok
}

// Titles returns all stored titles in sorted order.
func (f *Fixtures) Titles() []string {
	titles := make([]string, 0, len(f.pages))
	for t := range f.pages {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles
}

// All returns a copy of the store's contents.
func (f *Fixtures) All() map[string]string {
	out := make(map[string]string, len(f.pages))
	for k, v := range f.pages {
		out[k] = v
	}
	return out
}
