package compare

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const (
	wfPrefix = "<!DOCTYPE html><html>"
	wfSuffix = "</html>"

	fragmentBefore = 10
	fragmentAfter  = 9
)

// XMLError describes the first well-formedness error in rendered output.
type XMLError struct {
	Message string
	// Offset is the byte offset of the error within the checked text.
	Offset int
	// Fragment shows the bytes around Offset with a caret line below.
	Fragment string
}

func (e *XMLError) Error() string {
	return fmt.Sprintf("%s at byte %d:\n%s", e.Message, e.Offset, e.Fragment)
}

// WellFormed checks that text parses as the body of an HTML document written
// as XML. HTML named entities are accepted. It returns nil when the text is
// well-formed.
func (c *Comparator) WellFormed(text string) *XMLError {
	doc := wfPrefix + text + wfSuffix
	d := xml.NewDecoder(strings.NewReader(doc))
	d.Strict = true
	d.Entity = xml.HTMLEntity

	for {
		_, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err == nil {
			continue
		}

		offset := int(d.InputOffset()) - len(wfPrefix)
		offset = max(0, min(offset, len(text)))
		return &XMLError{
			Message:  xmlMessage(err),
			Offset:   offset,
			Fragment: c.extractFragment(text, offset),
		}
	}
}

func xmlMessage(err error) string {
	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		return syn.Msg
	}
	return err.Error()
}

// extractFragment shows the text around offset: ten bytes before, the
// offending byte highlighted, nine after. Newlines are flattened so the caret
// line below stays aligned.
func (c *Comparator) extractFragment(text string, offset int) string {
	start := max(0, offset-fragmentBefore)
	before := text[start:offset]

	var at, after string
	if offset < len(text) {
		at = text[offset : offset+1]
		end := min(len(text), offset+1+fragmentAfter)
		after = text[offset+1 : end]
	}

	flatten := func(s string) string {
		return strings.ReplaceAll(s, "\n", " ")
	}

	var b strings.Builder
	b.WriteString("...")
	b.WriteString(c.term.Paint(flatten(before), color.FgBlue))
	b.WriteString(c.term.Paint(flatten(at), color.Bold, color.FgRed))
	b.WriteString(c.term.Paint(flatten(after), color.FgBlue))
	b.WriteString("...\n")
	b.WriteString("   ")
	b.WriteString(strings.Repeat(" ", len(before)))
	b.WriteString(c.term.Paint("^", color.FgRed))
	return b.String()
}
