// Package normalize applies named text transforms to rendered output before
// comparison. The same pipeline is always applied to both the expected and
// the actual text.
package normalize

import (
	"bytes"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// Transform is a pure text-to-text function.
type Transform func(string) string

// Transform names accepted in a pipeline.
const (
	RemoveTbody    = "removeTbody"
	TrimWhitespace = "trimWhitespace"
	NFC            = "nfc"
)

// step is either a DOM mutation or a plain text transform.
type step struct {
	dom  func(root *html.Node)
	text Transform
}

var registry = map[string]step{
	RemoveTbody:    {dom: removeTbody},
	TrimWhitespace: {dom: trimWhitespace},
	NFC:            {text: norm.NFC.String},
}

// Known returns the registered transform names in sorted order.
func Known() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pipeline is an ordered list of registered transform names.
type Pipeline []string

// NewPipeline builds a pipeline from names. Unknown names are logged as a
// warning and dropped.
func NewPipeline(names []string, logger *slog.Logger) Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	var p Pipeline
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := registry[name]; !ok {
			logger.Warn("unknown normalization option", "name", name, "known", Known())
			continue
		}
		p = append(p, name)
	}
	return p
}

// ParsePipeline builds a pipeline from a comma-separated list such as
// "removeTbody,trimWhitespace".
func ParsePipeline(list string, logger *slog.Logger) Pipeline {
	if list == "" {
		return nil
	}
	return NewPipeline(strings.Split(list, ","), logger)
}

// Apply runs text through every transform. Names are assumed valid;
// anything unregistered is ignored.
//
// All DOM transforms run in pipeline order on a single parsed tree, which is
// rendered once; reparsing would let the HTML parser reinsert implied
// elements such as tbody. Text transforms then run in pipeline order on the
// rendered result.
func (p Pipeline) Apply(text string) string {
	var mutations []func(*html.Node)
	var texts []Transform
	for _, name := range p {
		st, ok := registry[name]
		switch {
		case !ok:
		case st.dom != nil:
			mutations = append(mutations, st.dom)
		default:
			texts = append(texts, st.text)
		}
	}
	if len(mutations) > 0 {
		text = applyDOM(text, mutations)
	}
	for _, fn := range texts {
		text = fn(text)
	}
	return text
}

// applyDOM parses text as an HTML body fragment, runs the mutations on the
// one tree and serialises it back. Text that cannot be parsed is returned
// unchanged.
func applyDOM(text string, mutations []func(*html.Node)) string {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(text), body)
	if err != nil {
		return text
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	for _, mutate := range mutations {
		mutate(body)
	}

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return text
		}
	}
	return buf.String()
}

// removeTbody unwraps every tbody element, keeping its children in place.
func removeTbody(root *html.Node) {
	for _, tbody := range collect(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == atom.Tbody
	}) {
		parent := tbody.Parent
		for c := tbody.FirstChild; c != nil; c = tbody.FirstChild {
			tbody.RemoveChild(c)
			parent.InsertBefore(c, tbody)
		}
		parent.RemoveChild(tbody)
	}
}

// trimWhitespace trims every text node and drops the ones left empty. Inside
// pre only a single leading newline is removed.
func trimWhitespace(root *html.Node) {
	for _, text := range collect(root, func(n *html.Node) bool {
		return n.Type == html.TextNode
	}) {
		if text.Parent != nil && text.Parent.Type == html.ElementNode && text.Parent.DataAtom == atom.Pre {
			text.Data = strings.TrimPrefix(text.Data, "\n")
		} else {
			text.Data = strings.Trim(text.Data, " \t\n\r\x00\x0b")
		}
		if text.Data == "" && text.Parent != nil {
			text.Parent.RemoveChild(text)
		}
	}
}

// collect returns the descendants of root matching pred in document order.
func collect(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if pred(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}
