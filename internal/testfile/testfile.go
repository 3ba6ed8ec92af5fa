// Package testfile reads golden-output fixture files.
//
// A fixture file is a sequence of blocks introduced by "!! name" lines:
//
//	!! test
//	Simple paragraph
//	!! options
//	notoc
//	!! input
//	Hello
//	!! result
//	<p>Hello
//	</p>
//	!! end
//
// Articles ("!! article" / "!! text" / "!! endarticle") register fixture
// pages, and "!! hooks", "!! functionhooks" and "!! transparenthooks"
// declare the engine hooks the file depends on. Text outside a block is
// ignored. Every section body loses exactly one trailing newline.
package testfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/roach88/rendertest/internal/runner"
)

// resultSections lists the sections that may hold the expected output,
// most preferred first.
var resultSections = []string{"html/php", "html", "result", "html/*"}

// tidySection holds an alternative expectation checked with the tidy option.
const tidySection = "html/php+tidy"

// SyntaxError reports a malformed fixture file.
type SyntaxError struct {
	File    string
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// Read parses the fixture file at path.
func Read(path string) (*runner.Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture file: %w", err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads a fixture file from r. name labels the suite and error
// positions.
func Parse(r io.Reader, name string) (*runner.Suite, error) {
	p := &parser{
		name:  name,
		suite: &runner.Suite{Name: name},
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		p.line++
		if err := p.feed(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if p.block != "" {
		return nil, p.errorf(p.start, "unterminated %q block", p.block)
	}
	return p.suite, nil
}

type parser struct {
	name  string
	suite *runner.Suite
	line  int

	// block is the kind of the open block ("test", "article", a hooks kind)
	// or "" between blocks.
	block string
	start int

	// section is the section currently collecting lines.
	section  string
	sections map[string]*strings.Builder
	order    []string
}

func (p *parser) errorf(line int, format string, args ...any) error {
	return &SyntaxError{File: p.name, Line: line, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) feed(line string) error {
	if !strings.HasPrefix(line, "!!") {
		if p.section != "" {
			b := p.sections[p.section]
			b.WriteString(line)
			b.WriteByte('\n')
		}
		return nil
	}

	header := strings.Fields(strings.TrimPrefix(line, "!!"))
	if len(header) == 0 {
		return p.errorf(p.line, "empty section header")
	}
	name := strings.ToLower(header[0])
	args := header[1:]

	switch name {
	case "version":
		return nil
	case "test", "article", "hooks", "functionhooks", "transparenthooks":
		if p.block != "" {
			return p.errorf(p.line, "%q starts inside an unterminated %q block", name, p.block)
		}
		p.block = name
		p.start = p.line
		p.sections = map[string]*strings.Builder{}
		p.order = nil
		p.open(name)
		return nil
	case "end":
		return p.closeBlock("test", p.endTest)
	case "endarticle":
		return p.closeBlock("article", func() error { return p.endArticle(args) })
	case "endhooks", "endfunctionhooks", "endtransparenthooks":
		return p.closeBlock(strings.TrimPrefix(name, "end"), p.endHooks)
	}

	if p.block == "" {
		return p.errorf(p.line, "section %q outside of a block", name)
	}
	if _, dup := p.sections[name]; dup {
		return p.errorf(p.line, "duplicate section %q", name)
	}
	p.open(name)
	return nil
}

func (p *parser) open(section string) {
	p.section = section
	p.sections[section] = &strings.Builder{}
	p.order = append(p.order, section)
}

func (p *parser) closeBlock(kind string, finish func() error) error {
	if p.block != kind {
		if p.block == "" {
			return p.errorf(p.line, "end of %q block without a start", kind)
		}
		return p.errorf(p.line, "end of %q block inside a %q block", kind, p.block)
	}
	if err := finish(); err != nil {
		return err
	}
	p.block, p.section, p.sections, p.order = "", "", nil, nil
	return nil
}

// text returns the chomped body of a section.
func (p *parser) text(section string) (string, bool) {
	b, ok := p.sections[section]
	if !ok {
		return "", false
	}
	return chomp(b.String()), true
}

func (p *parser) require(section string) (string, error) {
	s, ok := p.text(section)
	if !ok {
		return "", p.errorf(p.start, "%q block has no %q section", p.block, section)
	}
	return s, nil
}

func (p *parser) endTest() error {
	desc, _ := p.text("test")
	input, err := p.require("input")
	if err != nil {
		return err
	}

	expected, ok := "", false
	for _, name := range resultSections {
		if expected, ok = p.text(name); ok {
			break
		}
	}
	if !ok {
		if !p.hasOtherResult() {
			return p.errorf(p.start, "test %q has no result section", strings.TrimSpace(desc))
		}
		// Only results for other engines, nothing to check here.
		return nil
	}

	options, _ := p.text("options")
	config, _ := p.text("config")
	tc := runner.TestCase{
		Description: strings.TrimSpace(desc),
		Input:       input,
		Expected:    expected,
		RawOptions:  options,
		RawConfig:   config,
		Source:      fmt.Sprintf("%s:%d", p.name, p.start),
	}
	p.suite.Cases = append(p.suite.Cases, tc)

	if tidy, ok := p.text(tidySection); ok {
		tc.Expected = tidy
		tc.RawOptions = strings.TrimSpace(options + " tidy")
		tc.Subtest = "tidy"
		p.suite.Cases = append(p.suite.Cases, tc)
	}
	return nil
}

func (p *parser) hasOtherResult() bool {
	for _, name := range p.order {
		if strings.HasPrefix(name, "html/") && name != tidySection {
			return true
		}
	}
	return false
}

func (p *parser) endArticle(args []string) error {
	title, _ := p.text("article")
	text, err := p.require("text")
	if err != nil {
		return err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return p.errorf(p.start, "article without a title")
	}

	ignore := false
	for _, a := range args {
		if strings.EqualFold(a, "ignoreduplicate") {
			ignore = true
		}
	}
	p.suite.Articles = append(p.suite.Articles, runner.Article{
		Title:           title,
		Text:            text,
		IgnoreDuplicate: ignore,
		Source:          fmt.Sprintf("%s:%d", p.name, p.start),
	})
	return nil
}

func (p *parser) endHooks() error {
	body, _ := p.text(p.block)
	names := strings.Fields(body)
	switch p.block {
	case "hooks":
		p.suite.Hooks = append(p.suite.Hooks, names...)
	case "functionhooks":
		p.suite.FunctionHooks = append(p.suite.FunctionHooks, names...)
	case "transparenthooks":
		p.suite.TransparentHooks = append(p.suite.TransparentHooks, names...)
	}
	return nil
}

// chomp removes one trailing newline.
func chomp(s string) string {
	return strings.TrimSuffix(s, "\n")
}
