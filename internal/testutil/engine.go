package testutil

import (
	"context"

	"github.com/roach88/rendertest/internal/render"
)

// Call records one invocation of a StubEngine.
type Call struct {
	Op      string
	Input   string
	Title   string
	User    string
	Section string
	Text    string
	Local   bool
	Options render.Options
}

// StubEngine is a scripted render engine.
//
// Parse returns Documents[input] when present, else a document whose body is
// Respond's answer. Every other entry point returns Respond's answer.
// Errors[input] makes any call with that input fail.
type StubEngine struct {
	Documents map[string]*render.Document
	Errors    map[string]error
	Respond   func(c Call) (string, error)

	HookSet  render.HookSet
	HooksErr error

	Calls []Call
}

// NewStubEngine returns an engine that echoes its input.
func NewStubEngine() *StubEngine {
	return &StubEngine{
		Documents: map[string]*render.Document{},
		Errors:    map[string]error{},
	}
}

// Ops returns the operation of every call, in order.
func (e *StubEngine) Ops() []string {
	ops := make([]string, len(e.Calls))
	for i, c := range e.Calls {
		ops[i] = c.Op
	}
	return ops
}

func (e *StubEngine) answer(c Call) (string, error) {
	e.Calls = append(e.Calls, c)
	if err := e.Errors[c.Input]; err != nil {
		return "", err
	}
	if e.Respond != nil {
		return e.Respond(c)
	}
	return c.Input, nil
}

// Parse implements render.Engine.
func (e *StubEngine) Parse(ctx context.Context, input, title string, opts render.Options) (*render.Document, error) {
	body, err := e.answer(Call{Op: render.OpParse, Input: input, Title: title, Options: opts})
	if err != nil {
		return nil, err
	}
	if doc, ok := e.Documents[input]; ok {
		cp := *doc
		cp.TOCEnabled = true
		return &cp, nil
	}
	return render.NewDocument(body), nil
}

// PreSaveTransform implements render.Engine.
func (e *StubEngine) PreSaveTransform(ctx context.Context, input, title, user string, opts render.Options) (string, error) {
	return e.answer(Call{Op: render.OpPreSaveTransform, Input: input, Title: title, User: user, Options: opts})
}

// TransformMessage implements render.Engine.
func (e *StubEngine) TransformMessage(ctx context.Context, input, title string, opts render.Options) (string, error) {
	return e.answer(Call{Op: render.OpTransformMessage, Input: input, Title: title, Options: opts})
}

// GetSection implements render.Engine.
func (e *StubEngine) GetSection(ctx context.Context, input, section string) (string, error) {
	return e.answer(Call{Op: render.OpGetSection, Input: input, Section: section})
}

// ReplaceSection implements render.Engine.
func (e *StubEngine) ReplaceSection(ctx context.Context, input, section, text string) (string, error) {
	return e.answer(Call{Op: render.OpReplaceSection, Input: input, Section: section, Text: text})
}

// PreloadText implements render.Engine.
func (e *StubEngine) PreloadText(ctx context.Context, input, title string, opts render.Options) (string, error) {
	return e.answer(Call{Op: render.OpPreloadText, Input: input, Title: title, Options: opts})
}

// FormatComment implements render.Engine.
func (e *StubEngine) FormatComment(ctx context.Context, input, title string, local bool) (string, error) {
	return e.answer(Call{Op: render.OpFormatComment, Input: input, Title: title, Local: local})
}

// Hooks implements render.HookProvider.
func (e *StubEngine) Hooks(ctx context.Context) (render.HookSet, error) {
	return e.HookSet, e.HooksErr
}
