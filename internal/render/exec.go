package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/google/shlex"
)

// Protocol operations sent to an external engine.
const (
	OpParse            = "parse"
	OpPreSaveTransform = "preSaveTransform"
	OpTransformMessage = "transformMessage"
	OpGetSection       = "getSection"
	OpReplaceSection   = "replaceSection"
	OpPreloadText      = "preloadText"
	OpFormatComment    = "formatComment"
	OpHooks            = "hooks"
)

// Request is one line of JSON written to the engine's stdin.
type Request struct {
	Op      string   `json:"op"`
	Input   string   `json:"input,omitempty"`
	Title   string   `json:"title,omitempty"`
	User    string   `json:"user,omitempty"`
	Section string   `json:"section,omitempty"`
	Text    string   `json:"text,omitempty"`
	Local   bool     `json:"local,omitempty"`
	Options *Options `json:"options,omitempty"`
}

// Response is the JSON document the engine writes to stdout.
type Response struct {
	Document
	Hooks HookSet `json:"hooks,omitempty"`
	Error string  `json:"error,omitempty"`
}

// EngineError is an error reported by the engine itself, as opposed to a
// failure to run it.
type EngineError struct {
	Op      string
	Message string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %s", e.Op, e.Message)
}

// ExecEngine drives an external program. Each call starts the program once,
// writes a single Request line and reads a single Response.
type ExecEngine struct {
	Path   string
	Args   []string
	Env    []string
	Logger *slog.Logger

	hooks HookSet
}

// NewExecEngine builds an engine from a shell-style command line such as
// "php engine.php --strict".
func NewExecEngine(command string, logger *slog.Logger) (*ExecEngine, error) {
	argv, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parse engine command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("engine command is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecEngine{Path: argv[0], Args: argv[1:], Logger: logger}, nil
}

func (e *ExecEngine) call(ctx context.Context, req Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", req.Op, err)
	}

	cmd := exec.CommandContext(ctx, e.Path, e.Args...)
	cmd.Env = e.Env
	cmd.Stdin = bytes.NewReader(append(payload, '\n'))
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if e.Logger != nil {
		e.Logger.Debug("engine call", "op", req.Op, "title", req.Title)
	}
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("run engine %s: %w: %s", req.Op, err, msg)
		}
		return nil, fmt.Errorf("run engine %s: %w", req.Op, err)
	}

	var resp Response
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", req.Op, err)
	}
	if resp.Error != "" {
		return nil, &EngineError{Op: req.Op, Message: resp.Error}
	}
	return &resp, nil
}

func (e *ExecEngine) text(ctx context.Context, req Request) (string, error) {
	resp, err := e.call(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Body, nil
}

// Parse implements Engine.
func (e *ExecEngine) Parse(ctx context.Context, input, title string, opts Options) (*Document, error) {
	resp, err := e.call(ctx, Request{Op: OpParse, Input: input, Title: title, Options: &opts})
	if err != nil {
		return nil, err
	}
	doc := resp.Document
	doc.TOCEnabled = true
	return &doc, nil
}

// PreSaveTransform implements Engine.
func (e *ExecEngine) PreSaveTransform(ctx context.Context, input, title, user string, opts Options) (string, error) {
	return e.text(ctx, Request{Op: OpPreSaveTransform, Input: input, Title: title, User: user, Options: &opts})
}

// TransformMessage implements Engine.
func (e *ExecEngine) TransformMessage(ctx context.Context, input, title string, opts Options) (string, error) {
	return e.text(ctx, Request{Op: OpTransformMessage, Input: input, Title: title, Options: &opts})
}

// GetSection implements Engine.
func (e *ExecEngine) GetSection(ctx context.Context, input, section string) (string, error) {
	return e.text(ctx, Request{Op: OpGetSection, Input: input, Section: section})
}

// ReplaceSection implements Engine.
func (e *ExecEngine) ReplaceSection(ctx context.Context, input, section, text string) (string, error) {
	return e.text(ctx, Request{Op: OpReplaceSection, Input: input, Section: section, Text: text})
}

// PreloadText implements Engine.
func (e *ExecEngine) PreloadText(ctx context.Context, input, title string, opts Options) (string, error) {
	return e.text(ctx, Request{Op: OpPreloadText, Input: input, Title: title, Options: &opts})
}

// FormatComment implements Engine.
func (e *ExecEngine) FormatComment(ctx context.Context, input, title string, local bool) (string, error) {
	return e.text(ctx, Request{Op: OpFormatComment, Input: input, Title: title, Local: local})
}

// Hooks implements HookProvider. The answer is cached for the lifetime of
// the engine.
func (e *ExecEngine) Hooks(ctx context.Context) (HookSet, error) {
	if e.hooks != nil {
		return e.hooks, nil
	}
	resp, err := e.call(ctx, Request{Op: OpHooks})
	if err != nil {
		return nil, err
	}
	e.hooks = resp.Hooks
	if e.hooks == nil {
		e.hooks = HookSet{}
	}
	return e.hooks, nil
}
