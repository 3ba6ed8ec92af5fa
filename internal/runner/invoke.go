package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/rendertest/internal/env"
)

// trailingSpace matches the characters a tidy post-processor may leave at
// the end of its output.
const trailingSpace = " \t\n\r\f\v"

// invoke calls the engine entry point for mode and returns its text. A panic
// inside an in-process engine becomes the case's error.
func (r *Runner) invoke(ctx context.Context, mode Mode, input, title string, rc *env.RunContext) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = "", fmt.Errorf("engine panicked: %v", p)
		}
	}()

	e := r.cfg.Engine
	opts := rc.Render

	switch m := mode.(type) {
	case PreSaveTransform:
		return e.PreSaveTransform(ctx, input, title, r.cfg.User, opts)
	case MessageTransform:
		return e.TransformMessage(ctx, input, title, opts)
	case Section:
		return e.GetSection(ctx, input, m.ID)
	case ReplaceSection:
		return e.ReplaceSection(ctx, input, m.ID, m.Text)
	case Comment:
		return e.FormatComment(ctx, input, title, m.Local)
	case Preload:
		return e.PreloadText(ctx, input, title, opts)
	case FullRender:
		return r.fullRender(ctx, m, input, title, rc)
	default:
		return "", fmt.Errorf("unsupported mode %T", mode)
	}
}

func (r *Runner) fullRender(ctx context.Context, m FullRender, input, title string, rc *env.RunContext) (string, error) {
	doc, err := r.cfg.Engine.Parse(ctx, input, title, rc.Render)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", fmt.Errorf("engine returned no document")
	}

	doc.SetTOCEnabled(!m.NoTOC)
	out := doc.Text()
	if m.Tidy {
		out = strings.TrimRight(out, trailingSpace)
	}

	if m.ShowTitle {
		if t := doc.TitleText(); t != "" {
			title = t
		}
		out = title + "\n" + out
	}

	if m.ShowIndicators {
		var b strings.Builder
		for _, ind := range doc.Indicators {
			b.WriteString(ind.ID + "=" + ind.Content + "\n")
		}
		out = b.String() + out
	}

	switch m.Extract {
	case ExtractLanguageLinks:
		out = strings.Join(doc.LanguageLinks, " ")
	case ExtractCategories:
		out = strings.Join(doc.VisibleCategoryLinks(), " ")
	}
	return out, nil
}
