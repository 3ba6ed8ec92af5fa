package env

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Override is one `name=expression` line of a test's config section, with
// the expression already evaluated.
type Override struct {
	Name  string
	Value any
}

// ConfigError reports a config line that could not be applied.
type ConfigError struct {
	Line    int
	Text    string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config line %d %q: %s", e.Line, e.Text, e.Message)
}

// ParseOverrides evaluates newline-separated `name=expression` lines. Each
// expression is a CUE expression; it must evaluate to a concrete value.
// Blank lines are ignored.
func ParseOverrides(raw string) ([]Override, error) {
	var out []Override
	cctx := cuecontext.New()

	for i, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, expr, ok := strings.Cut(line, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, &ConfigError{Line: i + 1, Text: line, Message: "expected name=expression"}
		}

		v := cctx.CompileString(strings.TrimSpace(expr))
		if err := v.Err(); err != nil {
			return nil, &ConfigError{Line: i + 1, Text: line, Message: err.Error()}
		}
		if err := v.Validate(cue.Concrete(true)); err != nil {
			return nil, &ConfigError{Line: i + 1, Text: line, Message: err.Error()}
		}

		var value any
		if err := v.Decode(&value); err != nil {
			return nil, &ConfigError{Line: i + 1, Text: line, Message: err.Error()}
		}
		out = append(out, Override{Name: name, Value: bytesToString(value)})
	}
	return out, nil
}

// bytesToString turns CUE bytes literals ('...') into strings, at any depth.
// Config sections quote strings with single quotes.
func bytesToString(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case []any:
		for i := range v {
			v[i] = bytesToString(v[i])
		}
	case map[string]any:
		for k := range v {
			v[k] = bytesToString(v[k])
		}
	}
	return v
}
