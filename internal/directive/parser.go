package directive

import (
	"encoding/json"
	"strings"
)

// Parse decodes a raw directive string into an OptionSet.
//
// The input is scanned left to right for non-overlapping key[=value,...]
// matches. Text between matches is ignored. Parse never fails and holds no
// state between calls.
func Parse(raw string) OptionSet {
	opts := OptionSet{}
	for i := 0; i < len(raw); {
		key, value, end, ok := matchOption(raw, i)
		if !ok {
			i++
			continue
		}
		opts[strings.ToLower(key)] = value
		i = end
	}
	return opts
}

// matchOption tries to match one option starting exactly at i.
// It returns the key, its value (after arity collapse) and the end offset.
func matchOption(s string, i int) (string, Value, int, bool) {
	if !isKeyChar(s[i]) || !atWordBoundary(s, i) {
		return "", nil, 0, false
	}

	// The key run is greedy but must end on a word boundary; a trailing run
	// of hyphens is given back.
	j := i
	for j < len(s) && isKeyChar(s[j]) {
		j++
	}
	for j > i && !atWordBoundary(s, j) {
		j--
	}
	if j == i {
		return "", nil, 0, false
	}
	key := s[i:j]

	values, end, ok := matchAssignment(s, j)
	if !ok {
		return key, Flag{}, j, true
	}
	return key, collapse(values), end, true
}

// matchAssignment matches \s*=\s*value(\s*,\s*value)* at offset i.
func matchAssignment(s string, i int) ([]Value, int, bool) {
	p := skipSpace(s, i)
	if p >= len(s) || s[p] != '=' {
		return nil, 0, false
	}
	p = skipSpace(s, p+1)

	first, end, ok := matchValue(s, p)
	if !ok {
		return nil, 0, false
	}
	values := []Value{first}

	for {
		q := skipSpace(s, end)
		if q >= len(s) || s[q] != ',' {
			break
		}
		start := skipSpace(s, q+1)
		v, next, ok := matchValue(s, start)
		if !ok {
			break
		}
		// A bare word followed by '=' is the next option's key.
		if isKeyChar(s[start]) && startsAssignment(s, next) {
			break
		}
		values = append(values, v)
		end = next
	}
	return values, end, true
}

func startsAssignment(s string, i int) bool {
	p := skipSpace(s, i)
	return p < len(s) && s[p] == '='
}

// matchValue matches one of the four value forms at offset i and returns the
// cleaned-up value and the offset just past it.
func matchValue(s string, i int) (Value, int, bool) {
	if i >= len(s) {
		return nil, 0, false
	}

	switch c := s[i]; {
	case c == '"':
		end, ok := matchQuoted(s, i)
		if !ok {
			return nil, 0, false
		}
		return String(stripCSlashes(s[i+1 : end-1])), end, true

	case strings.HasPrefix(s[i:], "[["):
		k := strings.IndexByte(s[i+2:], ']')
		if k < 0 || !strings.HasPrefix(s[i+2+k:], "]]") {
			return nil, 0, false
		}
		end := i + 2 + k + 2
		return String(s[i+2 : i+2+k]), end, true

	case isKeyChar(c):
		j := i
		for j < len(s) && isKeyChar(s[j]) {
			j++
		}
		return String(s[i:j]), j, true

	case c == '{':
		end, ok := matchBraces(s, i)
		if !ok {
			return nil, 0, false
		}
		return decodeObject(s[i:end]), end, true
	}

	return nil, 0, false
}

// matchQuoted matches "(?:[^\\"]|\\.)*" at offset i, where "." excludes a
// newline. It returns the offset just past the closing quote.
func matchQuoted(s string, i int) (int, bool) {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '"':
			return j + 1, true
		case '\\':
			if j+1 >= len(s) || s[j+1] == '\n' {
				return 0, false
			}
			j++
		}
	}
	return 0, false
}

// matchBraces isolates a balanced {...} span starting at offset i. Quoted
// strings inside the span may contain braces; nested spans recurse.
func matchBraces(s string, i int) (int, bool) {
	for j := i + 1; j < len(s); {
		switch s[j] {
		case '}':
			return j + 1, true
		case '"':
			end, ok := matchQuoted(s, j)
			if !ok {
				return 0, false
			}
			j = end
		case '{':
			end, ok := matchBraces(s, j)
			if !ok {
				return 0, false
			}
			j = end
		default:
			j++
		}
	}
	return 0, false
}

// decodeObject decodes an isolated brace span. A span that is not valid JSON
// yields an Object with nil Fields.
func decodeObject(span string) Object {
	var fields map[string]any
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return Object{}
	}
	return Object{Fields: fields}
}

// collapse applies arity-1 simplification uniformly to every value form.
func collapse(values []Value) Value {
	if len(values) == 1 {
		return values[0]
	}
	return List(values)
}

// stripCSlashes collapses C-style backslash escapes the way PHP's
// stripcslashes does: named escapes, \xHH, octal \NNN, and any other escaped
// character standing for itself.
func stripCSlashes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'a':
			b.WriteByte('\a')
		case 'v':
			b.WriteByte('\v')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'x':
			if i+1 < len(s) && isHexDigit(s[i+1]) {
				n := 0
				j := i + 1
				for ; j < len(s) && j < i+3 && isHexDigit(s[j]); j++ {
					n = n*16 + hexValue(s[j])
				}
				b.WriteByte(byte(n))
				i = j - 1
				continue
			}
			b.WriteByte('x')
		default:
			if isOctalDigit(s[i]) {
				n := 0
				j := i
				for ; j < len(s) && j < i+3 && isOctalDigit(s[j]); j++ {
					n = n*8 + int(s[j]-'0')
				}
				b.WriteByte(byte(n))
				i = j - 1
				continue
			}
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isWordChar(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isKeyChar(c byte) bool {
	return isWordChar(c) || c == '-'
}

// atWordBoundary reports whether offset i sits between a word and a non-word
// character (string edges count as non-word).
func atWordBoundary(s string, i int) bool {
	before := i > 0 && isWordChar(s[i-1])
	after := i < len(s) && isWordChar(s[i])
	return before != after
}

func skipSpace(s string, i int) int {
	for i < len(s) && strings.IndexByte(" \t\n\v\f\r", s[i]) >= 0 {
		i++
	}
	return i
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func hexValue(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	default:
		return int(c-'A') + 10
	}
}

func isOctalDigit(c byte) bool {
	return '0' <= c && c <= '7'
}
