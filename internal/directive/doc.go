// Package directive parses the per-test option strings found in fixture files.
//
// A directive string is a loose sequence of keys, each optionally followed by
// "=" and one or more comma-separated values:
//
//	notoc
//	title="Foo Bar"
//	link=[[Foo Bar]]
//	replace=1,"new text"
//	config={"a": {"b": [1, 2]}}
//
// # Value Forms
//
// Four value forms are recognised:
//
//   - Quoted string: "..." with C-style escapes (\n, \t, \", \x41, \101, ...)
//   - Link target: [[...]] with no "]" inside
//   - Structured value: a balanced {...} span decoded as a JSON object
//   - Bare word: a run of word characters and hyphens
//
// # Arity
//
// A bare key yields Flag. A key with one value yields that value directly,
// whatever its form. A key with two or more values yields a List.
//
// Keys are lower-cased. When a key appears more than once the last
// occurrence wins.
//
// # Error Policy
//
// Parse never fails. Fragments that do not form a key or key=value match are
// skipped, so a typo in one fixture cannot break a whole suite.
package directive
