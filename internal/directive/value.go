package directive

import (
	"sort"
	"strings"
)

// Value is a sealed interface over the option value variants.
// Only Flag, String, Object and List implement it.
type Value interface {
	optionValue() // Sealed
}

// Flag is the value of a key given without "=".
type Flag struct{}

func (Flag) optionValue() {}

// String is a scalar value. Bare words, quoted strings and link targets all
// collapse to String once their delimiters and escapes are removed.
type String string

func (String) optionValue() {}

// Object is a decoded structured value.
// Fields is nil when the brace span could not be decoded.
type Object struct {
	Fields map[string]any
}

func (Object) optionValue() {}

// List holds two or more values given as key=a,b,...
type List []Value

func (List) optionValue() {}

// OptionSet maps lower-cased option names to their values.
type OptionSet map[string]Value

// Has reports whether key was given, with or without a value.
func (o OptionSet) Has(key string) bool {
	_, ok := o[strings.ToLower(key)]
	return ok
}

// Get returns the value stored under key.
func (o OptionSet) Get(key string) (Value, bool) {
	v, ok := o[strings.ToLower(key)]
	return v, ok
}

// String returns the scalar value of key, or def when the key is absent or
// not a scalar.
func (o OptionSet) String(key, def string) string {
	if s, ok := o[strings.ToLower(key)].(String); ok {
		return string(s)
	}
	return def
}

// Values returns the values of key as a slice. A List is returned as is, a
// single value as a one-element slice, and a missing key or Flag as nil.
func (o OptionSet) Values(key string) []Value {
	switch v := o[strings.ToLower(key)].(type) {
	case List:
		return v
	case nil, Flag:
		return nil
	default:
		return []Value{v}
	}
}

// Keys returns the option names in sorted order.
func (o OptionSet) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToMap converts the set to plain Go values for JSON encoding:
// Flag becomes true, String a string, Object its field map and List a slice.
func (o OptionSet) ToMap() map[string]any {
	out := make(map[string]any, len(o))
	for k, v := range o {
		out[k] = ToAny(v)
	}
	return out
}

// ToAny converts a single Value to a plain Go value.
func ToAny(v Value) any {
	switch val := v.(type) {
	case Flag:
		return true
	case String:
		return string(val)
	case Object:
		if val.Fields == nil {
			return nil
		}
		return val.Fields
	case List:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = ToAny(item)
		}
		return items
	default:
		return nil
	}
}
