// Package shape validates loosely typed JSON objects from untrusted sources
// (model output, webhook responses) against a declared field list before any
// value is trusted.
package shape

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the JSON type a field must have.
type Kind int

const (
	String Kind = iota
	Bool
	Number
	StringList
)

// String returns the JSON name of the kind.
func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case StringList:
		return "array of strings"
	default:
		return "unknown"
	}
}

// Field declares one expected member of an object.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	// Nullable accepts an explicit JSON null without a violation.
	Nullable bool
}

// Object is an ordered field list.
type Object []Field

// Violation describes one field that failed validation.
type Violation struct {
	Field   string
	Problem string
}

func (v Violation) String() string {
	return v.Field + ": " + v.Problem
}

// Error aggregates the violations of a single Validate call.
type Error struct {
	Violations []Violation
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "invalid object: " + strings.Join(parts, "; ")
}

// Decode parses data as a single JSON object. Numbers are kept as float64.
func Decode(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode object: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("failed to decode object: got null")
	}
	return m, nil
}

// Conform returns a copy of m holding only the declared fields whose values
// have the declared kind, plus the violations for the rest. Undeclared
// members are dropped silently.
func (o Object) Conform(m map[string]any) (map[string]any, []Violation) {
	out := make(map[string]any, len(o))
	var violations []Violation

	for _, f := range o {
		v, present := m[f.Name]
		switch {
		case !present:
			if f.Required {
				violations = append(violations, Violation{Field: f.Name, Problem: "is required"})
			}
		case v == nil:
			if !f.Nullable {
				violations = append(violations, Violation{Field: f.Name, Problem: "must not be null"})
			}
		case !f.Kind.matches(v):
			violations = append(violations, Violation{
				Field:   f.Name,
				Problem: fmt.Sprintf("must be a %s, got %s", f.Kind, describe(v)),
			})
		default:
			out[f.Name] = v
		}
	}

	return out, violations
}

// Validate reports every violation in m as an *Error, or nil.
func (o Object) Validate(m map[string]any) error {
	if _, violations := o.Conform(m); len(violations) > 0 {
		return &Error{Violations: violations}
	}
	return nil
}

func (k Kind) matches(v any) bool {
	switch k {
	case String:
		_, ok := v.(string)
		return ok
	case Bool:
		_, ok := v.(bool)
		return ok
	case Number:
		_, ok := v.(float64)
		return ok
	case StringList:
		items, ok := v.([]any)
		if !ok {
			return false
		}
		for _, item := range items {
			if _, ok := item.(string); !ok {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func describe(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Str returns m[key] as a string, or fallback when absent or mistyped.
func Str(m map[string]any, key, fallback string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return fallback
}

// Flag returns m[key] as a bool, or fallback when absent or mistyped.
func Flag(m map[string]any, key string, fallback bool) bool {
	if b, ok := m[key].(bool); ok {
		return b
	}
	return fallback
}

// Int returns m[key] truncated to an int and whether it was a number.
func Int(m map[string]any, key string) (int, bool) {
	if n, ok := m[key].(float64); ok {
		return int(n), true
	}
	return 0, false
}

// Strs returns m[key] as a string slice (nil when absent or mistyped).
func Strs(m map[string]any, key string) []string {
	items, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil
		}
		out = append(out, s)
	}
	return out
}
