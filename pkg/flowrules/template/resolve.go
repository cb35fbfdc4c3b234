package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Resolution is the result of rewriting a template.
type Resolution struct {
	// Resolved is the rewritten text with every placeholder in the
	// rule engine's ${var} form.
	Resolved string

	// Variables lists the referenced variables in first-seen order,
	// without duplicates.
	Variables []string
}

// Resolver rewrites {{path.to.var}} placeholders into ${var} references.
//
// Create with NewResolver() and configure with Option functions.
// Resolver is safe for concurrent use after construction.
type Resolver struct {
	open      string
	close     string
	separator string
}

// NewResolver creates a new Resolver with the given options.
//
// Default configuration:
//   - Markers: "{{" and "}}"
//   - Separator: "."
//
// Example:
//
//	r := NewResolver(WithMarkers("<%", "%>"))
//	res := r.Resolve("temp is <%payload.temperature%>")
//	// res.Resolved: "temp is ${temperature}"
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		open:      "{{",
		close:     "}}",
		separator: ".",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve rewrites every placeholder in s, left to right.
//
// Only the last path segment of a placeholder names the variable, so
// {{payload.output.a}} becomes ${a}. Processing stops at the first
// unbalanced marker pair (a closing marker before the next opening one,
// or a missing marker) and the remainder is returned untouched.
//
// Example:
//
//	res := NewResolver().Resolve("Attributes {{payload.attr1}} and {{payload.attr2}}")
//	// res.Resolved:  "Attributes ${attr1} and ${attr2}"
//	// res.Variables: ["attr1", "attr2"]
func (r *Resolver) Resolve(s string) Resolution {
	res := Resolution{Variables: []string{}}

	var b strings.Builder
	rest := s
	for {
		begin := strings.Index(rest, r.open)
		end := strings.Index(rest, r.close)
		if begin < 0 || end < 0 || end < begin+len(r.open) {
			break
		}

		name := r.variableName(rest[begin+len(r.open) : end])
		res.Variables = appendUnique(res.Variables, name)

		b.WriteString(rest[:begin])
		b.WriteString("${")
		b.WriteString(name)
		b.WriteString("}")
		rest = rest[end+len(r.close):]
	}
	b.WriteString(rest)

	res.Resolved = b.String()
	return res
}

// ResolveValue resolves a value stored by a mutator node.
//
// Strings are resolved directly. Other values (maps, slices, numbers) are
// JSON encoded, resolved as text, and decoded back so the structure is kept
// while every string inside it is rewritten.
func (r *Resolver) ResolveValue(v any) (any, Resolution, error) {
	if v == nil {
		return nil, Resolution{Variables: []string{}}, nil
	}
	if s, ok := v.(string); ok {
		res := r.Resolve(s)
		return res.Resolved, res, nil
	}

	raw, err := encode(v)
	if err != nil {
		return nil, Resolution{}, err
	}
	res := r.Resolve(raw)

	var out any
	if err := json.Unmarshal([]byte(res.Resolved), &out); err != nil {
		return nil, Resolution{}, fmt.Errorf("decode resolved value: %w", err)
	}
	return out, res, nil
}

// ResolveText resolves a value and renders it as text. Strings are returned
// as resolved; structured values are returned as their resolved JSON.
func (r *Resolver) ResolveText(v any) (string, Resolution, error) {
	if v == nil {
		return "", Resolution{Variables: []string{}}, nil
	}
	if s, ok := v.(string); ok {
		res := r.Resolve(s)
		return res.Resolved, res, nil
	}
	raw, err := encode(v)
	if err != nil {
		return "", Resolution{}, err
	}
	res := r.Resolve(raw)
	return res.Resolved, res, nil
}

// encode renders v as compact JSON without HTML escaping so that
// templates keep their literal text.
func encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func (r *Resolver) variableName(path string) string {
	path = strings.TrimSpace(path)
	if i := strings.LastIndex(path, r.separator); i >= 0 {
		return path[i+len(r.separator):]
	}
	return path
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

// defaultResolver is used by the package-level functions.
var defaultResolver = NewResolver()

// Resolve rewrites placeholders using the default resolver.
//
// Example:
//
//	res := template.Resolve("{{payload.a}}-{{payload.a}}")
//	// res.Resolved:  "${a}-${a}"
//	// res.Variables: ["a"]
func Resolve(s string) Resolution {
	return defaultResolver.Resolve(s)
}

// ResolveValue resolves a structured value using the default resolver.
func ResolveValue(v any) (any, Resolution, error) {
	return defaultResolver.ResolveValue(v)
}

// ResolveText resolves a value to text using the default resolver.
func ResolveText(v any) (string, Resolution, error) {
	return defaultResolver.ResolveText(v)
}
