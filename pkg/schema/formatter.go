// Package schema derives output-format instructions from Go types and parses
// model replies back into them.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/tidwall/gjson"
)

var (
	ErrNoJSON      = errors.New("no JSON value found")
	ErrInvalidJSON = errors.New("invalid JSON")
)

// Formatter describes T to a model and decodes T from its reply.
type Formatter[T any] struct {
	schema   *jsonschema.Schema
	resolved *jsonschema.Resolved
	examples []T
}

// NewFormatter builds a formatter for T. Examples are rendered into the
// instructions in order.
func NewFormatter[T any](examples ...T) (*Formatter[T], error) {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("infer schema for %s: %w", typeName[T](), err)
	}
	lenient := s.CloneSchemas()
	allowExtraProperties(lenient)
	resolved, err := lenient.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve schema for %s: %w", typeName[T](), err)
	}
	return &Formatter[T]{
		schema:   s,
		resolved: resolved,
		examples: examples,
	}, nil
}

// Schema returns the inferred JSON schema.
func (f *Formatter[T]) Schema() *jsonschema.Schema {
	return f.schema
}

// Instructions renders the text appended to the last message of a
// conversation when a typed reply is requested.
func (f *Formatter[T]) Instructions() (string, error) {
	schemaJSON, err := json.Marshal(f.schema)
	if err != nil {
		return "", fmt.Errorf("marshal schema: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("## Output format\n")
	sb.WriteString("The output should be formatted as a JSON instance that conforms to the JSON schema below. ")
	sb.WriteString("Return only the JSON instance, not the schema itself.\n\n")
	sb.WriteString("```json\n")
	sb.Write(schemaJSON)
	sb.WriteString("\n```")

	if len(f.examples) > 0 {
		sb.WriteString("\n\n## Examples\n")
		for i, ex := range f.examples {
			data, err := json.Marshal(ex)
			if err != nil {
				return "", fmt.Errorf("marshal example %d: %w", i, err)
			}
			sb.Write(data)
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}

// Parse extracts the JSON value from a model reply, validates it against
// the schema and decodes it into T. Object keys T does not declare are
// accepted and dropped.
func (f *Formatter[T]) Parse(text string) (T, error) {
	var out T

	raw, err := ExtractJSON(text)
	if err != nil {
		return out, &ParseError{Raw: text, Err: err}
	}

	var instance any
	if err := json.Unmarshal([]byte(raw), &instance); err != nil {
		return out, &ParseError{Raw: text, Err: err}
	}
	if err := f.resolved.Validate(instance); err != nil {
		return out, &ParseError{Raw: text, Err: err}
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, &ParseError{Raw: text, Err: err}
	}
	return out, nil
}

// ExtractJSON returns the first balanced, well-formed JSON object or array in
// text. A reply wrapped in a markdown code fence is unwrapped first.
// Candidates that are unbalanced or malformed are skipped.
func ExtractJSON(text string) (string, error) {
	body := stripCodeFence(text)

	var firstErr error
	for offset := 0; offset < len(body); {
		i := strings.IndexAny(body[offset:], "{[")
		if i < 0 {
			break
		}
		start := offset + i
		offset = start + 1

		end := matchingClose(body, start)
		if end < 0 {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: unbalanced %q", ErrInvalidJSON, body[start])
			}
			continue
		}

		candidate := body[start : end+1]
		if gjson.Valid(candidate) {
			return candidate, nil
		}
		if firstErr == nil {
			firstErr = ErrInvalidJSON
		}
	}

	if firstErr != nil {
		return "", firstErr
	}
	return "", ErrNoJSON
}

// stripCodeFence unwraps a reply that is entirely a fenced code block.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	rest := trimmed[3:]
	// Drop the info string ("json") on the opening fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	if closeIdx := strings.Index(rest, "```"); closeIdx >= 0 {
		rest = rest[:closeIdx]
	}
	return strings.TrimSpace(rest)
}

// matchingClose returns the index of the bracket closing the one at start,
// skipping brackets inside string literals. It returns -1 when unbalanced.
func matchingClose(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// allowExtraProperties clears the "additionalProperties: false" that schema
// inference puts on every struct, throughout s.
func allowExtraProperties(s *jsonschema.Schema) {
	if s == nil {
		return
	}
	if isFalseSchema(s.AdditionalProperties) {
		s.AdditionalProperties = nil
	}

	allowExtraProperties(s.AdditionalProperties)
	allowExtraProperties(s.Items)
	for _, sub := range s.Properties {
		allowExtraProperties(sub)
	}
	for _, sub := range s.Defs {
		allowExtraProperties(sub)
	}
	for _, list := range [][]*jsonschema.Schema{s.PrefixItems, s.AnyOf, s.OneOf, s.AllOf} {
		for _, sub := range list {
			allowExtraProperties(sub)
		}
	}
}

// isFalseSchema reports whether s is {"not": {}}, which matches nothing.
func isFalseSchema(s *jsonschema.Schema) bool {
	return s != nil && s.Not != nil && reflect.DeepEqual(*s.Not, jsonschema.Schema{})
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
