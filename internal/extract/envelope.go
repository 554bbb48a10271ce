package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind selects the shape a caller wants back from raw output.
type Kind int

const (
	// Array targets a JSON array payload.
	Array Kind = iota
	// Object targets a JSON object payload.
	Object
)

func (k Kind) String() string {
	if k == Array {
		return "json array"
	}
	return "json object"
}

// matches reports whether value is already the direct payload for k. An
// object carrying a recognized envelope field is an envelope, not a
// payload, even when the caller wants an object back.
func (k Kind) matches(value any) bool {
	if k == Array {
		_, ok := value.([]any)
		return ok
	}
	m, ok := value.(map[string]any)
	return ok && !enveloped(m)
}

// envelopeFields are string fields providers use to carry nested output,
// scanned in priority order.
var envelopeFields = []string{"output_text", "outputText", "text", "completion", "message"}

// maxEnvelopeDepth bounds recursive unwrapping of nested raw output so
// adversarial input cannot recurse without limit.
const maxEnvelopeDepth = 2

func enveloped(m map[string]any) bool {
	if _, ok := m["result"]; ok {
		return true
	}
	for _, name := range envelopeFields {
		if _, ok := m[name].(string); ok {
			return true
		}
	}
	return false
}

// Normalize unwraps an already-decoded value into the target kind. The
// strategies run in fixed priority order and the first success wins: direct
// match, the "result" field, prioritized nested-output string fields, then
// a field-by-field kind scan. Values are never coerced; a value that fits
// no strategy fails with NoEnvelopeError.
func Normalize(value any, target Kind) (any, error) {
	src := ""
	if b, err := json.Marshal(value); err == nil {
		src = string(b)
	}
	return normalize(value, src, target, 0)
}

// Decode runs the full recovery pipeline on raw process output: decode the
// whole text (with a code-fence retry), fall back to balanced extraction of
// the earliest object or array literal, then normalize the result into the
// target kind. The envelope payload for an array is often an object, so
// extraction considers both bracket kinds and normalization finishes the
// job.
func Decode(raw string, target Kind) (any, error) {
	return decode(raw, target, 0)
}

func decode(raw string, target Kind, depth int) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ErrNotFound
	}

	candidates := []string{trimmed}
	if stripped := stripFences(trimmed); stripped != "" && stripped != trimmed {
		candidates = append(candidates, stripped)
	}
	for _, candidate := range candidates {
		var value any
		if err := json.Unmarshal([]byte(candidate), &value); err == nil {
			return normalize(value, candidate, target, depth)
		}
	}

	spans, err := valueSpans(trimmed)
	if err != nil {
		return nil, err
	}
	var parseErr error
	for _, span := range spans {
		var value any
		if uerr := json.Unmarshal([]byte(span.Text), &value); uerr != nil {
			if parseErr == nil {
				parseErr = &MalformedError{Preview: preview(span.Text), Err: uerr}
			}
			continue
		}
		return normalize(value, span.Text, target, depth)
	}
	return nil, parseErr
}

// valueSpans locates the first balanced object span and the first balanced
// array span, ordered by where they open. Unbalanced wins over not-found
// when neither kind yields a span, since it is the more telling failure.
func valueSpans(text string) ([]Span, error) {
	objSpan, objErr := Extract(text, '{', '}')
	arrSpan, arrErr := Extract(text, '[', ']')
	switch {
	case objErr == nil && arrErr == nil:
		if objSpan.Start < arrSpan.Start {
			return []Span{objSpan, arrSpan}, nil
		}
		return []Span{arrSpan, objSpan}, nil
	case objErr == nil:
		return []Span{objSpan}, nil
	case arrErr == nil:
		return []Span{arrSpan}, nil
	case errors.Is(objErr, ErrUnbalanced) || errors.Is(arrErr, ErrUnbalanced):
		return nil, ErrUnbalanced
	default:
		return nil, ErrNotFound
	}
}

func normalize(value any, src string, target Kind, depth int) (any, error) {
	if target.matches(value) {
		return value, nil
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &NoEnvelopeError{Kind: target, Preview: preview(src)}
	}

	// An explicit result field wins over every other strategy.
	if res, ok := obj["result"]; ok {
		if s, ok := res.(string); ok && depth < maxEnvelopeDepth {
			if v, err := decode(s, target, depth+1); err == nil {
				return v, nil
			}
		}
		if target.matches(res) {
			return res, nil
		}
	}

	if depth < maxEnvelopeDepth {
		for _, name := range envelopeFields {
			s, ok := obj[name].(string)
			if !ok {
				continue
			}
			if v, err := decode(s, target, depth+1); err == nil {
				return v, nil
			}
		}
	}

	keys := orderedKeys(src, obj)
	if target == Array {
		for _, k := range keys {
			if arr, ok := obj[k].([]any); ok {
				return arr, nil
			}
		}
		return nil, &NoEnvelopeError{Kind: target, Preview: preview(src)}
	}
	for _, k := range keys {
		if m, ok := obj[k].(map[string]any); ok {
			return m, nil
		}
	}
	// Object targets accept the envelope itself as a last resort.
	return obj, nil
}

// orderedKeys returns obj's keys in document order when src is the JSON
// text the value was decoded from, falling back to sorted order so the
// field scan stays deterministic either way.
func orderedKeys(src string, obj map[string]any) []string {
	if keys, err := documentKeys(src); err == nil && len(keys) == len(obj) {
		return keys
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func documentKeys(src string) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(src))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("not an object")
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// stripFences removes a surrounding markdown code fence, returning "" when
// the text is not fenced.
func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop the opening fence line and a trailing fence if present.
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
