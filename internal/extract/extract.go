// Package extract recovers structured JSON values from untrusted text
// produced by external AI processes. Provider output routinely surrounds
// the value of interest with prose, log lines, or markdown fences, and
// wraps it in provider-specific envelopes; this package locates the first
// balanced array or object literal, decodes it, and unwraps known
// envelopes until the requested shape emerges.
package extract

import (
	"errors"
	"fmt"
	"strings"
)

// previewLimit bounds the raw-text previews carried by errors. Raw output
// can be arbitrarily large; previews are for logs, never for users.
const previewLimit = 200

// Errors reported while locating a candidate value.
var (
	// ErrNotFound means the text contains no opening delimiter.
	ErrNotFound = errors.New("no json value found in output")

	// ErrUnbalanced means an opening delimiter never closes.
	ErrUnbalanced = errors.New("unbalanced json delimiters in output")
)

// MalformedError reports a located candidate that failed JSON decoding.
type MalformedError struct {
	Preview string
	Err     error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed json: %v (input: %q)", e.Err, e.Preview)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// NoEnvelopeError reports a decoded value that matched no known envelope
// shape for the requested kind.
type NoEnvelopeError struct {
	Kind    Kind
	Preview string
}

func (e *NoEnvelopeError) Error() string {
	return fmt.Sprintf("no %s found in output (input: %q)", e.Kind, e.Preview)
}

// Span is a balanced substring located in raw text.
type Span struct {
	Text  string
	Start int // byte offset of the opening delimiter
	End   int // byte offset one past the closing delimiter
}

// Extract locates the first balanced value between open and close in text.
// Scanning honors JSON string syntax: delimiters inside quoted strings are
// ignored, and a backslash escapes the following character. Only the first
// opening delimiter is ever considered, so a second sibling value later in
// the text is never found.
func Extract(text string, open, close byte) (Span, error) {
	start := -1
	depth := 0
	inString := false
	escape := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if start == -1 {
			if c == open {
				start = i
				depth = 1
			}
			continue
		}
		if inString {
			if escape {
				escape = false
				continue
			}
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return Span{Text: text[start : i+1], Start: start, End: i + 1}, nil
			}
		}
	}
	if start == -1 {
		return Span{}, ErrNotFound
	}
	return Span{}, ErrUnbalanced
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > previewLimit {
		return s[:previewLimit] + "..."
	}
	return s
}
