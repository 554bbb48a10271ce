// Package fill defines the form-fill instruction records produced by agent
// runs and the validation gating them before anything trusts them. Records
// come out of unstructured model output, so validation is a filter: a
// record is fully valid or dropped, never partially accepted.
package fill

import (
	"github.com/quillform/quill/internal/extract"
)

// Instruction tells the browser layer to put Value into the field matched
// by Selector.
type Instruction struct {
	Selector string `json:"selector"`
	Value    string `json:"value"`
}

// Enhanced instruction statuses.
const (
	StatusFilled  = "filled"
	StatusSkipped = "skipped"
)

// EnhancedInstruction extends Instruction with a per-field outcome. Filled
// fields must carry a value; skipped fields may omit it and say why.
type EnhancedInstruction struct {
	Selector string  `json:"selector"`
	Value    *string `json:"value,omitempty"`
	Status   string  `json:"status"`
	Reason   string  `json:"reason,omitempty"`
	Label    string  `json:"label,omitempty"`
}

// ValidInstruction reports whether a decoded record is a usable fill
// instruction: selector and value must both be strings.
func ValidInstruction(m map[string]any) bool {
	_, selOK := m["selector"].(string)
	_, valOK := m["value"].(string)
	return selOK && valOK
}

// ValidEnhancedInstruction reports whether a decoded record is a usable
// enhanced instruction: selector a string, status filled or skipped, a
// filled record carrying a string value, a skipped record carrying a
// string value or none at all.
func ValidEnhancedInstruction(m map[string]any) bool {
	if _, ok := m["selector"].(string); !ok {
		return false
	}
	status, _ := m["status"].(string)
	value, hasValue := m["value"]
	switch status {
	case StatusFilled:
		_, ok := value.(string)
		return ok
	case StatusSkipped:
		if !hasValue || value == nil {
			return true
		}
		_, ok := value.(string)
		return ok
	default:
		return false
	}
}

// DecodeInstructions recovers the instruction array from raw agent output.
// Invalid records are dropped; the count is returned so callers can log how
// much of the output was unusable.
func DecodeInstructions(raw string) ([]Instruction, int, error) {
	arr, err := decodeArray(raw)
	if err != nil {
		return nil, 0, err
	}

	out := make([]Instruction, 0, len(arr))
	dropped := 0
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok || !ValidInstruction(m) {
			dropped++
			continue
		}
		out = append(out, Instruction{
			Selector: m["selector"].(string),
			Value:    m["value"].(string),
		})
	}
	return out, dropped, nil
}

// DecodeEnhanced recovers the enhanced instruction array from raw agent
// output, with the same drop semantics as DecodeInstructions.
func DecodeEnhanced(raw string) ([]EnhancedInstruction, int, error) {
	arr, err := decodeArray(raw)
	if err != nil {
		return nil, 0, err
	}

	out := make([]EnhancedInstruction, 0, len(arr))
	dropped := 0
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok || !ValidEnhancedInstruction(m) {
			dropped++
			continue
		}
		rec := EnhancedInstruction{
			Selector: m["selector"].(string),
			Status:   m["status"].(string),
		}
		if v, ok := m["value"].(string); ok {
			rec.Value = &v
		}
		if reason, ok := m["reason"].(string); ok {
			rec.Reason = reason
		}
		if label, ok := m["label"].(string); ok {
			rec.Label = label
		}
		out = append(out, rec)
	}
	return out, dropped, nil
}

func decodeArray(raw string) ([]any, error) {
	value, err := extract.Decode(raw, extract.Array)
	if err != nil {
		return nil, err
	}
	arr, ok := value.([]any)
	if !ok {
		return nil, &extract.NoEnvelopeError{Kind: extract.Array}
	}
	return arr, nil
}
