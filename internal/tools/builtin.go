package tools

import (
	"context"
	"fmt"

	"github.com/quillform/quill/internal/fill"
)

const parseParamsSchema = `{
  "type": "object",
  "properties": {
    "text": {"type": "string", "minLength": 1},
    "enhanced": {"type": "boolean"}
  },
  "required": ["text"],
  "additionalProperties": false
}`

const validateParamsSchema = `{
  "type": "object",
  "properties": {
    "record": {"type": "object"},
    "enhanced": {"type": "boolean"}
  },
  "required": ["record"],
  "additionalProperties": false
}`

// Builtin returns the tools quill hosts itself: instruction parsing and
// validation over raw agent output. Browser automation tools are registered
// by the collaborating extension layer, not here.
func Builtin() []Tool {
	return []Tool{
		{
			Name:    "parse_instructions",
			Doing:   "Parsing instructions",
			Params:  parseParamsSchema,
			Handler: parseInstructions,
		},
		{
			Name:    "validate_instruction",
			Doing:   "Checking an instruction",
			Params:  validateParamsSchema,
			Handler: validateInstruction,
		},
	}
}

func parseInstructions(_ context.Context, params map[string]any) (any, error) {
	text, _ := params["text"].(string)
	enhanced, _ := params["enhanced"].(bool)

	if enhanced {
		recs, dropped, err := fill.DecodeEnhanced(text)
		if err != nil {
			return nil, fmt.Errorf("no enhanced instructions found: %w", err)
		}
		return map[string]any{"instructions": recs, "dropped": dropped}, nil
	}

	recs, dropped, err := fill.DecodeInstructions(text)
	if err != nil {
		return nil, fmt.Errorf("no instructions found: %w", err)
	}
	return map[string]any{"instructions": recs, "dropped": dropped}, nil
}

func validateInstruction(_ context.Context, params map[string]any) (any, error) {
	record, _ := params["record"].(map[string]any)
	enhanced, _ := params["enhanced"].(bool)

	valid := fill.ValidInstruction(record)
	if enhanced {
		valid = fill.ValidEnhancedInstruction(record)
	}
	return map[string]any{"valid": valid}, nil
}
