package fill

// JSON Schemas for the instruction arrays. API providers that constrain
// output format send these as the response schema; CLI agents get no such
// guarantee, which is why decoding still validates every record.

// InstructionsSchema describes the plain instruction array.
const InstructionsSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "selector": {"type": "string", "minLength": 1},
      "value": {"type": "string"}
    },
    "required": ["selector", "value"],
    "additionalProperties": true
  }
}`

// EnhancedSchema describes the enhanced instruction array. The value/status
// coupling (filled requires a string value, skipped allows null or none) is
// expressed as a conditional so schema validation matches the predicate.
const EnhancedSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "selector": {"type": "string", "minLength": 1},
      "value": {"type": ["string", "null"]},
      "status": {"type": "string", "enum": ["filled", "skipped"]},
      "reason": {"type": "string"},
      "label": {"type": "string"}
    },
    "required": ["selector", "status"],
    "if": {"properties": {"status": {"const": "filled"}}},
    "then": {"properties": {"value": {"type": "string"}}, "required": ["value"]},
    "additionalProperties": true
  }
}`
