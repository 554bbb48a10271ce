package extract

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Run("direct array is idempotent", func(t *testing.T) {
		in := []any{1.0, 2.0, 3.0}
		v, err := Normalize(in, Array)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if !reflect.DeepEqual(v, in) {
			t.Errorf("Normalize() = %#v, want input unchanged", v)
		}
		again, err := Normalize(v, Array)
		if err != nil {
			t.Fatalf("second Normalize() error = %v", err)
		}
		if !reflect.DeepEqual(again, in) {
			t.Errorf("second Normalize() = %#v", again)
		}
	})

	t.Run("direct object is idempotent", func(t *testing.T) {
		in := map[string]any{"selector": "#a", "mode": "fast"}
		v, err := Normalize(in, Object)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if !reflect.DeepEqual(v, in) {
			t.Errorf("Normalize() = %#v, want input unchanged", v)
		}
	})

	t.Run("result holding encoded array", func(t *testing.T) {
		v, err := Normalize(map[string]any{"result": "[1,2,3]"}, Array)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if !reflect.DeepEqual(v, []any{1.0, 2.0, 3.0}) {
			t.Errorf("Normalize() = %#v", v)
		}
	})

	t.Run("result holding the array directly", func(t *testing.T) {
		v, err := Normalize(map[string]any{"result": []any{1.0, 2.0, 3.0}}, Array)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if !reflect.DeepEqual(v, []any{1.0, 2.0, 3.0}) {
			t.Errorf("Normalize() = %#v", v)
		}
	})

	t.Run("output_text holding encoded object", func(t *testing.T) {
		v, err := Normalize(map[string]any{"output_text": `{"a":1}`}, Object)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if !reflect.DeepEqual(v, map[string]any{"a": 1.0}) {
			t.Errorf("Normalize() = %#v", v)
		}
	})

	t.Run("nested-output fields follow priority order", func(t *testing.T) {
		v, err := Normalize(map[string]any{
			"text":        "[1]",
			"output_text": "[2]",
		}, Array)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if !reflect.DeepEqual(v, []any{2.0}) {
			t.Errorf("Normalize() = %#v, want output_text to win", v)
		}
	})

	t.Run("no matching envelope", func(t *testing.T) {
		_, err := Normalize(map[string]any{"count": 3.0}, Array)
		var noEnv *NoEnvelopeError
		if !errors.As(err, &noEnv) {
			t.Fatalf("error = %v, want NoEnvelopeError", err)
		}
		if noEnv.Preview == "" {
			t.Error("NoEnvelopeError carries no preview")
		}
	})

	t.Run("scalar value never coerced", func(t *testing.T) {
		_, err := Normalize("just a string", Array)
		var noEnv *NoEnvelopeError
		if !errors.As(err, &noEnv) {
			t.Errorf("error = %v, want NoEnvelopeError", err)
		}
	})

	t.Run("object target falls back to whole object", func(t *testing.T) {
		in := map[string]any{"result": 42.0}
		v, err := Normalize(in, Object)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if !reflect.DeepEqual(v, in) {
			t.Errorf("Normalize() = %#v, want whole object", v)
		}
	})

	t.Run("recursion depth is bounded", func(t *testing.T) {
		level2 := `{"result":"[1,2,3]"}`
		level1Bytes, err := json.Marshal(map[string]any{"result": level2})
		if err != nil {
			t.Fatalf("marshal fixture: %v", err)
		}
		v, err := Normalize(map[string]any{"result": string(level1Bytes)}, Array)
		if err == nil {
			t.Fatalf("Normalize() = %#v, want depth-bound failure", v)
		}

		// Two levels of string nesting still resolve.
		v, err = Normalize(map[string]any{"result": level2}, Array)
		if err != nil {
			t.Fatalf("Normalize() two levels error = %v", err)
		}
		if !reflect.DeepEqual(v, []any{1.0, 2.0, 3.0}) {
			t.Errorf("Normalize() two levels = %#v", v)
		}
	})
}

func TestDecodeEnvelopes(t *testing.T) {
	t.Run("first array field in document order", func(t *testing.T) {
		// Sorted order would pick "alpha"; document order must win.
		v, err := Decode(`{"zeta": [1], "alpha": [2]}`, Array)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if !reflect.DeepEqual(v, []any{1.0}) {
			t.Errorf("Decode() = %#v, want zeta's array", v)
		}
	})

	t.Run("first object field in document order", func(t *testing.T) {
		raw := `{"result": 7, "payload": {"a": 1}, "other": {"b": 2}}`
		v, err := Decode(raw, Object)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if !reflect.DeepEqual(v, map[string]any{"a": 1.0}) {
			t.Errorf("Decode() = %#v, want payload object", v)
		}
	})

	t.Run("envelope inside process chatter", func(t *testing.T) {
		raw := "run complete\n{\"result\": \"[{\\\"selector\\\":\\\"#x\\\",\\\"value\\\":\\\"y\\\"}]\"}\n"
		v, err := Decode(raw, Array)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		arr, ok := v.([]any)
		if !ok || len(arr) != 1 {
			t.Fatalf("Decode() = %#v, want 1-element array", v)
		}
	})
}

