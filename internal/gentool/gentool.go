// Package gentool hosts the generate_instructions bridge tool. Unlike the
// builtin parse/validate tools it needs the daemon's services, which it
// pulls from the dispatch context.
package gentool

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quillform/quill/internal/backend"
	"github.com/quillform/quill/internal/fill"
	"github.com/quillform/quill/internal/runlog"
	"github.com/quillform/quill/internal/svcctx"
	"github.com/quillform/quill/internal/tools"
)

const paramsSchema = `{
  "type": "object",
  "properties": {
    "form_html": {"type": "string", "minLength": 1},
    "profile": {"type": "object", "additionalProperties": {"type": "string"}},
    "enhanced": {"type": "boolean"}
  },
  "required": ["form_html"],
  "additionalProperties": false
}`

// Tool returns the generate_instructions tool: a hosted generation call
// whose response text runs through the instruction recovery pipeline.
func Tool() tools.Tool {
	return tools.Tool{
		Name:    "generate_instructions",
		Doing:   "Generating fill instructions",
		Params:  paramsSchema,
		Handler: generate,
	}
}

func generate(ctx context.Context, params map[string]any) (any, error) {
	client := svcctx.BackendFrom(ctx)
	if client == nil {
		return nil, fmt.Errorf("backend is not configured")
	}

	formHTML, _ := params["form_html"].(string)
	enhanced, _ := params["enhanced"].(bool)
	req := backend.GenerateRequest{FormHTML: formHTML, Enhanced: enhanced}
	if prof, ok := params["profile"].(map[string]any); ok {
		req.Profile = make(map[string]string, len(prof))
		for k, v := range prof {
			if s, ok := v.(string); ok {
				req.Profile[k] = s
			}
		}
	}

	started := time.Now()
	res, err := client.GenerateInstructions(ctx, req)
	if err != nil {
		record(ctx, started, nil, 0, 0, err)
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	if enhanced {
		recs, dropped, err := fill.DecodeEnhanced(res.Text)
		if err != nil {
			record(ctx, started, res, 0, 0, err)
			return nil, fmt.Errorf("no enhanced instructions found: %w", err)
		}
		record(ctx, started, res, len(recs), dropped, nil)
		narrate(ctx, len(recs), dropped)
		return map[string]any{"instructions": recs, "dropped": dropped, "request_id": res.RequestID}, nil
	}

	recs, dropped, err := fill.DecodeInstructions(res.Text)
	if err != nil {
		record(ctx, started, res, 0, 0, err)
		return nil, fmt.Errorf("no instructions found: %w", err)
	}
	record(ctx, started, res, len(recs), dropped, nil)
	narrate(ctx, len(recs), dropped)
	return map[string]any{"instructions": recs, "dropped": dropped, "request_id": res.RequestID}, nil
}

// narrate publishes the recovery outcome between the bridge's start and
// done lines.
func narrate(ctx context.Context, count, dropped int) {
	line := fmt.Sprintf("Recovered %d instructions", count)
	if dropped > 0 {
		line += fmt.Sprintf(" (%d dropped)", dropped)
	}
	svcctx.StatusFrom(ctx).Publish(line)
}

// record appends a run record. Recording problems are logged, never allowed
// to fail the dispatch itself.
func record(ctx context.Context, started time.Time, res *backend.GenerateResult, instructions, dropped int, runErr error) {
	runs := svcctx.RunsFrom(ctx)
	if runs == nil {
		return
	}

	rec := &runlog.Record{
		ID:           uuid.NewString(),
		Timestamp:    time.Now(),
		LatencyMs:    int(time.Since(started).Milliseconds()),
		Provider:     "backend",
		Instructions: instructions,
		Dropped:      dropped,
		Success:      runErr == nil,
	}
	if res != nil {
		if res.RequestID != "" {
			rec.ID = res.RequestID
		}
		rec.RawOutput = res.Text
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}

	if err := runs.Append(rec); err != nil {
		if logger := svcctx.LoggerFrom(ctx); logger != nil {
			logger.Warn("failed to record run", "error", err)
		}
	}
}
