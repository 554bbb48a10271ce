// Package providers runs form-fill generation against external AI agents.
// A provider takes one prompt and returns the raw text the agent produced;
// everything downstream treats that text as untrusted and recovers the
// instruction payload with the extract and fill packages.
package providers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrRateLimited marks a generation rejected by the provider's server-side
// rate limit, as opposed to the local token bucket, which blocks instead.
var ErrRateLimited = errors.New("rate limited")

// GenerateRequest asks a provider for form-fill output.
type GenerateRequest struct {
	Prompt string

	// Model overrides the provider's default model when set.
	Model string

	// Timeout bounds the call. Zero uses the provider default.
	Timeout time.Duration

	// Enhanced selects the enhanced instruction schema on providers that
	// constrain output format. CLI providers ignore it; there the prompt
	// carries the expected shape.
	Enhanced bool

	// RequestID correlates logs and run records. Assigned when empty.
	RequestID string
}

// GenerateResult is the raw output of one generation call.
type GenerateResult struct {
	RawOutput string
	Provider  string
	ModelUsed string
	RequestID string
	Duration  time.Duration
	// Truncated reports output clipped at the capture cap.
	Truncated bool
}

// Provider is a single generation backend, CLI or API.
type Provider interface {
	// Name returns the provider identifier (e.g. "claude", "openai").
	Name() string

	// Generate produces raw output for the prompt.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)
}

// ensureRequestID returns the request's id, minting one when absent.
func ensureRequestID(req *GenerateRequest) string {
	if req.RequestID != "" {
		return req.RequestID
	}
	return uuid.NewString()
}
