package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/quillform/quill/internal/fill"
)

const (
	openAIDefaultModel   = "gpt-4o-mini"
	openAIDefaultTimeout = 120 * time.Second
	openAIDefaultRPM     = 60
)

// OpenAIConfig holds configuration for the OpenAI API provider.
type OpenAIConfig struct {
	Name       string
	APIKey     string
	Model      string
	BaseURL    string // Optional (tests, compatible gateways)
	RPM        int
	Timeout    time.Duration
	MaxRetries int          // SDK transport retries
	HTTPClient *http.Client // Optional (tests)
	Logger     *slog.Logger
}

// OpenAIProvider generates through the OpenAI chat completions API instead
// of a local CLI. Useful when no agent CLI is installed.
type OpenAIProvider struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	rpm     int
	timeout time.Duration
	client  openai.Client
	limiter *RateLimiter
	logger  *slog.Logger
}

// NewOpenAIProvider creates an OpenAI-backed provider.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.RPM <= 0 {
		cfg.RPM = openAIDefaultRPM
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = openAIDefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIProvider{
		name:    cfg.Name,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		rpm:     cfg.RPM,
		timeout: cfg.Timeout,
		client:  openai.NewClient(opts...),
		limiter: NewRateLimiter(cfg.RPM),
		logger:  cfg.Logger,
	}
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string { return p.name }

// Generate sends the prompt as a single user message and returns the
// assistant text.
func (p *OpenAIProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt is required")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	requestID := ensureRequestID(req)
	model := req.Model
	if model == "" {
		model = p.model
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = p.timeout
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p.logger.Info("calling OpenAI API",
		"provider", p.name,
		"request_id", requestID,
		"model", model)

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		ResponseFormat: responseFormat(req.Enhanced),
	})
	if err != nil {
		return nil, fmt.Errorf("%s generation failed: %w", p.name, mapOpenAIError(err))
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s returned no choices", p.name)
	}

	return &GenerateResult{
		RawOutput: resp.Choices[0].Message.Content,
		Provider:  p.name,
		ModelUsed: model,
		RequestID: requestID,
		Duration:  time.Since(start),
	}, nil
}

// responseFormat constrains chat output to the instruction shape. The chat
// API wants an object at the schema root, so the array schema is wrapped in
// an envelope; the extractor recovers the inner array either way.
func responseFormat(enhanced bool) openai.ChatCompletionNewParamsResponseFormatUnion {
	raw := fill.InstructionsSchema
	if enhanced {
		raw = fill.EnhancedSchema
	}
	var items any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return openai.ChatCompletionNewParamsResponseFormatUnion{}
	}

	format := shared.ResponseFormatJSONSchemaParam{
		JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
			Name: "fill_instructions",
			Schema: map[string]any{
				"type":                 "object",
				"properties":           map[string]any{"instructions": items},
				"required":             []string{"instructions"},
				"additionalProperties": false,
			},
		},
	}
	return openai.ChatCompletionNewParamsResponseFormatUnion{OfJSONSchema: &format}
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("openai rate limited (status 429): %w", ErrRateLimited)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("openai error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("openai error (status %d)", apiErr.StatusCode)
	}
	return err
}

var _ Provider = (*OpenAIProvider)(nil)
