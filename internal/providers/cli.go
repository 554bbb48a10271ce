package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quillform/quill/internal/agentproc"
)

const defaultCLIRPM = 10

// CLIConfig configures a provider that shells out to an agent CLI.
type CLIConfig struct {
	Name    string
	Command string
	// Args are fixed arguments placed before the model flag and prompt.
	Args  []string
	Model string
	// ModelFlag passes Model to the CLI (default: --model).
	ModelFlag string
	// PromptArg appends the prompt as the final argument instead of
	// writing it to stdin.
	PromptArg bool
	Timeout   time.Duration
	// RPM is the requests-per-minute budget for this CLI.
	RPM    int
	Runner *agentproc.Runner
	Logger *slog.Logger
}

// CLIProvider generates by running an external agent CLI and capturing its
// standard output.
type CLIProvider struct {
	name      string
	command   string
	baseArgs  []string
	model     string
	modelFlag string
	promptArg bool
	timeout   time.Duration
	runner    *agentproc.Runner
	limiter   *RateLimiter
	logger    *slog.Logger
}

// NewCLIProvider creates a provider around an arbitrary agent CLI.
func NewCLIProvider(cfg CLIConfig) *CLIProvider {
	if cfg.Name == "" {
		cfg.Name = cfg.Command
	}
	if cfg.ModelFlag == "" {
		cfg.ModelFlag = "--model"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = agentproc.DefaultTimeout
	}
	if cfg.RPM <= 0 {
		cfg.RPM = defaultCLIRPM
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	runner := cfg.Runner
	if runner == nil {
		runner = &agentproc.Runner{Logger: cfg.Logger}
	}

	return &CLIProvider{
		name:      cfg.Name,
		command:   cfg.Command,
		baseArgs:  append([]string(nil), cfg.Args...),
		model:     cfg.Model,
		modelFlag: cfg.ModelFlag,
		promptArg: cfg.PromptArg,
		timeout:   cfg.Timeout,
		runner:    runner,
		limiter:   NewRateLimiter(cfg.RPM),
		logger:    cfg.Logger,
	}
}

// NewClaudeCLI runs the claude CLI in one-shot print mode.
func NewClaudeCLI(cfg CLIConfig) *CLIProvider {
	if cfg.Name == "" {
		cfg.Name = "claude"
	}
	if cfg.Command == "" {
		cfg.Command = "claude"
	}
	if len(cfg.Args) == 0 {
		cfg.Args = []string{"-p"}
	}
	cfg.PromptArg = true
	return NewCLIProvider(cfg)
}

// NewGeminiCLI runs the gemini CLI in one-shot prompt mode.
func NewGeminiCLI(cfg CLIConfig) *CLIProvider {
	if cfg.Name == "" {
		cfg.Name = "gemini"
	}
	if cfg.Command == "" {
		cfg.Command = "gemini"
	}
	if len(cfg.Args) == 0 {
		cfg.Args = []string{"-p"}
	}
	if cfg.ModelFlag == "" {
		cfg.ModelFlag = "-m"
	}
	cfg.PromptArg = true
	return NewCLIProvider(cfg)
}

// NewCodexCLI runs the codex CLI in non-interactive exec mode.
func NewCodexCLI(cfg CLIConfig) *CLIProvider {
	if cfg.Name == "" {
		cfg.Name = "codex"
	}
	if cfg.Command == "" {
		cfg.Command = "codex"
	}
	if len(cfg.Args) == 0 {
		cfg.Args = []string{"exec"}
	}
	if cfg.ModelFlag == "" {
		cfg.ModelFlag = "-m"
	}
	cfg.PromptArg = true
	return NewCLIProvider(cfg)
}

// Name returns the provider identifier.
func (p *CLIProvider) Name() string { return p.name }

// Generate runs the CLI once and returns whatever it printed.
func (p *CLIProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
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

	args := append([]string(nil), p.baseArgs...)
	if model != "" {
		args = append(args, p.modelFlag, model)
	}
	inv := agentproc.Invocation{
		Command: p.command,
		Args:    args,
		Timeout: timeout,
	}
	if p.promptArg {
		inv.Args = append(inv.Args, req.Prompt)
	} else {
		inv.Prompt = req.Prompt
	}

	p.logger.Info("invoking agent CLI",
		"provider", p.name,
		"request_id", requestID,
		"model", model)

	out, err := p.runner.Run(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("%s generation failed: %w", p.name, err)
	}
	if out.Truncated {
		p.logger.Warn("agent output truncated", "provider", p.name, "request_id", requestID)
	}

	return &GenerateResult{
		RawOutput: out.Stdout,
		Provider:  p.name,
		ModelUsed: model,
		RequestID: requestID,
		Duration:  out.Duration,
		Truncated: out.Truncated,
	}, nil
}

var _ Provider = (*CLIProvider)(nil)
