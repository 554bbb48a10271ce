package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quillform/quill/internal/api"
	"github.com/quillform/quill/internal/fill"
	"github.com/quillform/quill/internal/home"
	"github.com/quillform/quill/internal/providers"
	"github.com/quillform/quill/internal/runlog"
)

var (
	runProvider   string
	runPromptName string
	runEnhanced   bool
	runTimeout    time.Duration
	runOut        string
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run one generation with a local provider",
	Long: `Run one form-fill generation against a configured provider and print the
recovered instructions.

The prompt comes from the argument, from a saved prompt (--prompt), or
from stdin when neither is given. Raw agent output is never printed; only
instructions that survive validation are.

Examples:
  quill run "Fill the signup form at ..." --provider claude
  quill run --prompt signup --enhanced
  cat prompt.txt | quill run --out instructions.json -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		prompt, err := resolvePrompt(h, args)
		if err != nil {
			return err
		}

		mgr, err := loadConfig(h)
		if err != nil {
			return err
		}
		cfg := mgr.Get()
		logger := newLogger(cfg.Log)

		name := runProvider
		if name == "" {
			name = cfg.Agent.Provider
		}
		registry := providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig())
		registry.SetLogger(logger.With("component", "providers"))
		provider, err := registry.Get(name)
		if err != nil {
			return fmt.Errorf("%w (configured: %s)", err, strings.Join(registry.List(), ", "))
		}

		timeout := runTimeout
		if timeout <= 0 {
			timeout = cfg.Agent.Timeout()
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		runs := runlog.NewStore(h.RunsPath())
		logger.Info("starting run", "provider", name, "timeout", timeout)

		result, err := provider.Generate(ctx, &providers.GenerateRequest{Prompt: prompt, Enhanced: runEnhanced})
		if err != nil {
			appendRecord(logger, runs, result, runlog.RecordOptions{Prompt: prompt, Err: err})
			return fmt.Errorf("generation failed: %w", err)
		}

		payload, count, dropped, err := decodeRunOutput(result.RawOutput)
		if err != nil {
			appendRecord(logger, runs, result, runlog.RecordOptions{Prompt: prompt, Err: err})
			return fmt.Errorf("no instructions in output: %w", err)
		}

		appendRecord(logger, runs, result, runlog.RecordOptions{
			Prompt:       prompt,
			Instructions: count,
			Dropped:      dropped,
		})
		logger.Info("run complete",
			"provider", result.Provider,
			"instructions", count,
			"dropped", dropped,
			"latency_ms", result.Duration.Milliseconds(),
		)

		if runOut != "" {
			return api.OutputToFile(runOut, payload)
		}
		return api.Output(payload)
	},
}

// resolvePrompt picks the prompt text: argument, saved prompt, then stdin.
func resolvePrompt(h *home.Dir, args []string) (string, error) {
	if len(args) == 1 && args[0] != "" {
		return args[0], nil
	}
	if runPromptName != "" {
		raw, err := os.ReadFile(h.PromptPath(runPromptName))
		if err != nil {
			return "", fmt.Errorf("failed to read saved prompt %q: %w", runPromptName, err)
		}
		return string(raw), nil
	}

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(raw))
	if prompt == "" {
		return "", fmt.Errorf("prompt is empty; pass it as an argument, via --prompt, or on stdin")
	}
	return prompt, nil
}

// decodeRunOutput recovers the instruction payload in the flavor the
// --enhanced flag selects.
func decodeRunOutput(raw string) (any, int, int, error) {
	if runEnhanced {
		recs, dropped, err := fill.DecodeEnhanced(raw)
		return recs, len(recs), dropped, err
	}
	recs, dropped, err := fill.DecodeInstructions(raw)
	return recs, len(recs), dropped, err
}

func appendRecord(logger *slog.Logger, runs *runlog.Store, result *providers.GenerateResult, opts runlog.RecordOptions) {
	if err := runs.Append(runlog.FromResult(result, opts)); err != nil {
		logger.Warn("failed to record run", "error", err)
	}
}

func init() {
	runCmd.Flags().StringVar(&runProvider, "provider", "", "provider to run (default: from config)")
	runCmd.Flags().StringVar(&runPromptName, "prompt", "", "saved prompt name under ~/.quill/prompts")
	runCmd.Flags().BoolVar(&runEnhanced, "enhanced", false, "decode enhanced instructions (per-field status)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "generation timeout (default: from config)")
	runCmd.Flags().StringVar(&runOut, "out", "", "write instructions to a file instead of stdout")

	rootCmd.AddCommand(runCmd)
}
