package providers

import (
	"context"
	"strings"
	"testing"
)

func TestCLIProviderGenerate(t *testing.T) {
	t.Run("passes model flag and prompt as arguments", func(t *testing.T) {
		p := NewCLIProvider(CLIConfig{
			Name:      "stub",
			Command:   "sh",
			Args:      []string{"-c", `printf '%s\n' "$@"`, "sh"},
			Model:     "haiku",
			PromptArg: true,
		})

		result, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "fill the form"})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}

		want := "--model\nhaiku\nfill the form\n"
		if result.RawOutput != want {
			t.Errorf("RawOutput = %q, want %q", result.RawOutput, want)
		}
		if result.Provider != "stub" {
			t.Errorf("Provider = %q, want stub", result.Provider)
		}
		if result.ModelUsed != "haiku" {
			t.Errorf("ModelUsed = %q, want haiku", result.ModelUsed)
		}
		if result.RequestID == "" {
			t.Error("RequestID not assigned")
		}
	})

	t.Run("request model overrides default", func(t *testing.T) {
		p := NewCLIProvider(CLIConfig{
			Command:   "sh",
			Args:      []string{"-c", `printf '%s\n' "$@"`, "sh"},
			Model:     "haiku",
			PromptArg: true,
		})

		result, err := p.Generate(context.Background(), &GenerateRequest{
			Prompt: "go",
			Model:  "sonnet",
		})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if !strings.Contains(result.RawOutput, "sonnet") {
			t.Errorf("RawOutput = %q, want model override", result.RawOutput)
		}
		if result.ModelUsed != "sonnet" {
			t.Errorf("ModelUsed = %q, want sonnet", result.ModelUsed)
		}
	})

	t.Run("writes prompt to stdin by default", func(t *testing.T) {
		p := NewCLIProvider(CLIConfig{
			Command: "sh",
			Args:    []string{"-c", "cat"},
		})

		result, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "stdin prompt"})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if result.RawOutput != "stdin prompt" {
			t.Errorf("RawOutput = %q, want prompt echoed", result.RawOutput)
		}
	})

	t.Run("keeps provided request id", func(t *testing.T) {
		p := NewCLIProvider(CLIConfig{
			Command: "sh",
			Args:    []string{"-c", "cat"},
		})
		result, err := p.Generate(context.Background(), &GenerateRequest{
			Prompt:    "x",
			RequestID: "run-42",
		})
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if result.RequestID != "run-42" {
			t.Errorf("RequestID = %q, want run-42", result.RequestID)
		}
	})

	t.Run("rejects empty prompt", func(t *testing.T) {
		p := NewCLIProvider(CLIConfig{Command: "sh"})
		if _, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "  "}); err == nil {
			t.Fatal("Generate() with blank prompt should fail")
		}
	})

	t.Run("CLI failure names the provider", func(t *testing.T) {
		p := NewCLIProvider(CLIConfig{
			Name:    "broken",
			Command: "sh",
			Args:    []string{"-c", "echo 'not logged in' >&2; exit 1"},
		})
		_, err := p.Generate(context.Background(), &GenerateRequest{Prompt: "go"})
		if err == nil {
			t.Fatal("Generate() should fail on CLI exit 1")
		}
		if !strings.Contains(err.Error(), "broken") {
			t.Errorf("error = %v, want provider name", err)
		}
		if !strings.Contains(err.Error(), "not logged in") {
			t.Errorf("error = %v, want CLI stderr", err)
		}
	})
}

func TestCLIConstructorDefaults(t *testing.T) {
	tests := []struct {
		name      string
		provider  *CLIProvider
		command   string
		args      []string
		modelFlag string
	}{
		{"claude", NewClaudeCLI(CLIConfig{}), "claude", []string{"-p"}, "--model"},
		{"gemini", NewGeminiCLI(CLIConfig{}), "gemini", []string{"-p"}, "-m"},
		{"codex", NewCodexCLI(CLIConfig{}), "codex", []string{"exec"}, "-m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.provider.Name() != tt.name {
				t.Errorf("Name() = %q, want %q", tt.provider.Name(), tt.name)
			}
			if tt.provider.command != tt.command {
				t.Errorf("command = %q, want %q", tt.provider.command, tt.command)
			}
			if len(tt.provider.baseArgs) != len(tt.args) || tt.provider.baseArgs[0] != tt.args[0] {
				t.Errorf("baseArgs = %v, want %v", tt.provider.baseArgs, tt.args)
			}
			if tt.provider.modelFlag != tt.modelFlag {
				t.Errorf("modelFlag = %q, want %q", tt.provider.modelFlag, tt.modelFlag)
			}
			if !tt.provider.promptArg {
				t.Error("promptArg = false, want true")
			}
		})
	}
}
