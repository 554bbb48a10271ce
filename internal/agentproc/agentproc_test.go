package agentproc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunnerRun(t *testing.T) {
	r := &Runner{}

	t.Run("captures stdout", func(t *testing.T) {
		out, err := r.Run(context.Background(), Invocation{
			Command: "sh",
			Args:    []string{"-c", `printf '[{"selector":"#a","value":"b"}]'`},
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if out.Stdout != `[{"selector":"#a","value":"b"}]` {
			t.Errorf("Stdout = %q", out.Stdout)
		}
		if out.Truncated {
			t.Error("Truncated = true, want false")
		}
		if out.Duration <= 0 {
			t.Error("Duration not recorded")
		}
	})

	t.Run("writes prompt to stdin", func(t *testing.T) {
		out, err := r.Run(context.Background(), Invocation{
			Command: "sh",
			Args:    []string{"-c", "cat"},
			Prompt:  "fill the login form",
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if out.Stdout != "fill the login form" {
			t.Errorf("Stdout = %q, want prompt echoed", out.Stdout)
		}
	})

	t.Run("failure carries stderr", func(t *testing.T) {
		_, err := r.Run(context.Background(), Invocation{
			Command: "sh",
			Args:    []string{"-c", "echo 'no API key configured' >&2; exit 3"},
		})
		if err == nil {
			t.Fatal("Run() should fail on non-zero exit")
		}
		if !strings.Contains(err.Error(), "no API key configured") {
			t.Errorf("error = %v, want stderr text", err)
		}
	})

	t.Run("missing command is an error", func(t *testing.T) {
		if _, err := r.Run(context.Background(), Invocation{}); err == nil {
			t.Fatal("Run() with empty command should fail")
		}
	})

	t.Run("timeout kills the process", func(t *testing.T) {
		start := time.Now()
		_, err := r.Run(context.Background(), Invocation{
			Command: "sh",
			Args:    []string{"-c", "sleep 5"},
			Timeout: 100 * time.Millisecond,
		})
		if elapsed := time.Since(start); elapsed > 3*time.Second {
			t.Errorf("Run() took %v, process was not killed", elapsed)
		}

		var timeoutErr *TimeoutError
		if !errors.As(err, &timeoutErr) {
			t.Fatalf("error = %v, want TimeoutError", err)
		}
		if timeoutErr.Command != "sh" {
			t.Errorf("TimeoutError.Command = %q, want sh", timeoutErr.Command)
		}
		if !strings.Contains(err.Error(), "timed out") {
			t.Errorf("error = %v, want timeout message", err)
		}
	})

	t.Run("caller cancellation wins over timeout", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()
		_, err := r.Run(ctx, Invocation{
			Command: "sh",
			Args:    []string{"-c", "sleep 5"},
			Timeout: time.Minute,
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	})

	t.Run("stdout past the cap is truncated", func(t *testing.T) {
		small := &Runner{MaxOutputBytes: 8}
		out, err := small.Run(context.Background(), Invocation{
			Command: "sh",
			Args:    []string{"-c", "printf '0123456789abcdef'"},
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if out.Stdout != "01234567" {
			t.Errorf("Stdout = %q, want first 8 bytes", out.Stdout)
		}
		if !out.Truncated {
			t.Error("Truncated = false, want true")
		}
	})

	t.Run("passes extra environment", func(t *testing.T) {
		out, err := r.Run(context.Background(), Invocation{
			Command: "sh",
			Args:    []string{"-c", "printf '%s' \"$QUILL_TEST_MARKER\""},
			Env:     []string{"QUILL_TEST_MARKER=present"},
		})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if out.Stdout != "present" {
			t.Errorf("Stdout = %q, want env value", out.Stdout)
		}
	})
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{limit: 4}
	for _, chunk := range []string{"ab", "cd", "ef"} {
		n, err := b.Write([]byte(chunk))
		if err != nil || n != 2 {
			t.Fatalf("Write() = (%d, %v), want (2, nil)", n, err)
		}
	}
	if b.String() != "abcd" {
		t.Errorf("String() = %q, want %q", b.String(), "abcd")
	}
	if !b.truncated() {
		t.Error("truncated() = false, want true")
	}
}
