// Package agentproc runs external AI CLI processes and captures their
// output for downstream parsing. It knows nothing about providers or
// prompts; it just executes, caps, and times.
package agentproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single agent run. Generation calls routinely
	// take minutes; anything past this is treated as hung.
	DefaultTimeout = 5 * time.Minute

	// DefaultMaxOutputBytes caps captured stdout.
	DefaultMaxOutputBytes = 4 << 20

	// stderr is only kept as a diagnostic tail, never parsed.
	stderrTailBytes = 4 << 10
)

// TimeoutError reports an agent CLI exceeding its allotted run time.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Command, e.Timeout)
}

// Invocation describes one agent CLI run.
type Invocation struct {
	Command string
	Args    []string
	// Prompt is written to the process's stdin when non-empty.
	Prompt string
	// Dir is the working directory. Empty inherits the parent's.
	Dir string
	// Env entries are appended to the parent environment.
	Env []string
	// Timeout bounds the run. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Output is what the process produced.
type Output struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
	// Truncated reports stdout exceeding the capture cap.
	Truncated bool
}

// Runner executes agent CLIs. The zero value is usable.
type Runner struct {
	// MaxOutputBytes caps captured stdout. Zero means DefaultMaxOutputBytes.
	MaxOutputBytes int64
	Logger         *slog.Logger
}

// Run executes the invocation and returns its captured output. The process
// is killed when the timeout or the caller's context expires.
func (r *Runner) Run(ctx context.Context, inv Invocation) (Output, error) {
	if inv.Command == "" {
		return Output{}, errors.New("agent command is required")
	}

	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxOutput := r.MaxOutputBytes
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutputBytes
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, inv.Command, inv.Args...)
	if inv.Dir != "" {
		cmd.Dir = inv.Dir
	}
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}
	if inv.Prompt != "" {
		cmd.Stdin = strings.NewReader(inv.Prompt)
	}

	stdout := &cappedBuffer{limit: maxOutput}
	stderr := &cappedBuffer{limit: stderrTailBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger.Debug("running agent process", "command", inv.Command, "args", inv.Args, "timeout", timeout)
	start := time.Now()
	runErr := cmd.Run()

	out := Output{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Duration:  time.Since(start),
		Truncated: stdout.truncated(),
	}

	// The caller's cancellation wins over the per-run deadline.
	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	if runCtx.Err() == context.DeadlineExceeded {
		logger.Warn("agent process timed out", "command", inv.Command, "timeout", timeout)
		return out, &TimeoutError{Command: inv.Command, Timeout: timeout}
	}
	if runErr != nil {
		msg := strings.TrimSpace(out.Stderr)
		if msg == "" {
			msg = runErr.Error()
		}
		return out, fmt.Errorf("%s failed: %s", inv.Command, msg)
	}

	logger.Debug("agent process finished",
		"command", inv.Command,
		"duration", out.Duration,
		"stdout_bytes", len(out.Stdout),
		"truncated", out.Truncated)
	return out, nil
}

// cappedBuffer keeps the first limit bytes written and drops the rest,
// never surfacing a write error to the process.
type cappedBuffer struct {
	buf     bytes.Buffer
	limit   int64
	dropped int64
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - int64(b.buf.Len())
	switch {
	case room <= 0:
		b.dropped += int64(len(p))
	case int64(len(p)) <= room:
		b.buf.Write(p)
	default:
		b.buf.Write(p[:room])
		b.dropped += int64(len(p)) - room
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string { return b.buf.String() }

func (b *cappedBuffer) truncated() bool { return b.dropped > 0 }
