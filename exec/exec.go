// Package exec runs non-interactive commands synchronously to completion
// with captured output. Interactive commands go through the session
// registry instead; this package is the fast path for everything else.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Config holds the configuration for one shell execution.
type Config struct {
	// Command is the full command line, run through the shell so pipes and
	// chaining work (required).
	Command string

	// WorkDir is the working directory for the command (optional).
	WorkDir string

	// Env specifies environment variables in "KEY=value" form (optional).
	// Nil inherits the parent environment.
	Env []string

	// Timeout bounds the execution. Zero uses the parent context only.
	Timeout time.Duration

	// Stdin is data sent to the command's stdin (optional).
	Stdin []byte
}

// Result holds the outcome of a completed command.
type Result struct {
	// Stdout is the captured standard output.
	Stdout []byte

	// Stderr is the captured standard error.
	Stderr []byte

	// ExitCode is the process exit code. Non-zero is not an error; the
	// caller decides how to treat it.
	ExitCode int

	// Duration is the wall-clock execution time.
	Duration time.Duration
}

// Output returns stdout, falling back to stderr when stdout is empty.
// Tool results surface this to the model.
func (r *Result) Output() string {
	if len(r.Stdout) > 0 {
		return string(r.Stdout)
	}
	return string(r.Stderr)
}

// Shell runs a command line via `sh -c` and captures its output. It
// respects context cancellation and the configured timeout; on either the
// process is killed. Only actual execution failures return an error; a
// non-zero exit comes back in the Result.
func Shell(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Command == "" {
		return nil, errors.New("command is required")
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", cfg.Command)
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}
	if cfg.Env != nil {
		cmd.Env = cfg.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if len(cfg.Stdin) > 0 {
		cmd.Stdin = bytes.NewReader(cfg.Stdin)
	}

	start := time.Now()
	err := cmd.Run()

	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return result, fmt.Errorf("command timed out after %v", cfg.Timeout)
		}
		if ctx.Err() == context.Canceled {
			return result, context.Canceled
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("command execution failed: %w", err)
	}

	return result, nil
}

// BinaryExists checks if a binary exists in the system PATH.
func BinaryExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
