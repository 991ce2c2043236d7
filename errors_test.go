package talon

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := &Error{Op: "Runner.Run", Kind: KindExecution, Err: ErrExecutionFailed}
	want := "talon: Runner.Run (execution): execution failed"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	bare := &Error{Op: "Runner.Run", Kind: KindInternal}
	if !strings.Contains(bare.Error(), "internal") {
		t.Errorf("Error() without cause = %q", bare.Error())
	}

	withCtx := err.WithContext(map[string]any{"agent": "red_teamer"})
	if !strings.Contains(withCtx.Error(), "red_teamer") {
		t.Errorf("Error() with context = %q", withCtx.Error())
	}
	// WithContext must not mutate the original.
	if err.Context != nil {
		t.Error("WithContext mutated the receiver")
	}
}

func TestErrorUnwrap(t *testing.T) {
	underlying := fmt.Errorf("wrapped: %w", ErrAgentNotFound)
	err := NewNotFoundError("Registry.Lookup", underlying)

	if !errors.Is(err, ErrAgentNotFound) {
		t.Error("errors.Is failed to find the sentinel through Error")
	}

	var structured *Error
	if !errors.As(err, &structured) {
		t.Fatal("errors.As failed")
	}
	if structured.Kind != KindNotFound {
		t.Errorf("Kind = %q, want %q", structured.Kind, KindNotFound)
	}
}

func TestErrorIsKindMatching(t *testing.T) {
	err := NewExecutionError("Tool.Call", ErrExecutionFailed)

	if !errors.Is(err, &Error{Kind: KindExecution}) {
		t.Error("kind-only match failed")
	}
	if errors.Is(err, &Error{Kind: KindNotFound}) {
		t.Error("mismatched kind matched")
	}
	if !errors.Is(err, &Error{Op: "Tool.Call", Kind: KindExecution}) {
		t.Error("op+kind match failed")
	}
	if errors.Is(err, &Error{Op: "Other.Op", Kind: KindExecution}) {
		t.Error("mismatched op matched")
	}
}

func TestErrorConstructors(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		err  *Error
		kind string
	}{
		{NewNotFoundError("op", cause), KindNotFound},
		{NewValidationError("op", cause), KindValidation},
		{NewExecutionError("op", cause), KindExecution},
		{NewConfigurationError("op", cause), KindConfiguration},
		{NewProviderError("op", cause), KindProvider},
		{NewInterruptedError("op", cause), KindInterrupted},
		{NewInternalError("op", cause), KindInternal},
	}
	for _, tt := range tests {
		if tt.err.Kind != tt.kind {
			t.Errorf("constructor produced kind %q, want %q", tt.err.Kind, tt.kind)
		}
		if !errors.Is(tt.err, cause) {
			t.Errorf("%s lost its cause", tt.kind)
		}
	}
}

type failingCloser struct{}

func (failingCloser) Close() error { return errors.New("close failed") }

func TestCloseWithLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	CloseWithLog(failingCloser{}, logger, "test resource")
	if !strings.Contains(buf.String(), "test resource") {
		t.Errorf("log output = %q", buf.String())
	}

	// Nil closer is a no-op.
	CloseWithLog(nil, logger, "nothing")

	CloseWithLog(io.NopCloser(strings.NewReader("")), logger, "ok resource")
}
