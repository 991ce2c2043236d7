package tool

import (
	"context"
	"strings"
	"testing"
)

func TestNew_RequiredFields(t *testing.T) {
	h := func(ctx context.Context, inv Invocation) (any, error) { return "", nil }

	if _, err := New(nil); err == nil {
		t.Error("New(nil) did not error")
	}
	if _, err := New(NewConfig().SetHandler(h)); err == nil {
		t.Error("New() without name did not error")
	}
	if _, err := New(NewConfig().SetName("x")); err == nil {
		t.Error("New() without handler did not error")
	}

	tl, err := New(NewConfig().SetName("shell").SetDescription("run a command").SetHandler(h))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tl.Name() != "shell" {
		t.Errorf("Name() = %q", tl.Name())
	}
	def := tl.Def()
	if def.Name != "shell" || def.Parameters == nil {
		t.Errorf("Def() = %+v", def)
	}
}

func TestTool_KnownArgs(t *testing.T) {
	tl := MustNew(NewConfig().
		SetName("shell").
		SetParameters(ObjectSchema(map[string]any{
			"command": StringParam("command line"),
			"timeout": IntParam("seconds"),
		}, "command")).
		SetHandler(func(ctx context.Context, inv Invocation) (any, error) { return "", nil }))

	if !tl.KnownArgs(map[string]any{"command": "ls"}) {
		t.Error("declared arg reported unknown")
	}
	if !tl.KnownArgs(map[string]any{}) {
		t.Error("empty args reported unknown")
	}
	// A hallucinated handoff signature invents argument names.
	if tl.KnownArgs(map[string]any{"agent": "recon"}) {
		t.Error("undeclared arg reported known")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("plain output"); got.Value != "plain output" || got.NextAgent != "" {
		t.Errorf("Normalize(string) = %+v", got)
	}

	r := &Result{Value: "v", NextAgent: "recon", ContextVars: map[string]any{"k": 1}}
	if got := Normalize(r); got != r {
		t.Error("Normalize(*Result) did not pass through")
	}

	if got := Normalize(Result{Value: "by value"}); got.Value != "by value" {
		t.Errorf("Normalize(Result) = %+v", got)
	}

	if got := Normalize(42); got.Value != "42" {
		t.Errorf("Normalize(int) = %q, want \"42\"", got.Value)
	}

	if got := Normalize(nil); got.Value != "" {
		t.Errorf("Normalize(nil) = %+v", got)
	}
}

func TestHandoff(t *testing.T) {
	r := Handoff("exploit-agent")
	if r.NextAgent != "exploit-agent" {
		t.Errorf("NextAgent = %q", r.NextAgent)
	}
	if !strings.Contains(r.Value, `"assistant":"exploit-agent"`) {
		t.Errorf("Value = %q, want assistant JSON tag", r.Value)
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("a", 60) + strings.Repeat("z", 60)

	got := Truncate(long, 100)
	if len(got) != 100 {
		t.Fatalf("len = %d, want 100", len(got))
	}
	if got[:50] != long[:50] {
		t.Error("head not preserved")
	}
	if got[50:] != long[len(long)-50:] {
		t.Error("tail not preserved")
	}

	short := "short"
	if Truncate(short, 100) != short {
		t.Error("short string was modified")
	}
	if Truncate(long, 0) != long {
		t.Error("zero limit should disable truncation")
	}
}
