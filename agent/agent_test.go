package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/talon-sec/talon/tool"
)

func echoTool(t *testing.T, name string) *tool.Tool {
	t.Helper()
	tl, err := tool.New(tool.NewConfig().
		SetName(name).
		SetDescription("echoes").
		SetHandler(func(ctx context.Context, inv tool.Invocation) (any, error) {
			return "ok", nil
		}))
	if err != nil {
		t.Fatalf("tool.New() error = %v", err)
	}
	return tl
}

func TestAgent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		agent   Agent
		wantErr bool
	}{
		{"valid", Agent{Name: "recon", Model: "gpt-4o", Instructions: "scan"}, false},
		{"missing name", Agent{Model: "gpt-4o", Instructions: "scan"}, true},
		{"missing model", Agent{Name: "recon", Instructions: "scan"}, true},
		{"missing instructions", Agent{Name: "recon", Model: "gpt-4o"}, true},
		{
			"deferred instructions",
			Agent{Name: "recon", Model: "gpt-4o", InstructionsFunc: func(ContextVars) string { return "x" }},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.agent.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAgent_SystemPrompt(t *testing.T) {
	static := Agent{Name: "a", Model: "m", Instructions: "static prompt"}
	if got := static.SystemPrompt(nil); got != "static prompt" {
		t.Errorf("SystemPrompt() = %q", got)
	}

	deferred := Agent{
		Name:  "a",
		Model: "m",
		InstructionsFunc: func(vars ContextVars) string {
			return "target is " + vars["target"].(string)
		},
	}
	got := deferred.SystemPrompt(ContextVars{"target": "10.0.0.5"})
	if got != "target is 10.0.0.5" {
		t.Errorf("SystemPrompt() = %q", got)
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()

	a := &Agent{Name: "recon", Model: "gpt-4o", Instructions: "scan", Tools: []*tool.Tool{echoTool(t, "shell")}}
	if err := reg.Register(a); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, err := reg.Lookup("recon")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if got != a {
		t.Error("Lookup() returned a different agent")
	}

	if err := reg.Register(a); err == nil {
		t.Error("duplicate Register() did not error")
	}

	if _, err := reg.Lookup("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Lookup(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := reg.Register(&Agent{Name: name, Model: "m", Instructions: "i"}); err != nil {
			t.Fatal(err)
		}
	}

	names := reg.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestResolveHandoff_LastWins(t *testing.T) {
	results := []*tool.Result{
		{Value: "a", NextAgent: "first"},
		{Value: "b"},
		nil,
		{Value: "c", NextAgent: "last"},
		{Value: "d"},
	}
	if got := ResolveHandoff(results); got != "last" {
		t.Errorf("ResolveHandoff() = %q, want %q", got, "last")
	}

	if got := ResolveHandoff([]*tool.Result{{Value: "x"}}); got != "" {
		t.Errorf("ResolveHandoff() = %q, want empty", got)
	}

	// Self-handoff is legitimate; no cycle detection.
	if got := ResolveHandoff([]*tool.Result{{NextAgent: "self"}}); got != "self" {
		t.Errorf("ResolveHandoff() = %q, want %q", got, "self")
	}
}

func TestAgent_FindTool(t *testing.T) {
	a := Agent{
		Name: "recon", Model: "m", Instructions: "i",
		Tools: []*tool.Tool{echoTool(t, "shell"), echoTool(t, "netcat")},
	}

	if _, ok := a.FindTool("netcat"); !ok {
		t.Error("FindTool(netcat) not found")
	}
	if _, ok := a.FindTool("nmap"); ok {
		t.Error("FindTool(nmap) unexpectedly found")
	}

	defs := a.ToolDefs()
	if len(defs) != 2 || defs[0].Name != "shell" {
		t.Errorf("ToolDefs() = %+v", defs)
	}
}
