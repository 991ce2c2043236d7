package talon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/talon-sec/talon/agent"
	"github.com/talon-sec/talon/config"
	"github.com/talon-sec/talon/llm"
	"github.com/talon-sec/talon/tool"
)

func textProvider(content string) llm.Provider {
	return llm.ProviderFunc(func(_ context.Context, _ llm.Request) (*llm.Response, error) {
		return &llm.Response{Content: content}, nil
	})
}

func testRegistry(t *testing.T) *agent.Registry {
	t.Helper()
	reg := agent.NewRegistry()
	err := reg.Register(&agent.Agent{
		Name:         "red_teamer",
		Model:        "gpt-4o",
		Instructions: "You are a CTF agent.",
	})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestNewRunner(t *testing.T) {
	runner, err := NewRunner(textProvider("done"), testRegistry(t))
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	resp, err := runner.Run(context.Background(), "red_teamer", []llm.Message{llm.UserMessage("go")}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(resp.Messages) != 1 {
		t.Errorf("appended %d messages, want 1", len(resp.Messages))
	}
}

func TestNewRunnerInvalid(t *testing.T) {
	_, err := NewRunner(nil, testRegistry(t))
	if err == nil {
		t.Fatal("NewRunner(nil provider) succeeded")
	}
	if !errors.Is(err, &Error{Kind: KindConfiguration}) {
		t.Errorf("error = %v, want configuration kind", err)
	}
}

func TestNewTool(t *testing.T) {
	built, err := NewTool(tool.NewConfig().
		SetName("whoami").
		SetDescription("Report the current user.").
		SetParameters(tool.ObjectSchema(nil)).
		SetHandler(func(_ context.Context, _ tool.Invocation) (any, error) {
			return "root", nil
		}))
	if err != nil {
		t.Fatalf("NewTool() error = %v", err)
	}
	if built.Name() != "whoami" {
		t.Errorf("Name() = %q", built.Name())
	}

	if _, err := NewTool(tool.NewConfig()); err == nil {
		t.Error("NewTool() accepted an empty config")
	}
	if _, err := NewTool(tool.NewConfig()); !errors.Is(err, &Error{Kind: KindValidation}) {
		t.Error("empty-config error is not validation kind")
	}
}

func TestNewShellTool(t *testing.T) {
	shell, sessions := NewShellTool(&config.SessionConfig{
		Markers:        []string{"customsh"},
		Timeout:        "1s",
		PreserveOutput: true,
	})
	defer sessions.KillAll()

	if shell.Name() != "generic_linux_command" {
		t.Errorf("Name() = %q", shell.Name())
	}
	if !sessions.IsInteractive("customsh -l 4444") {
		t.Error("configured marker not interactive")
	}
	if sessions.IsInteractive("nc -l 4444") {
		t.Error("default markers survived a replacement list")
	}

	out, err := shell.Call(context.Background(), tool.Invocation{
		Args: map[string]any{"command": "session", "args": "list"},
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if out != "No active sessions" {
		t.Errorf("session list = %v", out)
	}

	// Nil config falls back to the default marker set and timeout.
	_, defaults := NewShellTool(nil)
	defer defaults.KillAll()
	if !defaults.IsInteractive("nc -l 4444") {
		t.Error("default markers missing under nil config")
	}
}

func TestFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Model: "gpt-4o",
		Budget: &config.BudgetConfig{
			MaxTurns: 10,
		},
		StopExpression: `interactions >= 1`,
		Memory: &config.MemoryConfig{
			Mode: "episodic",
		},
		State: &config.StateConfig{Enabled: true},
		Log:   &config.LogConfig{Dir: dir},
	}

	runner, cleanup, err := FromConfig(context.Background(), cfg, textProvider("done"), testRegistry(t))
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	defer cleanup()

	resp, err := runner.Run(context.Background(), "red_teamer", []llm.Message{llm.UserMessage("go")}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if resp.Interactions != 1 {
		t.Errorf("interactions = %d, want 1", resp.Interactions)
	}

	// The configured log directory received a transcript.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || filepath.Ext(entries[0].Name()) != ".jsonl" {
		t.Errorf("log dir entries = %v", entries)
	}
}

func TestFromConfigInvalid(t *testing.T) {
	if _, _, err := FromConfig(context.Background(), nil, textProvider(""), testRegistry(t)); err == nil {
		t.Error("FromConfig(nil) succeeded")
	}

	bad := &config.Config{Model: "gpt-4o", StopExpression: "not valid ("}
	if _, _, err := FromConfig(context.Background(), bad, textProvider(""), testRegistry(t)); err == nil {
		t.Error("FromConfig() accepted a broken stop expression")
	}
}
