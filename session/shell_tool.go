package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/talon-sec/talon/exec"
	"github.com/talon-sec/talon/tool"
)

// ShellToolConfig tunes the generic command tool.
type ShellToolConfig struct {
	// Timeout bounds synchronous commands. Defaults to 2 minutes.
	Timeout time.Duration

	// SendWait is how long to wait for session output after sending input
	// before reading the buffer back. Defaults to 250ms.
	SendWait time.Duration

	// WorkDir is the working directory for synchronous commands.
	WorkDir string
}

// ShellTool builds the generic command tool: synchronous execution for
// ordinary commands, session-routed execution for interactive ones, and the
// `session list|output <id>|kill <id>` pseudo-command surface, all
// multiplexed through one tool-call channel.
func ShellTool(reg *Registry, cfg ShellToolConfig) *tool.Tool {
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.SendWait == 0 {
		cfg.SendWait = 250 * time.Millisecond
	}

	return tool.MustNew(tool.NewConfig().
		SetName("generic_linux_command").
		SetDescription("Run a Linux command. Interactive commands (nc, ssh, telnet, ...) start a background session; pass session_id to send input to an existing session. Use command=\"session\" with args \"list\", \"output <id>\" or \"kill <id>\" to manage sessions.").
		SetParameters(tool.ObjectSchema(map[string]any{
			"command":    tool.StringParam("Command name, e.g. \"nmap\" or \"session\""),
			"args":       tool.StringParam("Command arguments"),
			"async_mode": tool.BoolParam("Force the command into a background session"),
			"session_id": tool.StringParam("Existing session to send the command to"),
		}, "command")).
		WithCTF().
		SetHandler(func(ctx context.Context, inv tool.Invocation) (any, error) {
			return runShell(ctx, reg, cfg, inv)
		}))
}

func runShell(ctx context.Context, reg *Registry, cfg ShellToolConfig, inv tool.Invocation) (any, error) {
	command, _ := inv.Args["command"].(string)
	args, _ := inv.Args["args"].(string)
	sessionID, _ := inv.Args["session_id"].(string)
	asyncMode, _ := inv.Args["async_mode"].(bool)

	if command == "" {
		return "Error: no command provided.", nil
	}

	if command == "session" {
		return sessionCommand(reg, args), nil
	}

	full := strings.TrimSpace(command + " " + args)

	// Input routed to an existing session.
	if sessionID != "" {
		if err := reg.Send(sessionID, full); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Sprintf("Session %s not found", sessionID), nil
			}
			return nil, err
		}
		select {
		case <-time.After(cfg.SendWait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		out, err := reg.Read(sessionID)
		if err != nil {
			return nil, err
		}
		if out == "" {
			return fmt.Sprintf("Sent to session %s (no output yet)", sessionID), nil
		}
		return out, nil
	}

	// Interactive commands run detached.
	if asyncMode || reg.IsInteractive(full) {
		id, err := reg.Start(full)
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf(
			"Started async session %s for %q. Pass session_id=%s to send input, or use `session output %s` to read its buffer.",
			id, full, id, id,
		), nil
	}

	// Commands against the CTF target run through its handle.
	if inv.CTF != nil {
		out, err := inv.CTF.Shell(ctx, full)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			return fmt.Sprintf("Error executing CTF command: %v", err), nil
		}
		return out, nil
	}

	result, err := exec.Shell(ctx, exec.Config{
		Command: full,
		Timeout: cfg.Timeout,
		WorkDir: cfg.WorkDir,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return fmt.Sprintf("Error executing command: %v", err), nil
	}
	return result.Output(), nil
}

func sessionCommand(reg *Registry, args string) string {
	switch {
	case args == "list":
		sessions := reg.List()
		if len(sessions) == 0 {
			return "No active sessions"
		}
		var b strings.Builder
		b.WriteString("Active sessions:\n")
		for _, s := range sessions {
			fmt.Fprintf(&b, "ID: %s | Command: %s | State: %s | Last activity: %s\n",
				s.ID, s.Command, s.State, s.LastActivity.Format(time.RFC3339))
		}
		return b.String()

	case strings.HasPrefix(args, "output "):
		id := strings.TrimSpace(strings.TrimPrefix(args, "output "))
		out, err := reg.Read(id)
		if err != nil {
			return fmt.Sprintf("Session %s not found", id)
		}
		if out == "" {
			return "(no new output)"
		}
		return out

	case strings.HasPrefix(args, "kill "):
		id := strings.TrimSpace(strings.TrimPrefix(args, "kill "))
		if err := reg.Kill(id); err != nil {
			return fmt.Sprintf("Session %s not found", id)
		}
		return fmt.Sprintf("Session %s terminated", id)

	default:
		return "Unknown session command. Available: list, output <id>, kill <id>"
	}
}
