package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/talon-sec/talon/agent"
	"github.com/talon-sec/talon/tool"
)

// Mode selects which memory builders the engine interleaves.
type Mode string

const (
	// ModeOff disables memory interleaving.
	ModeOff Mode = ""

	// ModeEpisodic interleaves the episodic builder, which records
	// concrete facts from recent steps before each cadence boundary.
	ModeEpisodic Mode = "episodic"

	// ModeSemantic interleaves the semantic builder, which condenses the
	// whole run so far into a compact summary after each cadence boundary.
	ModeSemantic Mode = "semantic"

	// ModeAll interleaves both builders.
	ModeAll Mode = "all"
)

// Episodic reports whether the mode includes the episodic builder.
func (m Mode) EpisodicEnabled() bool { return m == ModeEpisodic || m == ModeAll }

// SemanticEnabled reports whether the mode includes the semantic builder.
func (m Mode) SemanticEnabled() bool { return m == ModeSemantic || m == ModeAll }

const builderInstructions = `You are a specialized memory manager for an ongoing security assessment.

INSTRUCTIONS:
1. Record new information into persistent memory with the store_memory tool
2. Add only facts observed in previous tool executions, not next steps or assumptions
3. Include all ports, services, credentials, file paths and network information discovered
4. Be detailed; useful context shortens future runs
5. Do not repeat facts already stored

Previously stored memory:
----------------------------
%s
----------------------------`

// BuilderAgent constructs a memory-builder agent writing into store under
// the given run id. The agent carries a single store_memory tool and
// required tool choice, so every interleaved interaction persists something.
func BuilderAgent(name, model, run string, store Store) *agent.Agent {
	storeTool := tool.MustNew(tool.NewConfig().
		SetName("store_memory").
		SetDescription("Persist a memory about the current assessment. Pass concrete facts: open ports, credentials, exploited services, file locations.").
		SetParameters(tool.ObjectSchema(map[string]any{
			"summary": tool.StringParam("The facts to remember"),
		}, "summary")).
		SetHandler(func(ctx context.Context, inv tool.Invocation) (any, error) {
			summary, _ := inv.Args["summary"].(string)
			if strings.TrimSpace(summary) == "" {
				return "Nothing to store.", nil
			}
			err := store.Episodic().Append(ctx, Entry{
				ID:        uuid.NewString(),
				Run:       run,
				Agent:     name,
				Summary:   summary,
				CreatedAt: time.Now(),
			})
			if err != nil {
				return nil, err
			}
			return "Memory stored.", nil
		}))

	return &agent.Agent{
		Name:  name,
		Model: model,
		InstructionsFunc: func(vars agent.ContextVars) string {
			return fmt.Sprintf(builderInstructions, recentSummaries(store, run))
		},
		Tools:      []*tool.Tool{storeTool},
		ToolChoice: "required",
	}
}

func recentSummaries(store Store, run string) string {
	entries, err := store.Episodic().Recent(context.Background(), run, 10)
	if err != nil || len(entries) == 0 {
		return "No previous memory"
	}
	var b strings.Builder
	for _, e := range entries {
		b.WriteString("- ")
		b.WriteString(e.Summary)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
