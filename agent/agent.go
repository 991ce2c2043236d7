package agent

import (
	"errors"

	"github.com/talon-sec/talon/llm"
	"github.com/talon-sec/talon/tool"
)

// ContextVars is the mutable mapping threaded through a run. Tools read and
// update it; instructions may be computed from it.
type ContextVars map[string]any

// Clone returns a shallow copy of the mapping.
func (v ContextVars) Clone() ContextVars {
	out := make(ContextVars, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Merge applies updates in place and returns the receiver.
func (v ContextVars) Merge(updates map[string]any) ContextVars {
	for k, val := range updates {
		v[k] = val
	}
	return v
}

// InstructionsFunc computes an agent's instructions from the current
// context variables at completion time.
type InstructionsFunc func(vars ContextVars) string

// Agent is an immutable description of one agent: identity, model, system
// instructions, and the tools it may call. Agents are registered once and
// exchanged by name during handoffs.
type Agent struct {
	// Name uniquely identifies the agent in the registry.
	Name string

	// Model is the model identifier completions are requested with.
	Model string

	// Instructions is the static system prompt. Ignored when
	// InstructionsFunc is set.
	Instructions string

	// InstructionsFunc, when set, computes the system prompt per
	// interaction from the context variables.
	InstructionsFunc InstructionsFunc

	// Tools is the ordered set of tools exposed to the model.
	Tools []*tool.Tool

	// ToolChoice constrains tool use ("auto", "required", "none").
	ToolChoice llm.ToolChoice

	// ParallelToolCalls allows multiple tool calls per response.
	ParallelToolCalls bool

	// ReasoningEffort is passed through to reasoning-class models.
	ReasoningEffort string

	// ResponseSchema, when set, requests structured output conforming to
	// the schema. Used by the network-state builder agent.
	ResponseSchema map[string]any

	// Temperature overrides the sampling temperature. Nil keeps the
	// backend default.
	Temperature *float64
}

// SystemPrompt returns the instructions for the current context.
func (a *Agent) SystemPrompt(vars ContextVars) string {
	if a.InstructionsFunc != nil {
		return a.InstructionsFunc(vars)
	}
	return a.Instructions
}

// ToolDefs returns the definitions advertised to the model.
func (a *Agent) ToolDefs() []llm.ToolDef {
	if len(a.Tools) == 0 {
		return nil
	}
	defs := make([]llm.ToolDef, 0, len(a.Tools))
	for _, t := range a.Tools {
		defs = append(defs, t.Def())
	}
	return defs
}

// FindTool returns the agent's tool with the given name.
func (a *Agent) FindTool(name string) (*tool.Tool, bool) {
	for _, t := range a.Tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Validate checks that the agent is well formed.
func (a *Agent) Validate() error {
	if a.Name == "" {
		return errors.New("agent name is required")
	}
	if a.Model == "" {
		return errors.New("agent model is required")
	}
	if a.Instructions == "" && a.InstructionsFunc == nil {
		return errors.New("agent instructions are required")
	}
	seen := make(map[string]struct{}, len(a.Tools))
	for _, t := range a.Tools {
		if _, dup := seen[t.Name()]; dup {
			return errors.New("duplicate tool name: " + t.Name())
		}
		seen[t.Name()] = struct{}{}
	}
	return nil
}
