package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/talon-sec/talon/llm"
)

// CTF is the handle to the target environment injected into tools that
// declare the capability. Implementations typically run the command inside
// the challenge container rather than on the attacker machine.
type CTF interface {
	// Shell runs a command line in the target environment and returns its
	// combined output.
	Shell(ctx context.Context, command string) (string, error)
}

// Invocation carries everything a handler receives for one call.
type Invocation struct {
	// Args holds the model-provided arguments, decoded from JSON.
	Args map[string]any

	// ContextVars is the run's mutable context-variable mapping. Nil unless
	// the tool declares WantsContextVars.
	ContextVars map[string]any

	// CTF is the target handle. Nil unless the tool declares WantsCTF and
	// a handle is configured on the runner.
	CTF CTF
}

// Handler implements a tool. The return value may be a string, a *Result,
// or any value with a reasonable string form; Normalize folds them all into
// a Result. Returning an error is fatal to the run unless it is a context
// cancellation, which the dispatcher converts into an interrupted result.
type Handler func(ctx context.Context, inv Invocation) (any, error)

// Tool is an immutable callable exposed to the model.
type Tool struct {
	name        string
	description string
	parameters  map[string]any
	handler     Handler

	wantsContextVars bool
	wantsCTF         bool
}

// Name returns the tool's unique name.
func (t *Tool) Name() string { return t.name }

// Description returns the tool's description.
func (t *Tool) Description() string { return t.description }

// Parameters returns the JSON schema of the tool's arguments.
func (t *Tool) Parameters() map[string]any { return t.parameters }

// WantsContextVars reports whether the dispatcher should inject the running
// context-variable mapping.
func (t *Tool) WantsContextVars() bool { return t.wantsContextVars }

// WantsCTF reports whether the dispatcher should inject the CTF handle.
func (t *Tool) WantsCTF() bool { return t.wantsCTF }

// Def returns the tool definition advertised to the model.
func (t *Tool) Def() llm.ToolDef {
	return llm.ToolDef{
		Name:        t.name,
		Description: t.description,
		Parameters:  t.parameters,
	}
}

// Call invokes the handler.
func (t *Tool) Call(ctx context.Context, inv Invocation) (any, error) {
	return t.handler(ctx, inv)
}

// KnownArgs reports whether every provided argument name appears in the
// tool's parameter schema. Open models hallucinating a handoff signature
// invent argument names; the dispatcher detects that here and retries the
// call with zero arguments instead of failing.
func (t *Tool) KnownArgs(args map[string]any) bool {
	props, _ := t.parameters["properties"].(map[string]any)
	for name := range args {
		if _, ok := props[name]; !ok {
			return false
		}
	}
	return true
}

// Result encapsulates a tool's normalized return value.
type Result struct {
	// Value is the result content as a string, already truncated by the
	// dispatcher when over the per-message limit.
	Value string

	// NextAgent names the agent control should hand off to. Empty means no
	// handoff.
	NextAgent string

	// ContextVars holds updates merged into the running context mapping.
	ContextVars map[string]any
}

// Handoff builds the Result signaling a transfer of control to the named
// agent. The value is the JSON tag the model sees in the transcript.
func Handoff(agentName string) *Result {
	payload, _ := json.Marshal(map[string]string{"assistant": agentName})
	return &Result{Value: string(payload), NextAgent: agentName}
}

// Normalize folds a handler's raw return value into a Result.
func Normalize(raw any) *Result {
	switch v := raw.(type) {
	case *Result:
		if v == nil {
			return &Result{}
		}
		return v
	case Result:
		return &v
	case string:
		return &Result{Value: v}
	case fmt.Stringer:
		return &Result{Value: v.String()}
	case nil:
		return &Result{}
	default:
		return &Result{Value: fmt.Sprintf("%v", v)}
	}
}

// Truncate caps s at max characters, keeping the first and last halves when
// it is too long. The lead-in shows what ran; the tail is where errors and
// flags usually are.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	half := max / 2
	return s[:half] + s[len(s)-half:]
}
