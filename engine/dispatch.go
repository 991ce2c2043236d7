package engine

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/talon-sec/talon/agent"
	"github.com/talon-sec/talon/llm"
	"github.com/talon-sec/talon/tool"
)

// interruptedResult is what the model sees for a tool call cut short by
// cancellation.
const interruptedResult = "Command interrupted by user"

// dispatchOutcome aggregates one batch of tool calls. messages carries
// exactly one tool-result per requested call, in request order; the
// provider's message threading depends on that correspondence.
type dispatchOutcome struct {
	messages    []llm.Message
	results     []*tool.Result
	interrupted bool
}

// dispatch executes the batch of tool calls requested in one interaction.
// Unknown tools and malformed arguments become error results and the batch
// continues; cancellation converts the remaining calls to interrupted
// results; any other tool error is fatal and returns immediately.
//
// Context-variable updates merge into vars sequentially, so later calls in
// the batch observe earlier calls' updates.
func (r *Runner) dispatch(ctx context.Context, calls []llm.ToolCall, ag *agent.Agent, vars agent.ContextVars) (dispatchOutcome, error) {
	ctx, span := r.tracer.Start(ctx, "engine.dispatch", trace.WithAttributes(
		attribute.String("agent", ag.Name),
		attribute.Int("calls", len(calls)),
	))
	defer span.End()

	var out dispatchOutcome
	for _, call := range calls {
		if out.interrupted || ctx.Err() != nil {
			out.interrupted = true
			out.append(call, &tool.Result{Value: interruptedResult})
			continue
		}

		t, ok := ag.FindTool(call.Name)
		if !ok {
			r.log.Warn("unknown tool requested", "run", r.runID, "agent", ag.Name, "tool", call.Name)
			out.append(call, &tool.Result{Value: fmt.Sprintf("Error: Tool %s not found", call.Name)})
			continue
		}

		args, err := call.ArgsMap()
		if err != nil {
			r.log.Warn("malformed tool arguments", "run", r.runID, "tool", call.Name, "error", err)
			out.append(call, &tool.Result{Value: fmt.Sprintf("Error: invalid arguments for %s: %v", call.Name, err)})
			continue
		}

		// Open models hallucinating a handoff signature invent argument
		// names the tool never declared. Retry with zero arguments
		// instead of failing the batch.
		if !t.KnownArgs(args) {
			r.log.Warn("unexpected tool arguments, retrying bare", "run", r.runID, "tool", call.Name)
			args = map[string]any{}
		}

		inv := tool.Invocation{Args: args}
		if t.WantsContextVars() {
			inv.ContextVars = vars
		}
		if t.WantsCTF() {
			inv.CTF = r.ctf
		}

		raw, err := t.Call(ctx, inv)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				out.interrupted = true
				out.append(call, &tool.Result{Value: interruptedResult})
				continue
			}
			return out, fmt.Errorf("engine: tool %s: %w", call.Name, err)
		}

		res := tool.Normalize(raw)
		res.Value = tool.Truncate(res.Value, r.maxChars)
		vars.Merge(res.ContextVars)
		out.append(call, res)
	}
	return out, nil
}

func (o *dispatchOutcome) append(call llm.ToolCall, res *tool.Result) {
	o.results = append(o.results, res)
	o.messages = append(o.messages, llm.ToolMessage(call.ID, call.Name, res.Value))
}
