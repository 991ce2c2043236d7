// Package engine implements the turn execution loop: ask the model, dispatch
// the tool calls it requested, feed the results back, repeat until the agent
// goes quiet, hands off to nobody, or a budget runs out. Memory builders and
// the network-state agent are interleaved on their cadences without touching
// the main thread of control.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/talon-sec/talon/agent"
	"github.com/talon-sec/talon/graph"
	"github.com/talon-sec/talon/llm"
	"github.com/talon-sec/talon/memory"
	"github.com/talon-sec/talon/netstate"
	"github.com/talon-sec/talon/policy"
	"github.com/talon-sec/talon/record"
	"github.com/talon-sec/talon/tool"
)

const (
	// DefaultMaxChars is the per-message truncation limit for tool output.
	DefaultMaxChars = 5000

	// DefaultMemoryInterval is the interaction cadence for memory builders.
	DefaultMemoryInterval = 5

	// DefaultStateThreshold is the number of interactions between
	// network-state refreshes.
	DefaultStateThreshold = 2
)

// ErrNoProvider is returned by New when no completion provider is configured.
var ErrNoProvider = errors.New("engine: no provider configured")

// ErrNoAgents is returned by New when no agent registry is configured.
var ErrNoAgents = errors.New("engine: no agent registry configured")

// Runner drives one or more agents against a target. A Runner owns its
// interaction graph, its token tracker and its network state; construct one
// per run.
type Runner struct {
	provider llm.Provider
	agents   *agent.Registry
	ctf      tool.CTF

	budget policy.Budget
	stop   *policy.StopCondition

	tracker  llm.TokenTracker
	recorder record.Recorder
	graph    *graph.Recorder
	tracer   trace.Tracer
	log      *slog.Logger

	maxChars int
	runID    string

	memoryMode     memory.Mode
	memoryStore    memory.Store
	memoryInterval int
	memoryModel    string

	stateAgent     *agent.Agent
	stateThreshold int
	netState       *netstate.NetworkState
}

// Option configures a Runner.
type Option func(*Runner)

// WithBudget sets the run's turn, cost and flag budget.
func WithBudget(b policy.Budget) Option {
	return func(r *Runner) { r.budget = b }
}

// WithStopCondition adds a compiled stop expression checked after every
// interaction.
func WithStopCondition(c *policy.StopCondition) Option {
	return func(r *Runner) { r.stop = c }
}

// WithCTF sets the target handle injected into tools that declare WantsCTF.
func WithCTF(ctf tool.CTF) Option {
	return func(r *Runner) { r.ctf = ctf }
}

// WithTracker replaces the default token tracker.
func WithTracker(t llm.TokenTracker) Option {
	return func(r *Runner) { r.tracker = t }
}

// WithRecorder sets the interaction log.
func WithRecorder(rec record.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithGraph replaces the Runner's own interaction graph recorder.
func WithGraph(g *graph.Recorder) Option {
	return func(r *Runner) { r.graph = g }
}

// WithTracer sets the tracer used for per-interaction spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithMaxChars sets the tool-output truncation limit. Zero disables
// truncation.
func WithMaxChars(n int) Option {
	return func(r *Runner) { r.maxChars = n }
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// WithMemory enables memory-builder interleaving in the given mode, writing
// through store.
func WithMemory(mode memory.Mode, store memory.Store) Option {
	return func(r *Runner) {
		r.memoryMode = mode
		r.memoryStore = store
	}
}

// WithMemoryInterval sets the interleave cadence in interactions.
func WithMemoryInterval(n int) Option {
	return func(r *Runner) { r.memoryInterval = n }
}

// WithMemoryModel sets the model memory builders complete with. Defaults to
// the starting agent's model.
func WithMemoryModel(model string) Option {
	return func(r *Runner) { r.memoryModel = model }
}

// WithStateAgent enables network-state tracking through the given agent,
// whose structured output must conform to netstate.Schema.
func WithStateAgent(a *agent.Agent) Option {
	return func(r *Runner) { r.stateAgent = a }
}

// WithStateThreshold sets how many interactions pass between state refreshes.
func WithStateThreshold(n int) Option {
	return func(r *Runner) { r.stateThreshold = n }
}

// New validates the configuration and builds a Runner.
func New(provider llm.Provider, agents *agent.Registry, opts ...Option) (*Runner, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	if agents == nil {
		return nil, ErrNoAgents
	}

	r := &Runner{
		provider:       provider,
		agents:         agents,
		maxChars:       DefaultMaxChars,
		memoryInterval: DefaultMemoryInterval,
		stateThreshold: DefaultStateThreshold,
		netState:       netstate.New(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.budget.Validate(); err != nil {
		return nil, err
	}
	if r.memoryMode != memory.ModeOff && r.memoryStore == nil {
		return nil, errors.New("engine: memory mode enabled without a store")
	}
	if r.tracker == nil {
		r.tracker = llm.NewTokenTracker()
	}
	if r.graph == nil {
		r.graph = graph.NewRecorder()
	}
	if r.tracer == nil {
		r.tracer = noop.NewTracerProvider().Tracer("talon/engine")
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	if r.runID == "" {
		r.runID = uuid.NewString()
	}
	return r, nil
}

// RunID returns the run identifier.
func (r *Runner) RunID() string { return r.runID }

// Graph returns the run's interaction graph.
func (r *Runner) Graph() *graph.Recorder { return r.graph }

// NetworkState returns the merged network state accumulated so far.
func (r *Runner) NetworkState() *netstate.NetworkState { return r.netState }

// Cost returns the cumulative completion spend in dollars.
func (r *Runner) Cost() float64 { return r.tracker.Cost() }

// Response is the outcome of one Run call.
type Response struct {
	// Messages holds the history appended during this call, in order.
	Messages []llm.Message

	// Agent names the final active agent. Empty when the run ended with no
	// active agent.
	Agent string

	// ContextVars is the updated context-variable mapping.
	ContextVars agent.ContextVars

	// Interactions counts completed model interactions, interleaves
	// excluded.
	Interactions int

	// Cost is the cumulative spend after the run, in dollars.
	Cost float64

	// Elapsed is the wall-clock duration of the call.
	Elapsed time.Duration
}

// Run executes the turn loop starting from the named agent. It returns the
// appended history slice even when the loop ends on a budget, a stop
// expression or a context cancellation; only misconfiguration and
// unclassified tool errors surface as errors.
func (r *Runner) Run(ctx context.Context, agentName string, messages []llm.Message, vars agent.ContextVars) (*Response, error) {
	start := time.Now()

	active, err := r.agents.Lookup(agentName)
	if err != nil {
		return nil, err
	}
	original := active

	history := append([]llm.Message(nil), messages...)
	base := len(history)
	vars = vars.Clone()

	interactions := 0
	stateCounter := 0
	finalName := active.Name

	for {
		if r.budget.TurnsExhausted(len(history) - base) {
			r.log.Info("turn budget exhausted", "run", r.runID, "turns", len(history)-base)
			break
		}
		if r.budget.CostExceeded(r.tracker.Cost()) {
			r.log.Info("cost ceiling reached", "run", r.runID, "cost", r.tracker.Cost())
			break
		}
		if ctx.Err() != nil {
			break
		}

		if r.memoryMode.EpisodicEnabled() && r.onCadence(interactions) {
			r.interleaveMemory(ctx, memory.ModeEpisodic, active.Model, history, vars, interactions)
		}

		next, interrupted, err := r.interaction(ctx, active, &history, vars, &interactions)
		if err != nil {
			return nil, err
		}
		if next == nil {
			finalName = ""
		} else {
			finalName = next.Name
		}
		if interrupted {
			finalName = active.Name
			break
		}

		if r.memoryMode.SemanticEnabled() && r.onCadence(interactions) {
			r.interleaveMemory(ctx, memory.ModeSemantic, active.Model, history, vars, interactions)
		}

		if r.stateAgent != nil {
			stateCounter++
			if stateCounter >= r.stateThreshold {
				r.refreshState(ctx, history, vars, interactions)
				stateCounter = 0
			}
		}

		if r.budget.CostExceeded(r.tracker.Cost()) {
			r.log.Info("cost ceiling reached", "run", r.runID, "cost", r.tracker.Cost())
			break
		}
		if stop := r.checkStop(history, base, interactions); stop {
			break
		}

		if next == nil {
			if r.budget.ForceUntilFlag {
				if r.budget.FlagFound(llm.LastToolContent(history)) {
					r.log.Info("flag found", "run", r.runID, "interactions", interactions)
					break
				}
				history = append(history, llm.UserMessage(
					"The flag was not found in the previous output. Keep looking; try a different approach."))
				active = original
				finalName = active.Name
				continue
			}
			break
		}
		active = next
	}

	return &Response{
		Messages:     history[base:],
		Agent:        finalName,
		ContextVars:  vars,
		Interactions: interactions,
		Cost:         r.tracker.Cost(),
		Elapsed:      time.Since(start),
	}, nil
}

func (r *Runner) onCadence(interactions int) bool {
	return r.memoryInterval > 0 && interactions > 0 && interactions%r.memoryInterval == 0
}

func (r *Runner) checkStop(history []llm.Message, base, interactions int) bool {
	if r.stop == nil {
		return false
	}
	stop, err := r.stop.Eval(policy.Snapshot{
		Turns:        len(history) - base,
		Interactions: interactions,
		Cost:         r.tracker.Cost(),
		LastOutput:   llm.LastToolContent(history),
	})
	if err != nil {
		r.log.Warn("stop expression failed", "run", r.runID, "error", err)
		return false
	}
	if stop {
		r.log.Info("stop expression satisfied", "run", r.runID, "expr", r.stop.Expr())
	}
	return stop
}

// interaction performs one model round-trip with the active agent, appends
// the assistant message and any tool results to history, and returns the
// next active agent. A nil next agent means the turn is complete.
func (r *Runner) interaction(ctx context.Context, ag *agent.Agent, history *[]llm.Message, vars agent.ContextVars, interactions *int) (next *agent.Agent, interrupted bool, err error) {
	*interactions++
	ctx, span := r.tracer.Start(ctx, "engine.interaction", trace.WithAttributes(
		attribute.String("agent", ag.Name),
		attribute.Int("interaction", *interactions),
	))
	defer span.End()

	req := r.buildRequest(ag, *history, vars)
	resp, err := r.provider.Complete(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("engine: completion for %s: %w", ag.Name, err)
	}
	r.tracker.Add(ag.Model, resp.Usage)

	assistant := llm.AssistantMessage(ag.Name, resp.Content, resp.ToolCalls...)
	*history = append(*history, assistant)

	r.graph.Add(&graph.Node{
		Name:    ag.Name,
		Agent:   ag.Name,
		Turn:    *interactions,
		Message: assistant,
		History: append([]llm.Message(nil), req.Messages...),
		Actions: resp.ToolCalls,
	})
	r.recordInteraction(ctx, ag, *interactions, req, resp)

	if !resp.HasToolCalls() {
		return nil, false, nil
	}

	out, err := r.dispatch(ctx, resp.ToolCalls, ag, vars)
	*history = append(*history, out.messages...)
	if err != nil {
		return nil, false, err
	}
	if out.interrupted {
		return nil, true, nil
	}

	if handoff := agent.ResolveHandoff(out.results); handoff != "" {
		target, err := r.agents.Lookup(handoff)
		if err != nil {
			return nil, false, fmt.Errorf("engine: handoff from %s: %w", ag.Name, err)
		}
		r.log.Info("handoff", "run", r.runID, "from", ag.Name, "to", handoff)
		return target, false, nil
	}
	return ag, false, nil
}

func (r *Runner) buildRequest(ag *agent.Agent, history []llm.Message, vars agent.ContextVars) llm.Request {
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.SystemMessage(ag.SystemPrompt(vars)))
	msgs = append(msgs, history...)

	req := llm.Request{
		Model:           ag.Model,
		Messages:        msgs,
		Tools:           ag.ToolDefs(),
		ToolChoice:      ag.ToolChoice,
		ReasoningEffort: ag.ReasoningEffort,
		ResponseSchema:  ag.ResponseSchema,
		Temperature:     ag.Temperature,
	}
	if ag.ParallelToolCalls {
		parallel := true
		req.ParallelToolCalls = &parallel
	}
	return req
}

func (r *Runner) recordInteraction(ctx context.Context, ag *agent.Agent, interaction int, req llm.Request, resp *llm.Response) {
	if r.recorder == nil {
		return
	}
	err := r.recorder.Record(ctx, record.Entry{
		Run:         r.runID,
		Agent:       ag.Name,
		Interaction: interaction,
		Time:        time.Now(),
		Request:     req,
		Response:    resp,
	})
	if err != nil {
		r.log.Warn("interaction log failed", "run", r.runID, "error", err)
	}
}

// interleaveMemory runs a memory builder for one interaction against a copy
// of the history. Its messages never reach the main history; only what it
// stores persists. Failures are logged and swallowed so memory problems
// cannot end a run.
func (r *Runner) interleaveMemory(ctx context.Context, mode memory.Mode, fallbackModel string, history []llm.Message, vars agent.ContextVars, interactions int) {
	model := r.memoryModel
	if model == "" {
		model = fallbackModel
	}
	builder := memory.BuilderAgent(string(mode)+"_builder", model, r.runID, r.memoryStore)

	if _, err := r.sideInteraction(ctx, builder, history, vars, interactions); err != nil {
		r.log.Warn("memory interleave failed", "run", r.runID, "mode", mode, "error", err)
	}
}

// refreshState runs the state agent for one interaction and merges its
// structured output into the run's network state. The merged state is
// published to the context variables under "network_state".
func (r *Runner) refreshState(ctx context.Context, history []llm.Message, vars agent.ContextVars, interactions int) {
	resp, err := r.sideInteraction(ctx, r.stateAgent, history, vars, interactions)
	if err != nil {
		r.log.Warn("state refresh failed", "run", r.runID, "error", err)
		return
	}
	incoming, err := netstate.Parse([]byte(resp.Content))
	if err != nil {
		r.log.Warn("state output unparseable", "run", r.runID, "error", err)
		return
	}
	r.netState = netstate.Merge(r.netState, incoming)
	vars["network_state"] = r.netState.String()
}

// sideInteraction runs one interaction with ag without touching the main
// history. Tool calls execute for their side effects; the appended messages
// are discarded.
func (r *Runner) sideInteraction(ctx context.Context, ag *agent.Agent, history []llm.Message, vars agent.ContextVars, interactions int) (*llm.Response, error) {
	ctx, span := r.tracer.Start(ctx, "engine.interleave", trace.WithAttributes(
		attribute.String("agent", ag.Name),
	))
	defer span.End()

	req := r.buildRequest(ag, history, vars)
	resp, err := r.provider.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	r.tracker.Add(ag.Model, resp.Usage)
	r.recordInteraction(ctx, ag, interactions, req, resp)

	if resp.HasToolCalls() {
		if _, err := r.dispatch(ctx, resp.ToolCalls, ag, vars); err != nil {
			return nil, err
		}
	}
	return resp, nil
}
