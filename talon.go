// Package talon is the entry point of the talon agent runtime: an execution
// engine that drives LLM agents against security targets in a
// model/tool-call loop, with interactive sessions, network-state tracking,
// memory interleaving and budget-governed termination.
//
// The root package wires the subpackages together. A minimal run:
//
//	registry := agent.NewRegistry()
//	registry.Register(redTeamAgent)
//
//	runner, err := talon.NewRunner(provider, registry,
//	    talon.WithBudget(policy.Budget{MaxTurns: 50, Flag: "flag{...}", ForceUntilFlag: true}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	resp, err := runner.Run(ctx, "red_teamer", messages, nil)
package talon

import (
	"context"

	"github.com/talon-sec/talon/agent"
	"github.com/talon-sec/talon/config"
	"github.com/talon-sec/talon/engine"
	"github.com/talon-sec/talon/llm"
	"github.com/talon-sec/talon/memory"
	"github.com/talon-sec/talon/policy"
	"github.com/talon-sec/talon/record"
	"github.com/talon-sec/talon/session"
	"github.com/talon-sec/talon/tool"
)

// Runner drives the turn execution loop. See engine.Runner.
type Runner = engine.Runner

// Response is the outcome of one Runner.Run call.
type Response = engine.Response

// Option configures a Runner.
type Option = engine.Option

// Re-exported Runner options, so simple callers need only the root package.
var (
	WithBudget        = engine.WithBudget
	WithStopCondition = engine.WithStopCondition
	WithCTF           = engine.WithCTF
	WithRecorder      = engine.WithRecorder
	WithMemory        = engine.WithMemory
	WithStateAgent    = engine.WithStateAgent
	WithMaxChars      = engine.WithMaxChars
	WithLogger        = engine.WithLogger
	WithTracer        = engine.WithTracer
)

// NewRunner validates the configuration and builds a Runner.
func NewRunner(provider llm.Provider, agents *agent.Registry, opts ...Option) (*Runner, error) {
	r, err := engine.New(provider, agents, opts...)
	if err != nil {
		return nil, NewConfigurationError("NewRunner", err)
	}
	return r, nil
}

// NewTool builds a tool from a configuration. See the tool package for the
// builder surface.
func NewTool(cfg *tool.Config) (*tool.Tool, error) {
	t, err := tool.New(cfg)
	if err != nil {
		return nil, NewValidationError("NewTool", err)
	}
	return t, nil
}

// NewShellTool builds the generic command tool and its session registry from
// the sessions block of a run configuration. A nil cfg uses the defaults.
// The caller owns the registry and should defer registry.KillAll on
// shutdown.
func NewShellTool(cfg *config.SessionConfig) (*tool.Tool, *session.Registry) {
	var opts []session.Option
	if cfg != nil && len(cfg.Markers) > 0 {
		opts = append(opts, session.WithMarkers(cfg.Markers))
	}
	if cfg != nil && cfg.PreserveOutput {
		opts = append(opts, session.WithPreserveOutput())
	}
	registry := session.NewRegistry(opts...)

	shell := session.ShellTool(registry, session.ShellToolConfig{
		Timeout: cfg.GetTimeout(),
	})
	return shell, registry
}

// FromConfig builds a Runner from a loaded run configuration. The returned
// cleanup function closes whatever the configuration opened (interaction
// logs, memory stores) and is safe to call even when partially constructed.
//
// extra options are applied after the configuration-derived ones, so they
// win on conflict.
func FromConfig(ctx context.Context, cfg *config.Config, provider llm.Provider, agents *agent.Registry, extra ...Option) (*Runner, func(), error) {
	if cfg == nil {
		return nil, nil, NewConfigurationError("FromConfig", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, NewConfigurationError("FromConfig", err)
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err *Error) (*Runner, func(), error) {
		cleanup()
		return nil, nil, err
	}

	opts := []Option{engine.WithMaxChars(cfg.GetMaxChars())}

	if b := cfg.Budget; b != nil {
		opts = append(opts, engine.WithBudget(policy.Budget{
			MaxTurns:       b.MaxTurns,
			MaxCost:        b.MaxCost,
			Flag:           b.Flag,
			ForceUntilFlag: b.ForceUntilFlag,
		}))
	}

	if cfg.StopExpression != "" {
		cond, err := policy.NewStopCondition(cfg.StopExpression)
		if err != nil {
			return fail(NewConfigurationError("FromConfig", err))
		}
		opts = append(opts, engine.WithStopCondition(cond))
	}

	if m := cfg.Memory; m != nil && m.Mode != "" {
		store, err := openStore(ctx, m)
		if err != nil {
			return fail(NewConfigurationError("FromConfig", err))
		}
		if c, ok := store.(interface{ Close() error }); ok {
			closers = append(closers, func() { CloseWithLog(c, nil, "memory store") })
		}
		opts = append(opts,
			engine.WithMemory(memory.Mode(m.Mode), store),
			engine.WithMemoryInterval(m.GetInterval()),
		)
		if m.Model != "" {
			opts = append(opts, engine.WithMemoryModel(m.Model))
		}
	}

	if s := cfg.State; s != nil && s.Enabled {
		model := s.Model
		if model == "" {
			model = cfg.Model
		}
		opts = append(opts,
			engine.WithStateAgent(engine.StateAgent(model)),
			engine.WithStateThreshold(s.GetThreshold()),
		)
	}

	if l := cfg.Log; l != nil {
		recorder, err := openRecorder(ctx, l)
		if err != nil {
			return fail(NewConfigurationError("FromConfig", err))
		}
		closers = append(closers, func() { CloseWithLog(recorder, nil, "interaction log") })
		opts = append(opts, engine.WithRecorder(recorder))
	}

	runner, err := NewRunner(provider, agents, append(opts, extra...)...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return runner, cleanup, nil
}

func openStore(ctx context.Context, m *config.MemoryConfig) (memory.Store, error) {
	if m.RedisURL == "" {
		return memory.NewInMemoryStore(), nil
	}
	return memory.NewRedisStore(ctx, memory.RedisOptions{URL: m.RedisURL})
}

func openRecorder(ctx context.Context, l *config.LogConfig) (record.Recorder, error) {
	jsonl, err := record.NewJSONL(l.GetDir())
	if err != nil {
		return nil, err
	}
	if l.RedisURL == "" {
		return jsonl, nil
	}
	redis, err := record.NewRedisPublisher(ctx, record.RedisOptions{URL: l.RedisURL, Stream: l.Stream})
	if err != nil {
		jsonl.Close()
		return nil, err
	}
	return record.Multi(jsonl, redis), nil
}
