package agent

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/talon-sec/talon/tool"
)

// ErrNotFound is returned when a requested agent is not registered.
var ErrNotFound = errors.New("agent: not found")

// Registry is the arena holding every agent addressable in a run.
// Handoffs resolve through it by name.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*Agent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]*Agent)}
}

// Register adds an agent. Registering a name twice is an error; agents are
// immutable and never replaced mid-run.
func (r *Registry) Register(a *Agent) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("register agent: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[a.Name]; exists {
		return fmt.Errorf("register agent %q: already registered", a.Name)
	}
	r.agents[a.Name] = a
	return nil
}

// Lookup returns the agent registered under name.
func (r *Registry) Lookup(name string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return a, nil
}

// Names returns the registered agent names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// ResolveHandoff returns the handoff target of a tool-call batch: the last
// non-empty NextAgent across the batch's results, in call order. Empty means
// control stays with the current agent. There is deliberately no cycle
// detection; budgets are the sole termination authority.
func ResolveHandoff(results []*tool.Result) string {
	var next string
	for _, r := range results {
		if r != nil && r.NextAgent != "" {
			next = r.NextAgent
		}
	}
	return next
}
