// Package graph records the lineage of a run: every agent interaction as an
// immutable node in a directed graph, appended strictly in interaction
// order. The recorder is an audit surface; control flow never consults it.
package graph

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/talon-sec/talon/llm"
)

// Node is an immutable record of one interaction.
type Node struct {
	// ID uniquely identifies the node.
	ID string

	// Name is the display name, unique within a recorder. Assigned on Add;
	// collisions get a numeric suffix.
	Name string

	// Agent is the name of the agent that produced the interaction.
	Agent string

	// Turn is the interaction counter at recording time.
	Turn int

	// Message is the assistant message of the interaction.
	Message llm.Message

	// History is the history prefix the interaction was computed from.
	History []llm.Message

	// Actions are the tool calls taken, if any.
	Actions []llm.ToolCall
}

// Recorder is an append-only directed graph of interaction nodes. Each run
// owns its own Recorder; the package-level Default exists only for test
// harnesses.
type Recorder struct {
	mu    sync.Mutex
	nodes []*Node
	named map[string]*Node
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{named: make(map[string]*Node)}
}

// Add assigns the node a collision-free display name, links it after the
// previously added node, and returns the assigned name. Nodes are never
// removed or mutated after insertion.
func (r *Recorder) Add(n *Node) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.Name = r.uniqueName(n.Name)
	r.named[n.Name] = n
	r.nodes = append(r.nodes, n)
	return n.Name
}

// uniqueName returns name, suffixed with a numeric disambiguator when a node
// with the same name already exists. Caller holds the lock.
func (r *Recorder) uniqueName(name string) string {
	if name == "" {
		name = "node"
	}
	unique := name
	index := 0
	for {
		if _, taken := r.named[unique]; !taken {
			return unique
		}
		index++
		unique = fmt.Sprintf("%s_%d", name, index)
	}
}

// Nodes returns the recorded nodes in insertion order.
func (r *Recorder) Nodes() []*Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Node(nil), r.nodes...)
}

// Lookup returns the node with the given display name.
func (r *Recorder) Lookup(name string) (*Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.named[name]
	return n, ok
}

// Len returns the number of recorded nodes.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

// DOT renders the interaction chain in Graphviz dot format.
func (r *Recorder) DOT() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	b.WriteString("digraph run {\n")
	for _, n := range r.nodes {
		fmt.Fprintf(&b, "  %q [label=%q];\n", n.Name, fmt.Sprintf("%s (turn %d)", n.Agent, n.Turn))
	}
	for i := 1; i < len(r.nodes); i++ {
		fmt.Fprintf(&b, "  %q -> %q;\n", r.nodes[i-1].Name, r.nodes[i].Name)
	}
	b.WriteString("}\n")
	return b.String()
}

var (
	defaultMu       sync.Mutex
	defaultRecorder *Recorder
)

// Default returns the process-wide recorder, creating it on first use.
// Production code should thread an explicit Recorder through the run; this
// accessor exists for test harnesses and one-off scripts.
func Default() *Recorder {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRecorder == nil {
		defaultRecorder = NewRecorder()
	}
	return defaultRecorder
}

// Reset discards all recorded nodes in the default recorder and starts a
// fresh empty graph. Intended for use between independent runs in tests.
func Reset() *Recorder {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultRecorder = NewRecorder()
	return defaultRecorder
}
