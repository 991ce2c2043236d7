// Package agent defines the immutable agent value object and the registry
// that addresses agents by name.
//
// Agents never reference each other directly. A handoff is a tool returning
// the name of the next agent; the engine resolves the name through the
// registry at dispatch time. This keeps the handoff graph inspectable and
// free of reference cycles.
package agent
