// Package llm defines the message, tool-call, and completion types exchanged
// with LLM providers, together with token accounting and cost tracking.
//
// The Provider interface is the boundary to the actual completion backend.
// Talon does not ship a provider implementation; the engine only depends on
// this contract. RetryProvider decorates any Provider with the tolerance
// behaviors real backends require: stripping parameters a reasoning-class
// model rejects, retrying once against a local fallback when no provider can
// be resolved, and backing off once on rate limiting.
package llm
