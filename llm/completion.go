package llm

import "context"

// Request carries the parameters of a single completion call.
type Request struct {
	// Model identifies the model to complete with.
	Model string `json:"model"`

	// Messages contains the conversation so far, system prompt included.
	Messages []Message `json:"messages"`

	// Tools contains tool definitions available to the model.
	Tools []ToolDef `json:"tools,omitempty"`

	// ToolChoice constrains how the model may use tools.
	ToolChoice ToolChoice `json:"tool_choice,omitempty"`

	// ParallelToolCalls allows the model to request several tool calls in
	// one response. Some reasoning-class backends reject the parameter;
	// RetryProvider strips it on demand.
	ParallelToolCalls *bool `json:"parallel_tool_calls,omitempty"`

	// Temperature controls sampling randomness. Nil leaves the backend
	// default in place.
	Temperature *float64 `json:"temperature,omitempty"`

	// ReasoningEffort requests a reasoning budget ("low", "medium", "high")
	// on models that support it.
	ReasoningEffort string `json:"reasoning_effort,omitempty"`

	// ResponseSchema, when set, requests provider-native structured output
	// conforming to the given JSON schema.
	ResponseSchema map[string]any `json:"response_schema,omitempty"`
}

// Response represents a completion returned by a provider.
type Response struct {
	// Content is the generated text content.
	Content string `json:"content,omitempty"`

	// ToolCalls contains tool invocations requested by the model.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// Usage contains token usage statistics for this completion.
	Usage Usage `json:"usage"`
}

// Usage tracks token consumption for a single request.
type Usage struct {
	// PromptTokens is the number of tokens in the input.
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of generated tokens.
	CompletionTokens int `json:"completion_tokens"`

	// ReasoningTokens is the number of hidden reasoning tokens, when the
	// backend reports them. Billed as completion tokens.
	ReasoningTokens int `json:"reasoning_tokens,omitempty"`
}

// Add combines two Usage values.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + other.PromptTokens,
		CompletionTokens: u.CompletionTokens + other.CompletionTokens,
		ReasoningTokens:  u.ReasoningTokens + other.ReasoningTokens,
	}
}

// Total returns the combined prompt and completion token count.
func (u Usage) Total() int {
	return u.PromptTokens + u.CompletionTokens
}

// HasToolCalls returns true if the response requests tool invocations.
func (r *Response) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// Provider is the completion backend boundary. Implementations wrap a real
// LLM API; the engine depends only on this interface.
type Provider interface {
	// Complete performs one completion request. The returned response must
	// carry usage counters so the engine can enforce cost ceilings.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, req Request) (*Response, error)

// Complete implements Provider.
func (f ProviderFunc) Complete(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
