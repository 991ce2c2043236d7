package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Provider error classes. Backends surface these so RetryProvider can apply
// the matching recovery behavior; anything else propagates unchanged.
var (
	// ErrRateLimited indicates the backend rejected the request due to
	// rate limiting. RetryProvider sleeps a fixed interval and retries once.
	ErrRateLimited = errors.New("llm: rate limited")

	// ErrNoProvider indicates no provider could be resolved for the model.
	// RetryProvider retries once against the configured fallback provider.
	ErrNoProvider = errors.New("llm: no provider for model")
)

// UnsupportedParamError reports that the backend rejected a request
// parameter, typically a reasoning-class model refusing temperature or
// parallel tool calls.
type UnsupportedParamError struct {
	// Param names the rejected parameter: "temperature",
	// "parallel_tool_calls", "tool_choice", or "tools".
	Param string
}

// Error implements the error interface.
func (e *UnsupportedParamError) Error() string {
	return fmt.Sprintf("llm: unsupported parameter %q", e.Param)
}

// RetryProvider decorates a Provider with local recovery for the transient
// error classes real backends produce. It never retries more than once per
// class per request, and unclassified errors propagate unchanged.
type RetryProvider struct {
	// Primary is the provider used for every request.
	Primary Provider

	// Fallback, when set, is tried once after Primary fails with
	// ErrNoProvider. Typically a local (Ollama-style) backend.
	Fallback Provider

	// RateLimitWait is how long to sleep before the single rate-limit
	// retry. Defaults to a minute when zero.
	RateLimitWait time.Duration

	// MaxParamStrips bounds how many rejected parameters are stripped for
	// one request before giving up. Defaults to 5 when zero.
	MaxParamStrips int

	// Logger receives retry decisions. Nil discards them.
	Logger *slog.Logger
}

// NewRetryProvider wraps primary with the default recovery settings.
func NewRetryProvider(primary Provider) *RetryProvider {
	return &RetryProvider{Primary: primary, RateLimitWait: time.Minute}
}

// Complete implements Provider.
func (p *RetryProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	strips := p.MaxParamStrips
	if strips == 0 {
		strips = 5
	}

	provider := p.Primary
	rateLimitRetried := false
	fallbackTried := false

	for {
		resp, err := provider.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}

		var unsupported *UnsupportedParamError
		switch {
		case errors.As(err, &unsupported) && strips > 0:
			strips--
			p.log("stripping unsupported parameter", "param", unsupported.Param, "model", req.Model)
			req = stripParam(req, unsupported.Param)

		case errors.Is(err, ErrNoProvider) && p.Fallback != nil && !fallbackTried:
			fallbackTried = true
			p.log("falling back to local provider", "model", req.Model)
			provider = p.Fallback

		case errors.Is(err, ErrRateLimited) && !rateLimitRetried:
			rateLimitRetried = true
			wait := p.RateLimitWait
			if wait == 0 {
				wait = time.Minute
			}
			p.log("rate limited, backing off", "wait", wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}

		default:
			return nil, err
		}
	}
}

func stripParam(req Request, param string) Request {
	switch param {
	case "temperature":
		req.Temperature = nil
	case "parallel_tool_calls":
		req.ParallelToolCalls = nil
	case "tool_choice":
		req.ToolChoice = ""
	case "tools":
		req.Tools = nil
	}
	return req
}

func (p *RetryProvider) log(msg string, args ...any) {
	if p.Logger != nil {
		p.Logger.Debug(msg, args...)
	}
}
