package tool

import "errors"

// Config holds the configuration for building a Tool.
type Config struct {
	name             string
	description      string
	parameters       map[string]any
	handler          Handler
	wantsContextVars bool
	wantsCTF         bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		parameters: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}
}

// SetName sets the tool name.
func (c *Config) SetName(name string) *Config {
	c.name = name
	return c
}

// SetDescription sets the tool description.
func (c *Config) SetDescription(desc string) *Config {
	c.description = desc
	return c
}

// SetParameters sets the JSON schema for the tool's arguments.
func (c *Config) SetParameters(schema map[string]any) *Config {
	c.parameters = schema
	return c
}

// SetHandler sets the execution function.
func (c *Config) SetHandler(h Handler) *Config {
	c.handler = h
	return c
}

// WithContextVars declares that the tool receives the running
// context-variable mapping.
func (c *Config) WithContextVars() *Config {
	c.wantsContextVars = true
	return c
}

// WithCTF declares that the tool receives the CTF target handle.
func (c *Config) WithCTF() *Config {
	c.wantsCTF = true
	return c
}

// New creates a Tool from the provided Config.
// Returns an error if required fields (name, handler) are missing.
func New(cfg *Config) (*Tool, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.name == "" {
		return nil, errors.New("tool name is required")
	}
	if cfg.handler == nil {
		return nil, errors.New("tool handler is required")
	}

	return &Tool{
		name:             cfg.name,
		description:      cfg.description,
		parameters:       cfg.parameters,
		handler:          cfg.handler,
		wantsContextVars: cfg.wantsContextVars,
		wantsCTF:         cfg.wantsCTF,
	}, nil
}

// MustNew is New but panics on error. Intended for package-level tool
// definitions whose configuration is static.
func MustNew(cfg *Config) *Tool {
	t, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return t
}

// ObjectSchema builds a JSON schema for an object with the given properties
// and required names. Property values are schema fragments, e.g.
// map[string]any{"type": "string", "description": "..."}.
func ObjectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// StringParam builds a string property schema fragment.
func StringParam(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// IntParam builds an integer property schema fragment.
func IntParam(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description}
}

// BoolParam builds a boolean property schema fragment.
func BoolParam(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}
