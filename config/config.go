// Package config provides loading and parsing of run.yaml configuration
// files. A run configuration describes the model, budgets, cadences and
// session behavior of one engagement; it carries no credentials and performs
// no environment or CLI parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents a run.yaml configuration file.
type Config struct {
	// Model is the default completion model.
	Model string `yaml:"model"`

	// Agent names the starting agent.
	Agent string `yaml:"agent,omitempty"`

	// Budget bounds the run.
	Budget *BudgetConfig `yaml:"budget,omitempty"`

	// StopExpression is an optional CEL expression over
	// {turns, interactions, cost, last_output} ending the run when true.
	StopExpression string `yaml:"stop_expression,omitempty"`

	// MaxChars is the per-message truncation limit for tool output.
	// Default: 5000
	MaxChars int `yaml:"max_chars,omitempty"`

	// Memory configures memory-builder interleaving.
	Memory *MemoryConfig `yaml:"memory,omitempty"`

	// State configures the network-state agent.
	State *StateConfig `yaml:"state,omitempty"`

	// Sessions configures interactive session handling.
	Sessions *SessionConfig `yaml:"sessions,omitempty"`

	// Log configures the interaction log.
	Log *LogConfig `yaml:"log,omitempty"`
}

// BudgetConfig holds the run's termination budget.
type BudgetConfig struct {
	// MaxTurns caps appended messages. Zero means unbounded.
	MaxTurns int `yaml:"max_turns,omitempty"`

	// MaxCost caps the completion spend in dollars. Zero means unbounded.
	MaxCost float64 `yaml:"max_cost,omitempty"`

	// Flag is the substring that counts as success when found in tool output.
	Flag string `yaml:"flag,omitempty"`

	// ForceUntilFlag keeps the run going past quiet agents until the flag
	// appears or another budget runs out.
	ForceUntilFlag bool `yaml:"force_until_flag,omitempty"`
}

// MemoryConfig configures memory-builder interleaving.
type MemoryConfig struct {
	// Mode is "episodic", "semantic" or "all". Empty disables memory.
	Mode string `yaml:"mode,omitempty"`

	// Interval is the interleave cadence in interactions.
	// Default: 5
	Interval int `yaml:"interval,omitempty"`

	// Model overrides the completion model for memory builders.
	Model string `yaml:"model,omitempty"`

	// RedisURL selects the Redis store. Empty keeps memory in process.
	RedisURL string `yaml:"redis_url,omitempty"`
}

// GetInterval returns the configured cadence or the default value.
func (m *MemoryConfig) GetInterval() int {
	if m == nil || m.Interval <= 0 {
		return 5
	}
	return m.Interval
}

// StateConfig configures the network-state agent.
type StateConfig struct {
	// Enabled turns state tracking on.
	Enabled bool `yaml:"enabled,omitempty"`

	// Model overrides the completion model for the state agent.
	Model string `yaml:"model,omitempty"`

	// Threshold is the number of interactions between refreshes.
	// Default: 2
	Threshold int `yaml:"threshold,omitempty"`
}

// GetThreshold returns the configured threshold or the default value.
func (s *StateConfig) GetThreshold() int {
	if s == nil || s.Threshold <= 0 {
		return 2
	}
	return s.Threshold
}

// SessionConfig configures interactive session handling.
type SessionConfig struct {
	// Markers lists the interactive-program markers that route a command
	// into a background session. Empty keeps the default set.
	Markers []string `yaml:"markers,omitempty"`

	// Timeout bounds synchronous command execution.
	// Format: Go duration string (e.g., "30s", "2m"). Default: 2m
	Timeout string `yaml:"timeout,omitempty"`

	// PreserveOutput makes session reads non-destructive.
	PreserveOutput bool `yaml:"preserve_output,omitempty"`
}

// GetTimeout parses the timeout string and returns a duration. Returns the
// default value if not set or invalid.
func (s *SessionConfig) GetTimeout() time.Duration {
	if s == nil || s.Timeout == "" {
		return 2 * time.Minute
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 2 * time.Minute
	}
	return d
}

// LogConfig configures the interaction log.
type LogConfig struct {
	// Dir is the directory JSONL transcripts are written to.
	// Default: "logs"
	Dir string `yaml:"dir,omitempty"`

	// RedisURL additionally publishes interactions to a Redis stream.
	RedisURL string `yaml:"redis_url,omitempty"`

	// Stream is the Redis stream key. Default: "talon:interactions"
	Stream string `yaml:"stream,omitempty"`
}

// GetDir returns the log directory or the default value.
func (l *LogConfig) GetDir() string {
	if l == nil || l.Dir == "" {
		return "logs"
	}
	return l.Dir
}

// GetMaxChars returns the truncation limit or the default value.
func (c *Config) GetMaxChars() int {
	if c.MaxChars <= 0 {
		return 5000
	}
	return c.MaxChars
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("config: model is required")
	}
	if c.Budget != nil && c.Budget.ForceUntilFlag && c.Budget.Flag == "" {
		return fmt.Errorf("config: budget.force_until_flag requires budget.flag")
	}
	if c.Memory != nil {
		switch c.Memory.Mode {
		case "", "episodic", "semantic", "all":
		default:
			return fmt.Errorf("config: unknown memory.mode %q", c.Memory.Mode)
		}
	}
	return nil
}

// Load reads and parses a run.yaml file from the given path. If the path is
// a directory, it looks for run.yaml or run.yml in that directory.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		yamlPath := filepath.Join(path, "run.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "run.yml")
			if _, err := os.Stat(ymlPath); err == nil {
				configPath = ymlPath
			} else {
				return nil, fmt.Errorf("no run.yaml or run.yml found in %s", path)
			}
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}
