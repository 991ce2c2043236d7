// Package policy defines the termination policy for a run: hard budgets on
// turns and spend, flag detection, and optional operator-defined stop
// expressions compiled from CEL.
package policy

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// ErrInvalidExpression is returned when a stop expression fails to compile
// or does not evaluate to a boolean.
var ErrInvalidExpression = errors.New("policy: invalid stop expression")

// Budget bounds a run. The zero value imposes no limits.
type Budget struct {
	// MaxTurns caps the number of turns. Zero or negative means unlimited.
	MaxTurns int

	// MaxCost caps the cumulative completion spend in dollars. Zero or
	// negative means unlimited.
	MaxCost float64

	// Flag, when non-empty, is a substring searched for in tool output.
	// Finding it ends the run.
	Flag string

	// ForceUntilFlag keeps the run alive past agents going quiet: when the
	// model returns no tool calls and the flag has not been found, the run
	// is re-seeded instead of returning. Requires Flag; a run without
	// MaxTurns is bounded only by the flag, the cost ceiling or
	// cancellation.
	ForceUntilFlag bool
}

// TurnsExhausted reports whether turns has reached the turn budget.
func (b Budget) TurnsExhausted(turns int) bool {
	return b.MaxTurns > 0 && turns >= b.MaxTurns
}

// CostExceeded reports whether cost has reached the spend budget.
func (b Budget) CostExceeded(cost float64) bool {
	return b.MaxCost > 0 && cost >= b.MaxCost
}

// FlagFound reports whether output contains the flag. Always false when no
// flag is configured.
func (b Budget) FlagFound(output string) bool {
	return b.Flag != "" && strings.Contains(output, b.Flag)
}

// Validate checks that the budget is internally consistent.
func (b Budget) Validate() error {
	if b.ForceUntilFlag && b.Flag == "" {
		return errors.New("policy: ForceUntilFlag requires Flag")
	}
	return nil
}

// Snapshot is the run state a stop expression is evaluated against.
type Snapshot struct {
	// Turns is the number of completed turns.
	Turns int

	// Interactions is the number of completed model interactions.
	Interactions int

	// Cost is the cumulative completion spend in dollars.
	Cost float64

	// LastOutput is the most recent tool result content, possibly empty.
	LastOutput string
}

// StopCondition is a compiled CEL expression over a run Snapshot. The
// expression sees four variables: turns (int), interactions (int),
// cost (double) and last_output (string), and must produce a bool.
//
//	cost > 0.50 && interactions > 20
//	last_output.contains("root@")
//
// Compile once per run; Eval is safe for concurrent use.
type StopCondition struct {
	expr    string
	program cel.Program
}

// NewStopCondition compiles expr. Returns ErrInvalidExpression when the
// expression does not parse, references unknown variables, or is not
// boolean-valued.
func NewStopCondition(expr string) (*StopCondition, error) {
	env, err := cel.NewEnv(
		cel.Variable("turns", cel.IntType),
		cel.Variable("interactions", cel.IntType),
		cel.Variable("cost", cel.DoubleType),
		cel.Variable("last_output", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: build CEL environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: result type is %s, want bool", ErrInvalidExpression, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}
	return &StopCondition{expr: expr, program: program}, nil
}

// Expr returns the source expression.
func (c *StopCondition) Expr() string { return c.expr }

// Eval evaluates the condition against snap.
func (c *StopCondition) Eval(snap Snapshot) (bool, error) {
	out, _, err := c.program.Eval(map[string]any{
		"turns":        snap.Turns,
		"interactions": snap.Interactions,
		"cost":         snap.Cost,
		"last_output":  snap.LastOutput,
	})
	if err != nil {
		return false, fmt.Errorf("policy: evaluate %q: %w", c.expr, err)
	}
	stop, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w: %q produced %T", ErrInvalidExpression, c.expr, out.Value())
	}
	return stop, nil
}
