package policy

import (
	"errors"
	"testing"
)

func TestBudgetLimits(t *testing.T) {
	b := Budget{MaxTurns: 3, MaxCost: 0.50, Flag: "flag{pwned}"}

	if b.TurnsExhausted(2) {
		t.Error("TurnsExhausted(2) = true under MaxTurns 3")
	}
	if !b.TurnsExhausted(3) {
		t.Error("TurnsExhausted(3) = false under MaxTurns 3")
	}
	if b.CostExceeded(0.49) {
		t.Error("CostExceeded(0.49) = true under MaxCost 0.50")
	}
	if !b.CostExceeded(0.50) {
		t.Error("CostExceeded(0.50) = false under MaxCost 0.50")
	}
	if !b.FlagFound("found it: flag{pwned}\n") {
		t.Error("FlagFound missed embedded flag")
	}
	if b.FlagFound("nothing here") {
		t.Error("FlagFound matched output without the flag")
	}
}

func TestBudgetZeroValueUnlimited(t *testing.T) {
	var b Budget
	if b.TurnsExhausted(1_000_000) {
		t.Error("zero-value budget limited turns")
	}
	if b.CostExceeded(1e9) {
		t.Error("zero-value budget limited cost")
	}
	if b.FlagFound("flag{anything}") {
		t.Error("zero-value budget matched a flag")
	}
}

func TestBudgetValidate(t *testing.T) {
	if err := (Budget{ForceUntilFlag: true, MaxTurns: 5}).Validate(); err == nil {
		t.Error("Validate() accepted ForceUntilFlag without Flag")
	}
	if err := (Budget{ForceUntilFlag: true, Flag: "flag{x}"}).Validate(); err != nil {
		t.Errorf("Validate() rejected ForceUntilFlag without MaxTurns: %v", err)
	}
	if err := (Budget{ForceUntilFlag: true, Flag: "flag{x}", MaxTurns: 5}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestStopCondition(t *testing.T) {
	cond, err := NewStopCondition(`cost > 0.25 && interactions > 10`)
	if err != nil {
		t.Fatalf("NewStopCondition() error = %v", err)
	}

	stop, err := cond.Eval(Snapshot{Interactions: 11, Cost: 0.30})
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if !stop {
		t.Error("Eval() = false, want true")
	}

	stop, err = cond.Eval(Snapshot{Interactions: 11, Cost: 0.10})
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if stop {
		t.Error("Eval() = true, want false")
	}
}

func TestStopConditionLastOutput(t *testing.T) {
	cond, err := NewStopCondition(`last_output.contains("root@")`)
	if err != nil {
		t.Fatalf("NewStopCondition() error = %v", err)
	}
	stop, err := cond.Eval(Snapshot{LastOutput: "root@target:~# "})
	if err != nil {
		t.Fatalf("Eval() error = %v", err)
	}
	if !stop {
		t.Error("Eval() = false for matching last_output")
	}
}

func TestStopConditionInvalid(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"syntax error", `turns >`},
		{"unknown variable", `flags > 3`},
		{"non-boolean result", `turns + 1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewStopCondition(tt.expr); !errors.Is(err, ErrInvalidExpression) {
				t.Errorf("NewStopCondition(%q) error = %v, want ErrInvalidExpression", tt.expr, err)
			}
		})
	}
}
