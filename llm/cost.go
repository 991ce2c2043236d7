package llm

import "strings"

// Price holds per-million-token rates in USD for one model.
type Price struct {
	// Prompt is the price per million input tokens.
	Prompt float64

	// Completion is the price per million output tokens. Reasoning tokens
	// are billed at this rate.
	Completion float64
}

// PriceTable maps model identifiers to their pricing. Lookup falls back to
// prefix matching so dated snapshots ("gpt-4o-2024-08-06") resolve to their
// base model entry.
type PriceTable map[string]Price

// DefaultPrices returns a pricing table for the commonly run models.
// Unknown models cost zero, which disables the cost ceiling for them.
func DefaultPrices() PriceTable {
	return PriceTable{
		"gpt-4o":        {Prompt: 2.50, Completion: 10.00},
		"gpt-4o-mini":   {Prompt: 0.15, Completion: 0.60},
		"o1":            {Prompt: 15.00, Completion: 60.00},
		"o3-mini":       {Prompt: 1.10, Completion: 4.40},
		"claude-sonnet": {Prompt: 3.00, Completion: 15.00},
		"claude-haiku":  {Prompt: 0.80, Completion: 4.00},
		"qwen2.5:14b":   {Prompt: 0, Completion: 0},
		"qwen2.5:72b":   {Prompt: 0, Completion: 0},
	}
}

// Cost computes the USD cost of the given usage under this table.
func (p PriceTable) Cost(model string, usage Usage) float64 {
	price, ok := p.lookup(model)
	if !ok {
		return 0
	}
	in := float64(usage.PromptTokens) / 1e6 * price.Prompt
	out := float64(usage.CompletionTokens+usage.ReasoningTokens) / 1e6 * price.Completion
	return in + out
}

func (p PriceTable) lookup(model string) (Price, bool) {
	if price, ok := p[model]; ok {
		return price, true
	}
	// Dated or tagged variants resolve to the longest matching base entry.
	var (
		best    string
		price   Price
		matched bool
	)
	for name, pr := range p {
		if strings.HasPrefix(model, name) && len(name) > len(best) {
			best, price, matched = name, pr, true
		}
	}
	return price, matched
}
