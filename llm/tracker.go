package llm

import "sync"

// TokenTracker accumulates token usage per model across a run.
type TokenTracker interface {
	// Add records token usage for a model.
	Add(model string, usage Usage)

	// Total returns the aggregate token usage across all models.
	Total() Usage

	// ByModel returns the token usage for a specific model.
	ByModel(model string) Usage

	// Cost returns the cumulative monetary cost in USD for all recorded
	// usage, computed from the pricing table.
	Cost() float64

	// Reset clears all tracked usage.
	Reset()
}

// DefaultTokenTracker is a thread-safe TokenTracker.
type DefaultTokenTracker struct {
	mu      sync.RWMutex
	models  map[string]Usage
	total   Usage
	pricing PriceTable
}

// NewTokenTracker creates a tracker priced with the default table.
func NewTokenTracker() *DefaultTokenTracker {
	return NewTokenTrackerWithPrices(DefaultPrices())
}

// NewTokenTrackerWithPrices creates a tracker with a custom pricing table.
func NewTokenTrackerWithPrices(prices PriceTable) *DefaultTokenTracker {
	return &DefaultTokenTracker{
		models:  make(map[string]Usage),
		pricing: prices,
	}
}

// Add records token usage for a model.
func (t *DefaultTokenTracker) Add(model string, usage Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.models[model] = t.models[model].Add(usage)
	t.total = t.total.Add(usage)
}

// Total returns the aggregate token usage across all models.
func (t *DefaultTokenTracker) Total() Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// ByModel returns the usage recorded for a model, zero if never used.
func (t *DefaultTokenTracker) ByModel(model string) Usage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.models[model]
}

// Cost returns the cumulative cost in USD across all models.
func (t *DefaultTokenTracker) Cost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var cost float64
	for model, usage := range t.models {
		cost += t.pricing.Cost(model, usage)
	}
	return cost
}

// Reset clears all tracked usage.
func (t *DefaultTokenTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.models = make(map[string]Usage)
	t.total = Usage{}
}

// Models returns the names of all models with recorded usage.
func (t *DefaultTokenTracker) Models() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	models := make([]string, 0, len(t.models))
	for m := range t.models {
		models = append(models, m)
	}
	return models
}
