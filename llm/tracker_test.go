package llm

import (
	"sync"
	"testing"
)

func TestNewTokenTracker(t *testing.T) {
	tracker := NewTokenTracker()

	if tracker == nil {
		t.Fatal("NewTokenTracker() returned nil")
	}
	if tracker.models == nil {
		t.Error("models map not initialized")
	}

	total := tracker.Total()
	if total != (Usage{}) {
		t.Errorf("Initial total = %v, want zero", total)
	}
}

func TestDefaultTokenTracker_Add(t *testing.T) {
	tracker := NewTokenTracker()

	usage := Usage{PromptTokens: 100, CompletionTokens: 50}
	tracker.Add("gpt-4o", usage)

	if got := tracker.Total(); got != usage {
		t.Errorf("Total() = %v, want %v", got, usage)
	}
	if got := tracker.ByModel("gpt-4o"); got != usage {
		t.Errorf("ByModel() = %v, want %v", got, usage)
	}
}

func TestDefaultTokenTracker_AddMultipleModels(t *testing.T) {
	tracker := NewTokenTracker()

	tracker.Add("gpt-4o", Usage{PromptTokens: 100, CompletionTokens: 50})
	tracker.Add("gpt-4o-mini", Usage{PromptTokens: 200, CompletionTokens: 100})

	expected := Usage{PromptTokens: 300, CompletionTokens: 150}
	if got := tracker.Total(); got != expected {
		t.Errorf("Total() = %v, want %v", got, expected)
	}
}

func TestDefaultTokenTracker_Cost(t *testing.T) {
	tracker := NewTokenTrackerWithPrices(PriceTable{
		"gpt-4o": {Prompt: 2.50, Completion: 10.00},
	})

	tracker.Add("gpt-4o", Usage{PromptTokens: 1_000_000, CompletionTokens: 1_000_000})

	if got, want := tracker.Cost(), 12.50; got != want {
		t.Errorf("Cost() = %v, want %v", got, want)
	}
}

func TestDefaultTokenTracker_CostUnknownModel(t *testing.T) {
	tracker := NewTokenTrackerWithPrices(PriceTable{})
	tracker.Add("mystery-model", Usage{PromptTokens: 1_000_000})

	if got := tracker.Cost(); got != 0 {
		t.Errorf("Cost() for unknown model = %v, want 0", got)
	}
}

func TestDefaultTokenTracker_Reset(t *testing.T) {
	tracker := NewTokenTracker()
	tracker.Add("gpt-4o", Usage{PromptTokens: 100})

	tracker.Reset()

	if got := tracker.Total(); got != (Usage{}) {
		t.Errorf("Total() after reset = %v, want zero", got)
	}
	if got := tracker.ByModel("gpt-4o"); got != (Usage{}) {
		t.Errorf("ByModel() after reset = %v, want zero", got)
	}
}

func TestDefaultTokenTracker_Concurrent(t *testing.T) {
	tracker := NewTokenTracker()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tracker.Add("gpt-4o", Usage{PromptTokens: 1, CompletionTokens: 1})
			}
		}()
	}
	wg.Wait()

	expected := Usage{PromptTokens: 1000, CompletionTokens: 1000}
	if got := tracker.Total(); got != expected {
		t.Errorf("Total() = %v, want %v", got, expected)
	}
}

func TestPriceTable_PrefixLookup(t *testing.T) {
	prices := DefaultPrices()

	dated := prices.Cost("gpt-4o-2024-08-06", Usage{PromptTokens: 1_000_000})
	base := prices.Cost("gpt-4o", Usage{PromptTokens: 1_000_000})
	if dated != base {
		t.Errorf("dated snapshot cost = %v, want base cost %v", dated, base)
	}

	// "gpt-4o-mini" must not resolve to the shorter "gpt-4o" entry.
	mini := prices.Cost("gpt-4o-mini-2024-07-18", Usage{PromptTokens: 1_000_000})
	if mini == base {
		t.Error("mini variant resolved to the gpt-4o entry")
	}
}

func TestUsage_Add(t *testing.T) {
	a := Usage{PromptTokens: 10, CompletionTokens: 5, ReasoningTokens: 2}
	b := Usage{PromptTokens: 1, CompletionTokens: 1, ReasoningTokens: 1}

	got := a.Add(b)
	want := Usage{PromptTokens: 11, CompletionTokens: 6, ReasoningTokens: 3}
	if got != want {
		t.Errorf("Add() = %v, want %v", got, want)
	}
	if got.Total() != 17 {
		t.Errorf("Total() = %d, want 17", got.Total())
	}
}
