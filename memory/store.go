// Package memory provides the stores backing the interleaved memory agents:
// an ephemeral working tier for the current run and a persistent episodic
// tier holding the summaries the memory builders produce.
//
// The vector-database retrieval layer is an external collaborator; it
// appears here only as the Recaller boundary interface.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Common errors returned by memory operations.
var (
	// ErrNotFound is returned when a requested item does not exist.
	ErrNotFound = errors.New("memory: item not found")

	// ErrInvalidKey is returned when a key is empty.
	ErrInvalidKey = errors.New("memory: invalid key")

	// ErrStorageFailed is returned when the underlying backend fails.
	ErrStorageFailed = errors.New("memory: storage operation failed")
)

// Entry is one episodic memory: a summary produced by a memory-builder
// agent at some point in a run.
type Entry struct {
	// ID identifies the entry within its run.
	ID string `json:"id"`

	// Run identifies the run the entry belongs to.
	Run string `json:"run"`

	// Agent is the builder agent that produced the summary.
	Agent string `json:"agent"`

	// Summary is the memory content.
	Summary string `json:"summary"`

	// CreatedAt is when the entry was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// Store provides access to the memory tiers.
type Store interface {
	// Working returns the ephemeral key-value tier for the current run.
	Working() Working

	// Episodic returns the persistent tier of builder-produced summaries.
	Episodic() Episodic
}

// Working is fast in-process key-value storage cleared between runs.
type Working interface {
	// Get retrieves a value by key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) (any, error)

	// Set stores a value. Returns ErrInvalidKey on an empty key.
	Set(ctx context.Context, key string, value any) error

	// Delete removes a key. Returns ErrNotFound if absent.
	Delete(ctx context.Context, key string) error

	// Clear removes all values.
	Clear(ctx context.Context) error

	// Keys returns all stored keys.
	Keys(ctx context.Context) ([]string, error)
}

// Episodic is the append-oriented tier of run summaries.
type Episodic interface {
	// Append records a new entry.
	Append(ctx context.Context, e Entry) error

	// Recent returns up to n entries for the run, newest last.
	Recent(ctx context.Context, run string, n int) ([]Entry, error)

	// Clear removes all entries for the run.
	Clear(ctx context.Context, run string) error
}

// Recaller is the boundary to the external retrieval-augmented memory
// subsystem. Implementations perform semantic search over past runs.
type Recaller interface {
	// Recall returns up to topK entries relevant to the query.
	Recall(ctx context.Context, query string, topK int) ([]Entry, error)
}

// InMemoryStore is a Store with both tiers held in process memory.
type InMemoryStore struct {
	working  *inMemoryWorking
	episodic *inMemoryEpisodic
}

// NewInMemoryStore creates an empty in-process store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		working:  &inMemoryWorking{items: make(map[string]any)},
		episodic: &inMemoryEpisodic{runs: make(map[string][]Entry)},
	}
}

// Working implements Store.
func (s *InMemoryStore) Working() Working { return s.working }

// Episodic implements Store.
func (s *InMemoryStore) Episodic() Episodic { return s.episodic }

type inMemoryWorking struct {
	mu    sync.RWMutex
	items map[string]any
}

func (w *inMemoryWorking) Get(_ context.Context, key string) (any, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	v, ok := w.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (w *inMemoryWorking) Set(_ context.Context, key string, value any) error {
	if key == "" {
		return ErrInvalidKey
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items[key] = value
	return nil
}

func (w *inMemoryWorking) Delete(_ context.Context, key string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.items[key]; !ok {
		return ErrNotFound
	}
	delete(w.items, key)
	return nil
}

func (w *inMemoryWorking) Clear(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = make(map[string]any)
	return nil
}

func (w *inMemoryWorking) Keys(_ context.Context) ([]string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	keys := make([]string, 0, len(w.items))
	for k := range w.items {
		keys = append(keys, k)
	}
	return keys, nil
}

type inMemoryEpisodic struct {
	mu   sync.RWMutex
	runs map[string][]Entry
}

func (e *inMemoryEpisodic) Append(_ context.Context, entry Entry) error {
	if entry.Run == "" {
		return ErrInvalidKey
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs[entry.Run] = append(e.runs[entry.Run], entry)
	return nil
}

func (e *inMemoryEpisodic) Recent(_ context.Context, run string, n int) ([]Entry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entries := e.runs[run]
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return append([]Entry(nil), entries...), nil
}

func (e *inMemoryEpisodic) Clear(_ context.Context, run string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.runs, run)
	return nil
}
