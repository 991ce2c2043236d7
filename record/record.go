// Package record persists the raw model traffic of a run: for every
// interaction, the request parameters sent to the provider and the response
// that came back. The JSONL form doubles as training data and as a replayable
// transcript; the Redis form feeds live offline tooling.
package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/talon-sec/talon/llm"
)

// ErrClosed is returned when recording to a closed recorder.
var ErrClosed = errors.New("record: recorder closed")

// Entry is one interaction: the request as sent and the response as received.
type Entry struct {
	// Run identifies the run this interaction belongs to.
	Run string `json:"run"`

	// Agent is the name of the agent that issued the request.
	Agent string `json:"agent"`

	// Interaction is the 1-based interaction counter within the run.
	Interaction int `json:"interaction"`

	// Time is when the response was received.
	Time time.Time `json:"time"`

	Request  llm.Request   `json:"request"`
	Response *llm.Response `json:"response"`
}

// Recorder receives one Entry per completed interaction.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	Close() error
}

// JSONL appends interactions to a timestamped .jsonl file, two lines per
// interaction: a request object followed by a completion object.
type JSONL struct {
	mu     sync.Mutex
	file   *os.File
	closed bool
}

// NewJSONL creates the log directory if needed and opens a fresh file named
// after the current time, e.g. logs/talon_20260830_151004.jsonl.
func NewJSONL(dir string) (*JSONL, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("record: create log directory: %w", err)
	}
	name := filepath.Join(dir, "talon_"+time.Now().Format("20060102_150405")+".jsonl")
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("record: open log file: %w", err)
	}
	return &JSONL{file: file}, nil
}

// Filename returns the path of the underlying file.
func (r *JSONL) Filename() string { return r.file.Name() }

type requestLine struct {
	Kind        string `json:"kind"`
	Run         string `json:"run"`
	Agent       string `json:"agent"`
	Interaction int    `json:"interaction"`
	llm.Request
}

type responseLine struct {
	Kind        string        `json:"kind"`
	Run         string        `json:"run"`
	Agent       string        `json:"agent"`
	Interaction int           `json:"interaction"`
	Created     int64         `json:"created"`
	Response    *llm.Response `json:"response"`
}

// Record appends the request line and the response line for entry.
func (r *JSONL) Record(_ context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	enc := json.NewEncoder(r.file)
	err := enc.Encode(requestLine{
		Kind:        "request",
		Run:         entry.Run,
		Agent:       entry.Agent,
		Interaction: entry.Interaction,
		Request:     entry.Request,
	})
	if err != nil {
		return fmt.Errorf("record: write request: %w", err)
	}
	err = enc.Encode(responseLine{
		Kind:        "completion",
		Run:         entry.Run,
		Agent:       entry.Agent,
		Interaction: entry.Interaction,
		Created:     entry.Time.Unix(),
		Response:    entry.Response,
	})
	if err != nil {
		return fmt.Errorf("record: write response: %w", err)
	}
	return nil
}

// Close flushes and closes the file. Safe to call more than once.
func (r *JSONL) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

// Multi fans one entry out to several recorders, stopping at the first
// failure. Close closes every recorder and returns the first error.
func Multi(recorders ...Recorder) Recorder {
	return multi(recorders)
}

type multi []Recorder

func (m multi) Record(ctx context.Context, entry Entry) error {
	for _, r := range m {
		if err := r.Record(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (m multi) Close() error {
	var first error
	for _, r := range m {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
