package session

import (
	"bytes"
	"os"
	"os/exec"
	"sync"
	"time"
)

// State describes a session's lifecycle position.
type State string

const (
	// StateRunning means the process is alive.
	StateRunning State = "running"

	// StateTerminated means the process has exited or was killed.
	StateTerminated State = "terminated"
)

// Session is one interactive subprocess. It is owned exclusively by the
// Registry; callers hold only its id.
type Session struct {
	mu sync.Mutex

	id      string
	command string
	created time.Time

	cmd *exec.Cmd
	tty *os.File

	buf          bytes.Buffer
	lastActivity time.Time
	state        State
}

// Info is the caller-visible snapshot of a session.
type Info struct {
	// ID is the opaque session identifier.
	ID string `json:"session_id"`

	// Command is the command line the session was started with.
	Command string `json:"command"`

	// CreatedAt is when the session was started.
	CreatedAt time.Time `json:"created_at"`

	// LastActivity is the time of the last write to or output from the
	// session.
	LastActivity time.Time `json:"last_activity"`

	// State is running or terminated.
	State State `json:"state"`
}

// ID returns the session's opaque identifier.
func (s *Session) ID() string { return s.id }

func (s *Session) info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:           s.id,
		Command:      s.command,
		CreatedAt:    s.created,
		LastActivity: s.lastActivity,
		State:        s.state,
	}
}

// appendOutput is called from the reader goroutine.
func (s *Session) appendOutput(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Write(p)
	s.lastActivity = time.Now()
}

// drain returns buffered output. When consume is true the buffer is reset.
func (s *Session) drain(consume bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.buf.String()
	if consume {
		s.buf.Reset()
	}
	return out
}

func (s *Session) markTerminated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateTerminated
	s.lastActivity = time.Now()
}

func (s *Session) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning
}
