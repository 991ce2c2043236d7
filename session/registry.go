package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/google/uuid"
)

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("session: not found")

// DefaultMarkers lists the program names whose presence in a command line
// classifies it as interactive. Matching is token-wise on the command text.
var DefaultMarkers = []string{
	"nc", "ncat", "netcat", "ssh", "telnet", "ftp",
	"python -i", "gdb", "msfconsole",
}

// Registry tracks all live and terminated sessions, keyed by opaque id.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	markers        []string
	preserveOutput bool
	log            *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithMarkers replaces the interactive-command marker list.
func WithMarkers(markers []string) Option {
	return func(r *Registry) { r.markers = markers }
}

// WithPreserveOutput makes Read non-destructive: buffered output stays
// available to subsequent reads.
func WithPreserveOutput() Option {
	return func(r *Registry) { r.preserveOutput = true }
}

// WithLogger sets the structured logger for session lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// NewRegistry creates an empty session registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*Session),
		markers:  DefaultMarkers,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IsInteractive reports whether the command line should run as a session
// rather than synchronously. A command matches when any marker appears as a
// token (or token prefix for multi-word markers) in its text.
func (r *Registry) IsInteractive(command string) bool {
	fields := strings.Fields(command)
	for _, marker := range r.markers {
		if strings.Contains(marker, " ") {
			if strings.Contains(command, marker) {
				return true
			}
			continue
		}
		for _, f := range fields {
			if f == marker {
				return true
			}
		}
	}
	return false
}

// Start spawns command in the background on a pty and returns the new
// session's id. It does not wait for the process.
func (r *Registry) Start(command string) (string, error) {
	cmd := exec.Command("sh", "-c", command)
	tty, err := pty.Start(cmd)
	if err != nil {
		return "", fmt.Errorf("session: start %q: %w", command, err)
	}

	s := &Session{
		id:           uuid.NewString(),
		command:      command,
		created:      time.Now(),
		lastActivity: time.Now(),
		cmd:          cmd,
		tty:          tty,
		state:        StateRunning,
	}

	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()

	// Reader goroutine: buffer output until the pty closes.
	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := tty.Read(buf)
			if n > 0 {
				s.appendOutput(buf[:n])
			}
			if err != nil {
				break
			}
		}
		_ = cmd.Wait()
		s.markTerminated()
		r.log.Debug("session exited", "session_id", s.id, "command", command)
	}()

	r.log.Info("session started", "session_id", s.id, "command", command)
	return s.id, nil
}

// Send writes text to the session's input stream, followed by a newline.
func (r *Registry) Send(id, text string) error {
	s, err := r.get(id)
	if err != nil {
		return err
	}
	if !s.running() {
		return fmt.Errorf("%w: %q has terminated", ErrNotFound, id)
	}

	if _, err := s.tty.Write([]byte(text + "\n")); err != nil {
		return fmt.Errorf("session: write to %q: %w", id, err)
	}
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
	return nil
}

// Read returns output buffered since the last read without blocking.
// Reads consume the buffer unless the registry was built with
// WithPreserveOutput. Reading a terminated session returns whatever remains
// buffered; reading an unknown id returns ErrNotFound.
func (r *Registry) Read(id string) (string, error) {
	s, err := r.get(id)
	if err != nil {
		return "", err
	}
	return s.drain(!r.preserveOutput), nil
}

// List returns a snapshot of all known sessions, ordered by creation time.
func (r *Registry) List() []Info {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Kill terminates the session's process and marks it terminated. Killing an
// already-terminated session is a no-op, not an error.
func (r *Registry) Kill(id string) error {
	s, err := r.get(id)
	if err != nil {
		return err
	}
	if !s.running() {
		return nil
	}

	_ = s.tty.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.markTerminated()
	r.log.Info("session killed", "session_id", id)
	return nil
}

// KillAll terminates every running session. Used on shutdown.
func (r *Registry) KillAll() {
	for _, info := range r.List() {
		_ = r.Kill(info.ID)
	}
}

func (r *Registry) get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s, nil
}
