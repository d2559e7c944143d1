package session

import (
	"sync"
	"time"

	"github.com/harunnryd/voxa/pkg/errorsx"
)

var (
	// ErrAlreadyActive is returned by Create when an active session with the
	// same id exists.
	ErrAlreadyActive = errorsx.New(errorsx.ReasonAlreadyActive, "session already active")
	// ErrNotFound is returned by Get for unknown session ids.
	ErrNotFound = errorsx.New(errorsx.ReasonSessionNotFound, "session not found")
)

// Session is one ongoing conversation bound to a voice scope. The id doubles
// as the voice-scope lookup key; live platform handles are re-resolved
// through the adapters at the point of use, never stored here.
type Session struct {
	ID        string
	ChannelID string
	StartedAt time.Time

	mu     sync.Mutex
	active bool
}

// New builds a standalone session outside any registry. Used for one-shot
// turns that must not collide with the conversation loop.
func New(id, channelID string) *Session {
	return &Session{
		ID:        id,
		ChannelID: channelID,
		StartedAt: time.Now(),
		active:    true,
	}
}

// Active reports whether the conversation loop should continue after the
// current turn.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Session) deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

// Registry is the process-wide mapping from voice-scope id to session state.
// Pure guarded mutation; no background goroutines.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create inserts a new active session. Fails with ErrAlreadyActive when an
// active session with that id exists; a deactivated leftover is replaced.
func (r *Registry) Create(id, channelID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.sessions[id]; ok && existing.Active() {
		return nil, ErrAlreadyActive
	}
	s := New(id, channelID)
	r.sessions[id] = s
	return s, nil
}

// Get returns the session for id, or ErrNotFound.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Deactivate flips the session inactive. Idempotent; unknown ids are a
// no-op. A turn already in flight is allowed to finish, the loop checks the
// flag before scheduling the next one.
func (r *Registry) Deactivate(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.deactivate()
	}
}

// Remove deletes the session entry. Idempotent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}
