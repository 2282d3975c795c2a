package session

import (
	"sync"
	"time"
)

// Session is one worker's binding to a live resource.
type Session struct {
	ID        string
	Worker    WorkerID
	Profile   string
	CreatedAt time.Time

	mu       sync.RWMutex
	state    State
	handle   Resource
	closedAt time.Time
	auth     AuthContext
	values   map[string]any
}

// Handle returns the live resource, or nil once closed.
func (s *Session) Handle() Resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handle
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ClosedAt is zero while the session is active.
func (s *Session) ClosedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closedAt
}

// Auth is the session's bearer-token holder.
func (s *Session) Auth() *AuthContext {
	return &s.auth
}

// Set stores a worker-scoped value, such as the id of an entity the test
// created.
func (s *Session) Set(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]any)
	}
	s.values[key] = v
}

func (s *Session) Value(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// String returns the value for key when it is a string.
func (s *Session) String(key string) string {
	v, _ := s.Value(key)
	str, _ := v.(string)
	return str
}

func (s *Session) close(at time.Time) Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.handle
	s.state = Closed
	s.closedAt = at
	s.handle = nil
	s.values = nil
	s.auth.Clear()
	return h
}

// HandleAs returns the session's resource as T.
func HandleAs[T any](s *Session) (T, bool) {
	var zero T
	if s == nil {
		return zero, false
	}
	h, ok := s.Handle().(T)
	if !ok {
		return zero, false
	}
	return h, true
}

// AuthContext holds an optional bearer token. It is never shared between
// sessions.
type AuthContext struct {
	mu    sync.RWMutex
	token string
}

func (a *AuthContext) SetToken(token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.token = token
}

// Token returns the token and whether one is set.
func (a *AuthContext) Token() (string, bool) {
	if a == nil {
		return "", false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token, a.token != ""
}

func (a *AuthContext) Clear() {
	a.SetToken("")
}
