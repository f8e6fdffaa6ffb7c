package memory

import (
	"context"
	"sync"
)

// SessionStore holds the session token in memory. It satisfies the same
// contract as the Redis store but does not survive a restart; it is the
// fallback when no Redis address is configured.
type SessionStore struct {
	mu    sync.RWMutex
	token string
	set   bool
}

func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

func (s *SessionStore) Set(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.set = true
	return nil
}

func (s *SessionStore) Get(_ context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.set, nil
}

func (s *SessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.set = false
	return nil
}
