package memory

import (
	"sync"

	"contest-service/internal/session"
)

// SessionStore is an in-memory implementation of session.Registry.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session.Session),
	}
}

func (s *SessionStore) Put(key string, sess *session.Session) (*session.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[key]; ok && !existing.Status().Terminal() {
		return existing, false
	}
	s.sessions[key] = sess
	return sess, true
}

func (s *SessionStore) Get(key string) (*session.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[key]
	return sess, ok
}

func (s *SessionStore) Delete(key string, sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.sessions[key]; ok && current == sess {
		delete(s.sessions, key)
	}
}
