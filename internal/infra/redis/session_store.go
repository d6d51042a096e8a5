package redis

import (
	"context"
	"sync"
	"time"

	"contest-service/internal/session"
	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of session.Registry.
// Notes:
//   - Sessions are hosted in-process (their clocks and watchers run here), so
//     the live objects stay in a local map.
//   - Redis marks which participant rounds are live, with a TTL refreshed on
//     every Put, so other instances and operators can see them.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

var _ session.LiveChecker = (*SessionStore)(nil)

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
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
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(key), sess.ID(), s.ttl).Err()
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
	current, ok := s.sessions[key]
	if !ok || current != sess {
		return
	}
	delete(s.sessions, key)
	_ = s.client.Del(context.Background(), s.key(key)).Err()
}

// Live reports whether any instance marked the participant round as live.
func (s *SessionStore) Live(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SessionStore) key(key string) string {
	return "contest:session:" + key
}
