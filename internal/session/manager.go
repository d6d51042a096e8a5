package session

import (
	"context"
	"fmt"
	"log"
	"sync"

	"contest-service/internal/domain"
	"contest-service/internal/metrics"
)

// Registry abstracts how live sessions are tracked (in-memory, Redis, etc).
type Registry interface {
	// Put stores s under key unless a live session is already there, in which
	// case the existing one is returned with false.
	Put(key string, s *Session) (*Session, bool)
	Get(key string) (*Session, bool)
	// Delete removes key only while it still maps to s.
	Delete(key string, s *Session)
}

// LiveChecker is implemented by registries that can see sessions hosted by
// other instances.
type LiveChecker interface {
	Live(ctx context.Context, key string) (bool, error)
}

// Manager hosts sessions: one live session per (participant, round), each
// with its own clock driver and access watcher.
type Manager struct {
	backend  Backend
	registry Registry
	cfg      Config

	mu       sync.Mutex
	attached map[*Session]int
}

func NewManager(backend Backend, registry Registry, cfg Config) *Manager {
	return &Manager{
		backend:  backend,
		registry: registry,
		cfg:      cfg.withDefaults(),
		attached: make(map[*Session]int),
	}
}

// Key identifies the live session of a participant round.
func Key(participantID string, round domain.Round) string {
	return fmt.Sprintf("%s:%d", participantID, round)
}

// Open returns the participant's live session for round, creating it when
// none is running. The participant snapshot always comes from the backend.
// A participant who already holds a record for the round gets a session that
// is already aborted as blocked and is never registered.
func (m *Manager) Open(ctx context.Context, participantID string, round domain.Round) (*Session, error) {
	key := Key(participantID, round)
	s, ok := m.registry.Get(key)
	if ok && !s.Status().Terminal() {
		return s, nil
	}
	if lc, isChecker := m.registry.(LiveChecker); isChecker && !ok {
		live, err := lc.Live(ctx, key)
		if err != nil {
			log.Printf("session registry: liveness of %s: %v", key, err)
		} else if live {
			return nil, domain.ErrSessionElsewhere
		}
	}

	participant, err := m.backend.Participant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	s, err = New(m.backend, participant, round, m.cfg)
	if err != nil {
		return nil, err
	}
	blocked, err := s.refuseRetake(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	if blocked {
		log.Printf("session %s: participant %s already attempted round %d", s.ID(), participantID, round)
		return s, nil
	}
	if existing, stored := m.registry.Put(key, s); !stored {
		s.Close()
		return existing, nil
	}

	metrics.SessionsLive.Inc()
	go NewWatcher(m.backend, s, m.cfg).Run(s.Context())
	go func() {
		<-s.Done()
		m.registry.Delete(key, s)
		metrics.SessionsLive.Dec()
	}()
	log.Printf("session %s opened for participant %s round %d", s.ID(), participantID, round)
	return s, nil
}

// Attach opens the participant's session and counts the caller as one of its
// connections. The returned detach func releases that connection; the session
// is abandoned only when its last connection detaches.
func (m *Manager) Attach(ctx context.Context, participantID string, round domain.Round) (*Session, func(), error) {
	s, err := m.Open(ctx, participantID, round)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	m.attached[s]++
	m.mu.Unlock()

	var once sync.Once
	detach := func() {
		once.Do(func() {
			m.mu.Lock()
			m.attached[s]--
			last := m.attached[s] <= 0
			if last {
				delete(m.attached, s)
			}
			m.mu.Unlock()
			if last {
				s.Close()
			}
		})
	}
	return s, detach, nil
}

// Attached reports how many connections hold the session.
func (m *Manager) Attached(s *Session) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attached[s]
}

func (m *Manager) Get(participantID string, round domain.Round) (*Session, error) {
	s, ok := m.registry.Get(Key(participantID, round))
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}
