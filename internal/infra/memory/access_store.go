package memory

import (
	"context"
	"sync"

	"contest-service/internal/domain"
)

// AccessStore is an in-memory implementation of app.AccessRepository.
type AccessStore struct {
	mu     sync.RWMutex
	rounds map[domain.Round]domain.RoundAccess
}

func NewAccessStore() *AccessStore {
	return &AccessStore{rounds: make(map[domain.Round]domain.RoundAccess)}
}

func (s *AccessStore) Get(_ context.Context, round domain.Round) (domain.RoundAccess, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if access, ok := s.rounds[round]; ok {
		return access, nil
	}
	return domain.RoundAccess{Round: round}, nil
}

func (s *AccessStore) Set(_ context.Context, access domain.RoundAccess) (domain.RoundAccess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[access.Round] = access
	return access, nil
}
