package memory

import (
	"context"
	"sort"
	"sync"

	"contest-service/internal/domain"
)

// ParticipantStore is an in-memory implementation of app.ParticipantRepository.
type ParticipantStore struct {
	mu           sync.RWMutex
	participants map[string]domain.Participant
}

func NewParticipantStore() *ParticipantStore {
	return &ParticipantStore{participants: make(map[string]domain.Participant)}
}

func (s *ParticipantStore) Create(_ context.Context, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[p.ID]; ok {
		return domain.ErrDuplicateParticipant
	}
	for _, existing := range s.participants {
		if existing.Username == p.Username || (p.EnrollmentNo != "" && existing.EnrollmentNo == p.EnrollmentNo) {
			return domain.ErrDuplicateParticipant
		}
	}
	s.participants[p.ID] = p
	return nil
}

func (s *ParticipantStore) Get(_ context.Context, id string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

func (s *ParticipantStore) List(_ context.Context) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.Before(out[j].RegisteredAt) })
	return out, nil
}

func (s *ParticipantStore) AdvanceRound(_ context.Context, id string, to domain.Round) (domain.Participant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, false, domain.ErrParticipantNotFound
	}
	if p.CurrentRound >= to {
		return p, false, nil
	}
	p.CurrentRound = to
	s.participants[id] = p
	return p, true, nil
}

func (s *ParticipantStore) SetTrack(_ context.Context, id string, track domain.Track) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	switch p.Round3Track {
	case track:
		return p, nil
	case domain.TrackUnset:
		p.Round3Track = track
		s.participants[id] = p
		return p, nil
	default:
		return p, domain.ErrAlreadySelected
	}
}
