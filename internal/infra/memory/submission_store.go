package memory

import (
	"context"
	"sort"
	"sync"

	"contest-service/internal/domain"
)

// SubmissionStore is an in-memory implementation of app.SubmissionRepository.
type SubmissionStore struct {
	mu          sync.RWMutex
	submissions map[string]domain.Submission
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{submissions: make(map[string]domain.Submission)}
}

func (s *SubmissionStore) Create(_ context.Context, sub domain.Submission) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.submissions {
		if existing.ParticipantID == sub.ParticipantID && existing.ChallengeID == sub.ChallengeID {
			return false, nil
		}
	}
	s.submissions[sub.ID] = sub
	return true, nil
}

func (s *SubmissionStore) Get(_ context.Context, id string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *SubmissionStore) Score(_ context.Context, id string, score int) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.submissions[id]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if sub.Scored {
		return sub, domain.ErrAlreadyScored
	}
	sub.Scored = true
	sub.Score = &score
	s.submissions[id] = sub
	return sub, nil
}

func (s *SubmissionStore) List(_ context.Context, filter domain.SubmissionFilter) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		if filter.ParticipantID != "" && sub.ParticipantID != filter.ParticipantID {
			continue
		}
		if filter.Track != domain.TrackUnset && sub.Track != filter.Track {
			continue
		}
		if filter.Unscored && sub.Scored {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
