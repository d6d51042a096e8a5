package memory

import (
	"context"
	"sort"
	"sync"

	"contest-service/internal/domain"
)

type resultKey struct {
	participantID string
	round         domain.Round
}

// ResultStore is an in-memory implementation of app.ResultRepository keyed
// by (participant, round). Progression lives in the participant store it
// records against.
type ResultStore struct {
	mu           sync.RWMutex
	records      map[resultKey]domain.ResultRecord
	participants *ParticipantStore
}

func NewResultStore(participants *ParticipantStore) *ResultStore {
	return &ResultStore{
		records:      make(map[resultKey]domain.ResultRecord),
		participants: participants,
	}
}

// Record holds the result lock across the progression update, and the record
// is only stored once the participant was advanced.
func (s *ResultStore) Record(ctx context.Context, rec domain.ResultRecord, advanceTo domain.Round) (domain.Participant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := resultKey{participantID: rec.ParticipantID, round: rec.Round}
	if _, ok := s.records[key]; ok {
		return domain.Participant{}, false, domain.ErrAlreadyAttempted
	}

	var (
		p       domain.Participant
		changed bool
		err     error
	)
	if advanceTo.Valid() {
		p, changed, err = s.participants.AdvanceRound(ctx, rec.ParticipantID, advanceTo)
	} else {
		p, err = s.participants.Get(ctx, rec.ParticipantID)
	}
	if err != nil {
		return domain.Participant{}, false, err
	}
	s.records[key] = rec
	return p, changed, nil
}

func (s *ResultStore) ListByParticipant(_ context.Context, participantID string) ([]domain.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ResultRecord
	for _, round := range domain.Rounds {
		if rec, ok := s.records[resultKey{participantID: participantID, round: round}]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *ResultStore) ListByRound(_ context.Context, round domain.Round) ([]domain.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ResultRecord
	for key, rec := range s.records {
		if key.round == round {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out, nil
}
