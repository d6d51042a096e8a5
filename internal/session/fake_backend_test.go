package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"contest-service/internal/domain"
)

type fakeBackend struct {
	mu          sync.Mutex
	participant domain.Participant
	access      map[domain.Round]bool
	sets        map[string]domain.QuestionSet
	questionErr error
	submitErr   error
	selectErr   error
	resultsErr  error
	results     []domain.ResultRecord

	// release, when set, blocks SubmitResult until closed.
	release     chan struct{}
	submitting  chan struct{}
	submitCalls atomic.Int32
	lastSubmit  domain.ResultSubmission
}

func newFakeBackend(p domain.Participant) *fakeBackend {
	return &fakeBackend{
		participant: p,
		access:      map[domain.Round]bool{domain.Round1: true, domain.Round2: true, domain.Round3: true},
		sets:        make(map[string]domain.QuestionSet),
		submitting:  make(chan struct{}, 16),
	}
}

func (b *fakeBackend) addSet(set domain.QuestionSet) {
	b.sets[fmt.Sprintf("%d:%s", set.Round, set.Variant)] = set
}

func (b *fakeBackend) Participant(_ context.Context, id string) (domain.Participant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id != b.participant.ID {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return b.participant, nil
}

func (b *fakeBackend) RoundAccess(_ context.Context, round domain.Round) (domain.RoundAccess, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.RoundAccess{Round: round, Enabled: b.access[round]}, nil
}

func (b *fakeBackend) setAccess(round domain.Round, open bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access[round] = open
}

func (b *fakeBackend) Questions(_ context.Context, round domain.Round, variant string) (domain.QuestionSet, error) {
	if b.questionErr != nil {
		return domain.QuestionSet{}, b.questionErr
	}
	set, ok := b.sets[fmt.Sprintf("%d:%s", round, variant)]
	if !ok {
		return domain.QuestionSet{}, domain.ErrQuestionsNotFound
	}
	return set, nil
}

func (b *fakeBackend) SubmitResult(ctx context.Context, sub domain.ResultSubmission) (domain.Participant, domain.ResultRecord, error) {
	b.submitCalls.Add(1)
	b.submitting <- struct{}{}
	if b.release != nil {
		select {
		case <-b.release:
		case <-ctx.Done():
			return domain.Participant{}, domain.ResultRecord{}, ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastSubmit = sub
	if b.submitErr != nil {
		return domain.Participant{}, domain.ResultRecord{}, b.submitErr
	}
	rec := domain.ResultRecord{
		ID:             "rec-1",
		ParticipantID:  sub.ParticipantID,
		Round:          sub.Round,
		Variant:        sub.Variant,
		Score:          sub.Score,
		TotalQuestions: sub.TotalQuestions,
	}
	if sub.Round < domain.Round3 && b.participant.CurrentRound <= sub.Round {
		b.participant.CurrentRound = sub.Round + 1
	}
	b.results = append(b.results, rec)
	return b.participant, rec, nil
}

func (b *fakeBackend) Results(_ context.Context, participantID string) ([]domain.ResultRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.resultsErr != nil {
		return nil, b.resultsErr
	}
	var out []domain.ResultRecord
	for _, rec := range b.results {
		if rec.ParticipantID == participantID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (b *fakeBackend) SelectTrack(_ context.Context, _ string, track domain.Track) (domain.Participant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.selectErr != nil {
		return b.participant, b.selectErr
	}
	b.participant.Round3Track = track
	return b.participant, nil
}

func (b *fakeBackend) SubmitChallenge(_ context.Context, participantID, challengeID, _ string) (domain.Submission, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.Submission{ID: "sub-" + challengeID, ParticipantID: participantID, ChallengeID: challengeID}, true, nil
}

func (b *fakeBackend) submitted() domain.ResultSubmission {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSubmit
}

func mcqSet(round domain.Round, variant string, n int) domain.QuestionSet {
	set := domain.QuestionSet{Round: round, Variant: variant}
	for i := 0; i < n; i++ {
		set.Questions = append(set.Questions, domain.Question{
			ID:            fmt.Sprintf("q%d", i),
			Prompt:        fmt.Sprintf("question %d", i),
			Options:       []string{"a", "b", "c", "d"},
			CorrectOption: 2,
		})
	}
	return set
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Rounds = map[domain.Round]RoundSettings{
		domain.Round1: {Mode: ModePerQuestion, QuestionSeconds: 2},
		domain.Round2: {Mode: ModeBatched, BudgetSeconds: 3},
		domain.Round3: {Mode: ModeChallenge, BudgetSeconds: 5},
	}
	return cfg
}
