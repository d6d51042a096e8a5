package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"contest-service/internal/domain"
)

func TestParticipantStoreUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewParticipantStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	if err := store.Create(ctx, domain.Participant{ID: "a", Username: "alice", EnrollmentNo: "E1", CurrentRound: domain.Round1, RegisteredAt: base}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, domain.Participant{ID: "b", Username: "alice", RegisteredAt: base}); !errors.Is(err, domain.ErrDuplicateParticipant) {
		t.Fatalf("expected duplicate username, got %v", err)
	}
	if err := store.Create(ctx, domain.Participant{ID: "c", Username: "carol", EnrollmentNo: "E1", RegisteredAt: base}); !errors.Is(err, domain.ErrDuplicateParticipant) {
		t.Fatalf("expected duplicate enrollment, got %v", err)
	}
	if err := store.Create(ctx, domain.Participant{ID: "d", Username: "dave", CurrentRound: domain.Round1, RegisteredAt: base.Add(-time.Hour)}); err != nil {
		t.Fatalf("create without enrollment: %v", err)
	}
	if err := store.Create(ctx, domain.Participant{ID: "e", Username: "erin", CurrentRound: domain.Round1, RegisteredAt: base.Add(time.Hour)}); err != nil {
		t.Fatalf("a blank enrollment number must not collide: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].Username != "dave" || list[2].Username != "erin" {
		t.Fatalf("expected registration order, got %+v", list)
	}
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestParticipantStoreAdvanceIsMonotonic(t *testing.T) {
	ctx := context.Background()
	store := NewParticipantStore()
	if err := store.Create(ctx, domain.Participant{ID: "a", Username: "alice", CurrentRound: domain.Round1}); err != nil {
		t.Fatalf("create: %v", err)
	}

	p, changed, err := store.AdvanceRound(ctx, "a", domain.Round3)
	if err != nil || !changed || p.CurrentRound != domain.Round3 {
		t.Fatalf("advance: %+v changed=%v err=%v", p, changed, err)
	}
	p, changed, err = store.AdvanceRound(ctx, "a", domain.Round2)
	if err != nil || changed || p.CurrentRound != domain.Round3 {
		t.Fatalf("a lower round must not regress progress: %+v changed=%v", p, changed)
	}
	if _, _, err := store.AdvanceRound(ctx, "zzz", domain.Round2); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestParticipantStoreTrackLatchUnderRace(t *testing.T) {
	ctx := context.Background()
	store := NewParticipantStore()
	if err := store.Create(ctx, domain.Participant{ID: "a", Username: "alice", CurrentRound: domain.Round3}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		track := domain.TrackDSA
		if i%2 == 1 {
			track = domain.TrackWeb
		}
		wg.Add(1)
		go func(track domain.Track) {
			defer wg.Done()
			if _, err := store.SetTrack(ctx, "a", track); err == nil {
				wins.Add(1)
			}
		}(track)
	}
	wg.Wait()

	p, _ := store.Get(ctx, "a")
	if p.Round3Track == domain.TrackUnset {
		t.Fatalf("expected a latched track")
	}
	// Every caller asking for the winning track succeeds; the others are refused.
	if wins.Load() != 5 {
		t.Fatalf("expected 5 successful selections, got %d", wins.Load())
	}
}

func TestAccessStoreDefaultsClosed(t *testing.T) {
	ctx := context.Background()
	store := NewAccessStore()
	access, err := store.Get(ctx, domain.Round2)
	if err != nil || access.Enabled || access.Round != domain.Round2 {
		t.Fatalf("expected closed gate, got %+v (%v)", access, err)
	}

	at := time.Now().UTC()
	if _, err := store.Set(ctx, domain.RoundAccess{Round: domain.Round2, Enabled: true, EnabledAt: &at}); err != nil {
		t.Fatalf("set: %v", err)
	}
	access, _ = store.Get(ctx, domain.Round2)
	if !access.Enabled || access.EnabledAt == nil || !access.EnabledAt.Equal(at) {
		t.Fatalf("unexpected gate %+v", access)
	}
}

func TestResultStoreOneRecordPerRound(t *testing.T) {
	ctx := context.Background()
	participants := NewParticipantStore()
	if err := participants.Create(ctx, domain.Participant{ID: "a", Username: "alice", CurrentRound: domain.Round1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	store := NewResultStore(participants)

	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(score int) {
			defer wg.Done()
			_, _, err := store.Record(ctx, domain.ResultRecord{ParticipantID: "a", Round: domain.Round1, Score: score, TotalQuestions: 20}, domain.Round2)
			if err == nil {
				ok.Add(1)
			} else if !errors.Is(err, domain.ErrAlreadyAttempted) {
				t.Errorf("unexpected error %v", err)
			}
		}(i)
	}
	wg.Wait()
	if ok.Load() != 1 {
		t.Fatalf("expected exactly one insert to win, got %d", ok.Load())
	}

	p, changed, err := store.Record(ctx, domain.ResultRecord{ParticipantID: "a", Round: domain.Round2, Score: 3, TotalQuestions: 20}, 0)
	if err != nil {
		t.Fatalf("record round 2: %v", err)
	}
	if changed || p.CurrentRound != domain.Round2 {
		t.Fatalf("a record without advancement must leave progress alone, got round %d changed=%v", p.CurrentRound, changed)
	}
	records, _ := store.ListByParticipant(ctx, "a")
	if len(records) != 2 || records[0].Round != domain.Round1 || records[1].Round != domain.Round2 {
		t.Fatalf("expected records in round order, got %+v", records)
	}
	byRound, _ := store.ListByRound(ctx, domain.Round2)
	if len(byRound) != 1 {
		t.Fatalf("expected one round 2 record, got %d", len(byRound))
	}
}

func TestResultStoreFailedAdvanceKeepsNoRecord(t *testing.T) {
	ctx := context.Background()
	participants := NewParticipantStore()
	store := NewResultStore(participants)
	rec := domain.ResultRecord{ParticipantID: "late", Round: domain.Round1, Score: 12, TotalQuestions: 20}

	if _, _, err := store.Record(ctx, rec, domain.Round2); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected the advance to fail, got %v", err)
	}
	if records, _ := store.ListByParticipant(ctx, "late"); len(records) != 0 {
		t.Fatalf("a failed advance must not leave a record, got %+v", records)
	}

	if err := participants.Create(ctx, domain.Participant{ID: "late", Username: "late", CurrentRound: domain.Round1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	p, changed, err := store.Record(ctx, rec, domain.Round2)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !changed || p.CurrentRound != domain.Round2 {
		t.Fatalf("expected the retry to advance, got round %d changed=%v", p.CurrentRound, changed)
	}
}

func TestSubmissionStoreScoresOnce(t *testing.T) {
	ctx := context.Background()
	store := NewSubmissionStore()
	now := time.Now()

	accepted, err := store.Create(ctx, domain.Submission{ID: "s1", ParticipantID: "a", Track: domain.TrackDSA, ChallengeID: "dsa-1", CreatedAt: now})
	if err != nil || !accepted {
		t.Fatalf("create: accepted=%v err=%v", accepted, err)
	}
	accepted, err = store.Create(ctx, domain.Submission{ID: "s2", ParticipantID: "a", Track: domain.TrackDSA, ChallengeID: "dsa-1", CreatedAt: now})
	if err != nil || accepted {
		t.Fatalf("expected duplicate challenge refused, accepted=%v err=%v", accepted, err)
	}
	if _, err := store.Create(ctx, domain.Submission{ID: "s3", ParticipantID: "b", Track: domain.TrackWeb, ChallengeID: "web-1", CreatedAt: now.Add(time.Second)}); err != nil {
		t.Fatalf("create: %v", err)
	}

	scored, err := store.Score(ctx, "s1", 4)
	if err != nil || !scored.Scored || *scored.Score != 4 {
		t.Fatalf("score: %+v (%v)", scored, err)
	}
	if _, err := store.Score(ctx, "s1", -1); !errors.Is(err, domain.ErrAlreadyScored) {
		t.Fatalf("expected already scored, got %v", err)
	}
	if _, err := store.Score(ctx, "nope", 4); !errors.Is(err, domain.ErrSubmissionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	pending, _ := store.List(ctx, domain.SubmissionFilter{Unscored: true})
	if len(pending) != 1 || pending[0].ID != "s3" {
		t.Fatalf("expected only s3 pending, got %+v", pending)
	}
	dsa, _ := store.List(ctx, domain.SubmissionFilter{Track: domain.TrackDSA})
	if len(dsa) != 1 || dsa[0].ID != "s1" {
		t.Fatalf("expected track filter, got %+v", dsa)
	}
	mine, _ := store.List(ctx, domain.SubmissionFilter{ParticipantID: "b"})
	if len(mine) != 1 || mine[0].ID != "s3" {
		t.Fatalf("expected participant filter, got %+v", mine)
	}
}
