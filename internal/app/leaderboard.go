package app

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"contest-service/internal/domain"
	"contest-service/internal/metrics"
)

// Leaderboard ranks a round's participants. Rounds 1 and 2 rank result
// records; Round 3 ranks the sum of administrator-scored submissions.
func (s *ContestService) Leaderboard(ctx context.Context, round domain.Round) (domain.Leaderboard, error) {
	if !round.Valid() {
		return domain.Leaderboard{}, domain.ErrInvalidRound
	}
	participants, err := s.participants.List(ctx)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	byID := make(map[string]domain.Participant, len(participants))
	for _, p := range participants {
		if !p.IsAdmin {
			byID[p.ID] = p
		}
	}

	var entries []domain.LeaderboardEntry
	if round == domain.Round3 {
		entries, err = s.submissionStandings(ctx, byID)
	} else {
		entries, err = s.resultStandings(ctx, round, byID)
	}
	if err != nil {
		return domain.Leaderboard{}, err
	}

	rank(entries)
	return domain.Leaderboard{Round: round, Entries: entries, UpdatedAt: s.now().UTC()}, nil
}

// PromoteTopN advances the top n of round's leaderboard to the next round.
// Participants already past round are skipped, so repeated calls are no-ops.
func (s *ContestService) PromoteTopN(ctx context.Context, adminID string, round domain.Round, n int) (int, error) {
	if round != domain.Round1 && round != domain.Round2 {
		return 0, domain.ErrInvalidRound
	}
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}
	board, err := s.Leaderboard(ctx, round)
	if err != nil {
		return 0, err
	}
	if len(board.Entries) > n {
		board.Entries = board.Entries[:n]
	}

	updated := 0
	for _, entry := range board.Entries {
		_, changed, err := s.participants.AdvanceRound(ctx, entry.ParticipantID, round+1)
		if err != nil {
			if errors.Is(err, domain.ErrParticipantNotFound) {
				continue
			}
			return updated, err
		}
		if changed {
			updated++
		}
	}

	metrics.Promotions.WithLabelValues(roundLabel(round)).Add(float64(updated))
	log.Printf("promoted %d participants from round %d to round %d", updated, round, round+1)
	s.publish(ctx, EventParticipantsPromoted, map[string]int{
		"fromRound":    int(round),
		"requested":    n,
		"totalUpdated": updated,
	})
	return updated, nil
}

func (s *ContestService) resultStandings(ctx context.Context, round domain.Round, byID map[string]domain.Participant) ([]domain.LeaderboardEntry, error) {
	records, err := s.results.ListByRound(ctx, round)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LeaderboardEntry, 0, len(records))
	for _, rec := range records {
		p, ok := byID[rec.ParticipantID]
		if !ok {
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			ParticipantID: p.ID,
			Username:      p.Username,
			CurrentRound:  p.CurrentRound,
			Score:         rec.Score,
			Total:         rec.TotalQuestions,
			Percentage:    percentage(rec.Score, rec.TotalQuestions),
			CompletedAt:   rec.CompletedAt,
		})
	}
	return entries, nil
}

func (s *ContestService) submissionStandings(ctx context.Context, byID map[string]domain.Participant) ([]domain.LeaderboardEntry, error) {
	subs, err := s.submissions.List(ctx, domain.SubmissionFilter{})
	if err != nil {
		return nil, err
	}
	type tally struct {
		score  int
		scored int
		last   time.Time
	}
	tallies := make(map[string]*tally)
	for _, sub := range subs {
		if !sub.Scored || sub.Score == nil {
			continue
		}
		t, ok := tallies[sub.ParticipantID]
		if !ok {
			t = &tally{}
			tallies[sub.ParticipantID] = t
		}
		t.score += *sub.Score
		t.scored++
		if sub.CreatedAt.After(t.last) {
			t.last = sub.CreatedAt
		}
	}

	entries := make([]domain.LeaderboardEntry, 0, len(tallies))
	for id, t := range tallies {
		p, ok := byID[id]
		if !ok {
			continue
		}
		total := t.scored * 4
		entries = append(entries, domain.LeaderboardEntry{
			ParticipantID: p.ID,
			Username:      p.Username,
			CurrentRound:  p.CurrentRound,
			Score:         t.score,
			Total:         total,
			Percentage:    percentage(t.score, total),
			CompletedAt:   t.last,
		})
	}
	return entries, nil
}

// rank orders by percentage, then score, then who finished first, then name.
func rank(entries []domain.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Percentage != b.Percentage {
			return a.Percentage > b.Percentage
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.CompletedAt.Equal(b.CompletedAt) {
			return a.CompletedAt.Before(b.CompletedAt)
		}
		return a.Username < b.Username
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

func percentage(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) * 100 / float64(total)
}
