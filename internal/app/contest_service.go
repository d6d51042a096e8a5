package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"contest-service/internal/domain"
	"contest-service/internal/metrics"
	"github.com/google/uuid"
)

// Repositories groups the stores backing the contest.
type Repositories struct {
	Participants ParticipantRepository
	Access       AccessRepository
	Results      ResultRepository
	Submissions  SubmissionRepository
	Questions    QuestionRepository
}

// ContestService is the authoritative backend: it owns round access, result
// records, track latches and Round 3 scoring. Clients only submit creation
// requests that it accepts or rejects atomically.
type ContestService struct {
	participants ParticipantRepository
	access       AccessRepository
	results      ResultRepository
	submissions  SubmissionRepository
	questions    QuestionRepository
	events       EventPublisher
	rules        Rules
	now          func() time.Time
}

// Option customises a ContestService.
type Option func(*ContestService)

func WithEventPublisher(p EventPublisher) Option {
	return func(s *ContestService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithRules(r Rules) Option {
	return func(s *ContestService) { s.rules = r }
}

// WithClock allows deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(s *ContestService) { s.now = now }
}

func NewContestService(repos Repositories, opts ...Option) *ContestService {
	s := &ContestService{
		participants: repos.Participants,
		access:       repos.Access,
		results:      repos.Results,
		submissions:  repos.Submissions,
		questions:    repos.Questions,
		events:       discardPublisher{},
		rules:        DefaultRules(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rules returns the settings the service enforces.
func (s *ContestService) Rules() Rules {
	return s.rules
}

// RegisterParticipant creates a participant at Round 1. Administrators start
// with every round unlocked.
func (s *ContestService) RegisterParticipant(ctx context.Context, username, enrollmentNo string, isAdmin bool) (domain.Participant, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Participant{}, domain.ErrUsernameRequired
	}
	p := domain.Participant{
		ID:           uuid.NewString(),
		Username:     username,
		EnrollmentNo: strings.TrimSpace(enrollmentNo),
		IsAdmin:      isAdmin,
		CurrentRound: domain.Round1,
		RegisteredAt: s.now().UTC(),
	}
	if isAdmin {
		p.CurrentRound = domain.Round3
	}
	if err := s.participants.Create(ctx, p); err != nil {
		return domain.Participant{}, err
	}
	return p, nil
}

func (s *ContestService) Participant(ctx context.Context, id string) (domain.Participant, error) {
	return s.participants.Get(ctx, id)
}

// Results lists the participant's result records.
func (s *ContestService) Results(ctx context.Context, participantID string) ([]domain.ResultRecord, error) {
	if _, err := s.participants.Get(ctx, participantID); err != nil {
		return nil, err
	}
	return s.results.ListByParticipant(ctx, participantID)
}

// RoundAccess returns a snapshot of the round's gate. Callers must re-read it
// before every decision.
func (s *ContestService) RoundAccess(ctx context.Context, round domain.Round) (domain.RoundAccess, error) {
	if !round.Valid() {
		return domain.RoundAccess{}, domain.ErrInvalidRound
	}
	return s.access.Get(ctx, round)
}

// SetRoundAccess is the only mutator of the gate. Enabling a closed round
// stamps enabled_at; disabling clears it.
func (s *ContestService) SetRoundAccess(ctx context.Context, round domain.Round, enabled bool, adminID string) (domain.RoundAccess, error) {
	if !round.Valid() {
		return domain.RoundAccess{}, domain.ErrInvalidRound
	}
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return domain.RoundAccess{}, err
	}
	current, err := s.access.Get(ctx, round)
	if err != nil {
		return domain.RoundAccess{}, err
	}

	next := domain.RoundAccess{Round: round, Enabled: enabled}
	switch {
	case enabled && current.Enabled:
		next.EnabledAt = current.EnabledAt
	case enabled:
		at := s.now().UTC()
		next.EnabledAt = &at
	}

	saved, err := s.access.Set(ctx, next)
	if err != nil {
		return domain.RoundAccess{}, err
	}
	metrics.GateToggles.WithLabelValues(roundLabel(round), strconv.FormatBool(enabled)).Inc()
	log.Printf("round %d access set to %v by %s", round, enabled, adminID)
	s.publish(ctx, EventRoundAccessChanged, saved)
	return saved, nil
}

// Questions returns the question set for a round variant, truncated to the
// configured question limit.
func (s *ContestService) Questions(ctx context.Context, round domain.Round, variant string) (domain.QuestionSet, error) {
	if !round.Valid() {
		return domain.QuestionSet{}, domain.ErrInvalidRound
	}
	if !s.rules.ValidVariant(round, variant) {
		return domain.QuestionSet{}, domain.ErrInvalidVariant
	}
	set, err := s.questions.GetQuestions(ctx, round, variant)
	if err != nil {
		return domain.QuestionSet{}, err
	}
	questions := set.Questions
	if round != domain.Round3 && s.rules.QuestionLimit > 0 && len(questions) > s.rules.QuestionLimit {
		questions = questions[:s.rules.QuestionLimit]
	}
	out := domain.QuestionSet{Round: round, Variant: variant, Questions: make([]domain.Question, len(questions))}
	copy(out.Questions, questions)
	return out, nil
}

// SubmitResult persists a finished attempt and reconciles progression. The
// returned participant is authoritative and must replace any local copy.
func (s *ContestService) SubmitResult(ctx context.Context, sub domain.ResultSubmission) (domain.Participant, domain.ResultRecord, error) {
	if !sub.Round.Valid() {
		return domain.Participant{}, domain.ResultRecord{}, domain.ErrInvalidRound
	}
	if sub.TotalQuestions <= 0 || sub.Score < 0 || sub.Score > sub.TotalQuestions {
		return domain.Participant{}, domain.ResultRecord{}, fmt.Errorf("%w: %d/%d", domain.ErrInvalidResult, sub.Score, sub.TotalQuestions)
	}
	participant, err := s.participants.Get(ctx, sub.ParticipantID)
	if err != nil {
		s.countSubmission(sub.Round, err)
		return domain.Participant{}, domain.ResultRecord{}, err
	}
	if !participant.IsAdmin && participant.CurrentRound < sub.Round {
		return domain.Participant{}, domain.ResultRecord{}, domain.ErrRoundLocked
	}

	passed := s.rules.Pass.Passed(sub.Score, sub.TotalQuestions)
	rec := domain.ResultRecord{
		ID:             uuid.NewString(),
		ParticipantID:  participant.ID,
		Round:          sub.Round,
		Variant:        sub.Variant,
		Score:          sub.Score,
		TotalQuestions: sub.TotalQuestions,
		Passed:         passed,
		CompletedAt:    s.now().UTC(),
	}
	var advanceTo domain.Round
	if s.rules.Advancement.Advances(sub.Round, sub.Score, passed) {
		advanceTo = sub.Round + 1
	}
	updated, changed, err := s.results.Record(ctx, rec, advanceTo)
	if err != nil {
		s.countSubmission(sub.Round, err)
		if errors.Is(err, domain.ErrAlreadyAttempted) {
			log.Printf("participant %s already attempted round %d", participant.ID, sub.Round)
		}
		return domain.Participant{}, domain.ResultRecord{}, err
	}
	if changed {
		log.Printf("participant %s unlocked round %d", participant.ID, updated.CurrentRound)
	}
	participant = updated

	s.countSubmission(sub.Round, nil)
	log.Printf("participant %s scored %d/%d in round %d (passed=%v)", participant.ID, rec.Score, rec.TotalQuestions, rec.Round, passed)
	s.publish(ctx, EventResultRecorded, rec)
	return participant, rec, nil
}

// SelectTrack latches the participant's Round 3 track. Re-selecting the same
// track is a no-op success.
func (s *ContestService) SelectTrack(ctx context.Context, participantID string, track domain.Track) (domain.Participant, error) {
	if !track.Valid() {
		return domain.Participant{}, domain.ErrInvalidTrack
	}
	participant, err := s.participants.Get(ctx, participantID)
	if err != nil {
		return domain.Participant{}, err
	}
	if !participant.IsAdmin && participant.CurrentRound < domain.Round3 {
		return domain.Participant{}, domain.ErrRoundLocked
	}
	if participant.Round3Track == track {
		return participant, nil
	}
	updated, err := s.participants.SetTrack(ctx, participantID, track)
	if err != nil {
		return updated, err
	}
	s.publish(ctx, EventTrackSelected, updated)
	return updated, nil
}

// SubmitChallenge stores a Round 3 payload for the participant's track. A
// second payload for the same challenge is not accepted.
func (s *ContestService) SubmitChallenge(ctx context.Context, participantID, challengeID, payload string) (domain.Submission, bool, error) {
	participant, err := s.participants.Get(ctx, participantID)
	if err != nil {
		return domain.Submission{}, false, err
	}
	if !participant.IsAdmin && participant.CurrentRound < domain.Round3 {
		return domain.Submission{}, false, domain.ErrRoundLocked
	}
	if participant.Round3Track == domain.TrackUnset {
		return domain.Submission{}, false, domain.ErrTrackMismatch
	}
	if !participant.IsAdmin {
		access, err := s.access.Get(ctx, domain.Round3)
		if err != nil {
			return domain.Submission{}, false, err
		}
		if !access.Enabled {
			return domain.Submission{}, false, domain.ErrAccessDenied
		}
	}
	if err := s.ensureRoundOpenForSubmission(ctx, participantID); err != nil {
		return domain.Submission{}, false, err
	}
	if err := s.challengeInTrack(ctx, participant.Round3Track, challengeID); err != nil {
		return domain.Submission{}, false, err
	}

	sub := domain.Submission{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		Track:         participant.Round3Track,
		ChallengeID:   challengeID,
		Payload:       payload,
		CreatedAt:     s.now().UTC(),
	}
	accepted, err := s.submissions.Create(ctx, sub)
	if err != nil {
		return domain.Submission{}, false, err
	}
	if !accepted {
		return domain.Submission{}, false, nil
	}
	return sub, true, nil
}

// ScoreSubmission applies an administrator's verdict (+4 or -1) exactly once.
func (s *ContestService) ScoreSubmission(ctx context.Context, adminID, submissionID string, score int) (domain.Submission, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return domain.Submission{}, err
	}
	if score != 4 && score != -1 {
		return domain.Submission{}, domain.ErrInvalidScore
	}
	updated, err := s.submissions.Score(ctx, submissionID, score)
	if err != nil {
		return domain.Submission{}, err
	}
	s.publish(ctx, EventSubmissionScored, updated)
	return updated, nil
}

func (s *ContestService) Submissions(ctx context.Context, filter domain.SubmissionFilter) ([]domain.Submission, error) {
	return s.submissions.List(ctx, filter)
}

func (s *ContestService) requireAdmin(ctx context.Context, adminID string) error {
	admin, err := s.participants.Get(ctx, adminID)
	if err != nil {
		if errors.Is(err, domain.ErrParticipantNotFound) {
			return domain.ErrNotAdmin
		}
		return err
	}
	if !admin.IsAdmin {
		return domain.ErrNotAdmin
	}
	return nil
}

// ensureRoundOpenForSubmission rejects payloads once the Round 3 attempt is recorded.
func (s *ContestService) ensureRoundOpenForSubmission(ctx context.Context, participantID string) error {
	records, err := s.results.ListByParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	for _, rec := range records {
		if rec.Round == domain.Round3 {
			return domain.ErrAlreadyAttempted
		}
	}
	return nil
}

func (s *ContestService) challengeInTrack(ctx context.Context, track domain.Track, challengeID string) error {
	set, err := s.questions.GetQuestions(ctx, domain.Round3, string(track))
	if err != nil {
		return err
	}
	for _, q := range set.Questions {
		if q.ID == challengeID {
			return nil
		}
	}
	for _, other := range []domain.Track{domain.TrackDSA, domain.TrackWeb} {
		if other == track {
			continue
		}
		otherSet, err := s.questions.GetQuestions(ctx, domain.Round3, string(other))
		if err != nil {
			continue
		}
		for _, q := range otherSet.Questions {
			if q.ID == challengeID {
				return domain.ErrTrackMismatch
			}
		}
	}
	return domain.ErrChallengeNotFound
}

func (s *ContestService) countSubmission(round domain.Round, err error) {
	outcome := "recorded"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAlreadyAttempted):
		outcome = "already_attempted"
	case errors.Is(err, domain.ErrParticipantNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	metrics.ResultSubmissions.WithLabelValues(roundLabel(round), outcome).Inc()
}

// publish is fire-and-forget: the state change is already committed.
func (s *ContestService) publish(ctx context.Context, eventType string, payload any) {
	if err := s.events.Publish(ctx, Event{Type: eventType, At: s.now().UTC(), Payload: payload}); err != nil {
		log.Printf("publish %s failed: %v", eventType, err)
	}
}

func roundLabel(r domain.Round) string {
	return strconv.Itoa(int(r))
}
