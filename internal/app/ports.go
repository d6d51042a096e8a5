package app

import (
	"context"
	"time"

	"contest-service/internal/domain"
)

// ParticipantRepository stores identity and progression.
type ParticipantRepository interface {
	Create(ctx context.Context, p domain.Participant) error
	Get(ctx context.Context, id string) (domain.Participant, error)
	List(ctx context.Context) ([]domain.Participant, error)
	// AdvanceRound raises current_round to `to` when it is lower and reports whether it changed.
	AdvanceRound(ctx context.Context, id string, to domain.Round) (domain.Participant, bool, error)
	// SetTrack latches the Round 3 track when it is unset. Setting the same track
	// again succeeds without change; a different track yields ErrAlreadySelected.
	SetTrack(ctx context.Context, id string, track domain.Track) (domain.Participant, error)
}

// AccessRepository stores the per-round gate. Rounds never written read as closed.
type AccessRepository interface {
	Get(ctx context.Context, round domain.Round) (domain.RoundAccess, error)
	Set(ctx context.Context, access domain.RoundAccess) (domain.RoundAccess, error)
}

// ResultRepository enforces at most one record per (participant, round).
type ResultRepository interface {
	// Record inserts rec and, when advanceTo is a valid round, raises the
	// participant's current_round to it in the same write. On conflict it
	// returns ErrAlreadyAttempted and changes nothing; any other failure also
	// leaves neither the record nor the progression behind.
	Record(ctx context.Context, rec domain.ResultRecord, advanceTo domain.Round) (domain.Participant, bool, error)
	ListByParticipant(ctx context.Context, participantID string) ([]domain.ResultRecord, error)
	ListByRound(ctx context.Context, round domain.Round) ([]domain.ResultRecord, error)
}

// SubmissionRepository stores Round 3 challenge payloads.
type SubmissionRepository interface {
	// Create reports false when the participant already submitted the challenge.
	Create(ctx context.Context, s domain.Submission) (bool, error)
	Get(ctx context.Context, id string) (domain.Submission, error)
	// Score sets the score exactly once; a scored submission yields ErrAlreadyScored.
	Score(ctx context.Context, id string, score int) (domain.Submission, error)
	List(ctx context.Context, filter domain.SubmissionFilter) ([]domain.Submission, error)
}

// QuestionRepository loads question sets (from cache/backing store).
type QuestionRepository interface {
	GetQuestions(ctx context.Context, round domain.Round, variant string) (domain.QuestionSet, error)
}

// Event is a domain notification emitted after a confirmed state change.
type Event struct {
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

const (
	EventRoundAccessChanged   = "round_access.changed"
	EventResultRecorded       = "result.recorded"
	EventParticipantsPromoted = "participants.promoted"
	EventTrackSelected        = "track.selected"
	EventSubmissionScored     = "submission.scored"
)

// EventPublisher forwards domain events to interested services.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, Event) error { return nil }
