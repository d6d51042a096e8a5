package session

import (
	"context"

	"contest-service/internal/domain"
)

// Backend is the request/response boundary to the authoritative store.
// app.ContestService satisfies it in-process.
type Backend interface {
	Participant(ctx context.Context, id string) (domain.Participant, error)
	Results(ctx context.Context, participantID string) ([]domain.ResultRecord, error)
	RoundAccess(ctx context.Context, round domain.Round) (domain.RoundAccess, error)
	Questions(ctx context.Context, round domain.Round, variant string) (domain.QuestionSet, error)
	SubmitResult(ctx context.Context, sub domain.ResultSubmission) (domain.Participant, domain.ResultRecord, error)
	SelectTrack(ctx context.Context, participantID string, track domain.Track) (domain.Participant, error)
	SubmitChallenge(ctx context.Context, participantID, challengeID, payload string) (domain.Submission, bool, error)
}
