package postgres

import (
	"time"

	"contest-service/internal/domain"
	"github.com/uptrace/bun"
)

type participantRow struct {
	bun.BaseModel `bun:"table:participants"`

	ID           string    `bun:"id,pk"`
	Username     string    `bun:"username,notnull"`
	EnrollmentNo string    `bun:"enrollment_no,nullzero"`
	IsAdmin      bool      `bun:"is_admin,notnull"`
	CurrentRound int       `bun:"current_round,notnull"`
	Round3Track  string    `bun:"round3_track,nullzero"`
	RegisteredAt time.Time `bun:"registered_at,notnull"`
}

func participantFromDomain(p domain.Participant) participantRow {
	return participantRow{
		ID:           p.ID,
		Username:     p.Username,
		EnrollmentNo: p.EnrollmentNo,
		IsAdmin:      p.IsAdmin,
		CurrentRound: int(p.CurrentRound),
		Round3Track:  string(p.Round3Track),
		RegisteredAt: p.RegisteredAt,
	}
}

func (r participantRow) toDomain() domain.Participant {
	return domain.Participant{
		ID:           r.ID,
		Username:     r.Username,
		EnrollmentNo: r.EnrollmentNo,
		IsAdmin:      r.IsAdmin,
		CurrentRound: domain.Round(r.CurrentRound),
		Round3Track:  domain.Track(r.Round3Track),
		RegisteredAt: r.RegisteredAt,
	}
}

type roundAccessRow struct {
	bun.BaseModel `bun:"table:round_access"`

	Round     int        `bun:"round_number,pk"`
	Enabled   bool       `bun:"enabled,notnull"`
	EnabledAt *time.Time `bun:"enabled_at"`
}

type resultRow struct {
	bun.BaseModel `bun:"table:results"`

	ID             string    `bun:"id,pk"`
	ParticipantID  string    `bun:"participant_id,notnull"`
	Round          int       `bun:"round_number,notnull"`
	Variant        string    `bun:"variant,notnull"`
	Score          int       `bun:"score,notnull"`
	TotalQuestions int       `bun:"total_questions,notnull"`
	Passed         bool      `bun:"passed,notnull"`
	CompletedAt    time.Time `bun:"completed_at,notnull"`
}

func (r resultRow) toDomain() domain.ResultRecord {
	return domain.ResultRecord{
		ID:             r.ID,
		ParticipantID:  r.ParticipantID,
		Round:          domain.Round(r.Round),
		Variant:        r.Variant,
		Score:          r.Score,
		TotalQuestions: r.TotalQuestions,
		Passed:         r.Passed,
		CompletedAt:    r.CompletedAt,
	}
}

type submissionRow struct {
	bun.BaseModel `bun:"table:submissions"`

	ID            string    `bun:"id,pk"`
	ParticipantID string    `bun:"participant_id,notnull"`
	Track         string    `bun:"track,notnull"`
	ChallengeID   string    `bun:"challenge_id,notnull"`
	Payload       string    `bun:"payload,notnull"`
	Scored        bool      `bun:"scored,notnull"`
	Score         *int      `bun:"score"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}

func (r submissionRow) toDomain() domain.Submission {
	return domain.Submission{
		ID:            r.ID,
		ParticipantID: r.ParticipantID,
		Track:         domain.Track(r.Track),
		ChallengeID:   r.ChallengeID,
		Payload:       r.Payload,
		Scored:        r.Scored,
		Score:         r.Score,
		CreatedAt:     r.CreatedAt,
	}
}
