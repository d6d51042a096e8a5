package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contest-service/internal/domain"
	"github.com/uptrace/bun"
)

// SubmissionRepository persists Round 3 challenge submissions.
type SubmissionRepository struct {
	db *bun.DB
}

func NewSubmissionRepository(db *bun.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

func (r *SubmissionRepository) Create(ctx context.Context, s domain.Submission) (bool, error) {
	row := submissionRow{
		ID:            s.ID,
		ParticipantID: s.ParticipantID,
		Track:         string(s.Track),
		ChallengeID:   s.ChallengeID,
		Payload:       s.Payload,
		CreatedAt:     s.CreatedAt,
	}
	res, err := r.db.NewInsert().
		Model(&row).
		On("CONFLICT (participant_id, challenge_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SubmissionRepository) Get(ctx context.Context, id string) (domain.Submission, error) {
	var row submissionRow
	err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("select submission: %w", err)
	}
	return row.toDomain(), nil
}

func (r *SubmissionRepository) Score(ctx context.Context, id string, score int) (domain.Submission, error) {
	res, err := r.db.NewUpdate().
		Model((*submissionRow)(nil)).
		Set("scored = TRUE").
		Set("score = ?", score).
		Where("id = ?", id).
		Where("scored = FALSE").
		Exec(ctx)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("score submission: %w", err)
	}
	sub, err := r.Get(ctx, id)
	if err != nil {
		return domain.Submission{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sub, domain.ErrAlreadyScored
	}
	return sub, nil
}

func (r *SubmissionRepository) List(ctx context.Context, filter domain.SubmissionFilter) ([]domain.Submission, error) {
	var rows []submissionRow
	q := r.db.NewSelect().Model(&rows).Order("created_at ASC")
	if filter.ParticipantID != "" {
		q = q.Where("participant_id = ?", filter.ParticipantID)
	}
	if filter.Track != domain.TrackUnset {
		q = q.Where("track = ?", string(filter.Track))
	}
	if filter.Unscored {
		q = q.Where("scored = FALSE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	out := make([]domain.Submission, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
