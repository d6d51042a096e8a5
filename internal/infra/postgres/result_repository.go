package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contest-service/internal/domain"
	"github.com/uptrace/bun"
)

// ResultRepository persists result records. The (participant_id, round_number)
// unique constraint is what makes a second attempt impossible.
type ResultRepository struct {
	db *bun.DB
}

func NewResultRepository(db *bun.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Record inserts the result and raises current_round in one transaction, so
// a failed advance never leaves a record that blocks every retry.
func (r *ResultRepository) Record(ctx context.Context, rec domain.ResultRecord, advanceTo domain.Round) (domain.Participant, bool, error) {
	var (
		participant domain.Participant
		changed     bool
	)
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := resultRow{
			ID:             rec.ID,
			ParticipantID:  rec.ParticipantID,
			Round:          int(rec.Round),
			Variant:        rec.Variant,
			Score:          rec.Score,
			TotalQuestions: rec.TotalQuestions,
			Passed:         rec.Passed,
			CompletedAt:    rec.CompletedAt,
		}
		res, err := tx.NewInsert().
			Model(&row).
			On("CONFLICT (participant_id, round_number) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert result: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return domain.ErrAlreadyAttempted
		}

		if advanceTo.Valid() {
			res, err := tx.NewUpdate().
				Model((*participantRow)(nil)).
				Set("current_round = ?", int(advanceTo)).
				Where("id = ?", rec.ParticipantID).
				Where("current_round < ?", int(advanceTo)).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("advance participant: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			changed = n > 0
		}

		var prow participantRow
		err = tx.NewSelect().Model(&prow).Where("id = ?", rec.ParticipantID).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrParticipantNotFound
		}
		if err != nil {
			return fmt.Errorf("select participant: %w", err)
		}
		participant = prow.toDomain()
		return nil
	})
	if err != nil {
		return domain.Participant{}, false, err
	}
	return participant, changed, nil
}

func (r *ResultRepository) ListByParticipant(ctx context.Context, participantID string) ([]domain.ResultRecord, error) {
	var rows []resultRow
	err := r.db.NewSelect().Model(&rows).
		Where("participant_id = ?", participantID).
		Order("round_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return resultsToDomain(rows), nil
}

func (r *ResultRepository) ListByRound(ctx context.Context, round domain.Round) ([]domain.ResultRecord, error) {
	var rows []resultRow
	err := r.db.NewSelect().Model(&rows).
		Where("round_number = ?", int(round)).
		Order("completed_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return resultsToDomain(rows), nil
}

func resultsToDomain(rows []resultRow) []domain.ResultRecord {
	out := make([]domain.ResultRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out
}
