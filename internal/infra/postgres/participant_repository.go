package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contest-service/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// ParticipantRepository persists participants with bun.
type ParticipantRepository struct {
	db *bun.DB
}

func NewParticipantRepository(db *bun.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) Create(ctx context.Context, p domain.Participant) error {
	row := participantFromDomain(p)
	if _, err := r.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateParticipant
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (r *ParticipantRepository) Get(ctx context.Context, id string) (domain.Participant, error) {
	var row participantRow
	err := r.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("select participant: %w", err)
	}
	return row.toDomain(), nil
}

func (r *ParticipantRepository) List(ctx context.Context) ([]domain.Participant, error) {
	var rows []participantRow
	if err := r.db.NewSelect().Model(&rows).Order("registered_at ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	out := make([]domain.Participant, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// AdvanceRound only ever raises current_round, so concurrent promotions and
// result submissions cannot move a participant backwards.
func (r *ParticipantRepository) AdvanceRound(ctx context.Context, id string, to domain.Round) (domain.Participant, bool, error) {
	res, err := r.db.NewUpdate().
		Model((*participantRow)(nil)).
		Set("current_round = ?", int(to)).
		Where("id = ?", id).
		Where("current_round < ?", int(to)).
		Exec(ctx)
	if err != nil {
		return domain.Participant{}, false, fmt.Errorf("advance participant: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Participant{}, false, err
	}
	p, err := r.Get(ctx, id)
	if err != nil {
		return domain.Participant{}, false, err
	}
	return p, n > 0, nil
}

func (r *ParticipantRepository) SetTrack(ctx context.Context, id string, track domain.Track) (domain.Participant, error) {
	res, err := r.db.NewUpdate().
		Model((*participantRow)(nil)).
		Set("round3_track = ?", string(track)).
		Where("id = ?", id).
		Where("round3_track IS NULL").
		Exec(ctx)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("set track: %w", err)
	}
	p, err := r.Get(ctx, id)
	if err != nil {
		return domain.Participant{}, err
	}
	if n, _ := res.RowsAffected(); n > 0 || p.Round3Track == track {
		return p, nil
	}
	return p, domain.ErrAlreadySelected
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}
