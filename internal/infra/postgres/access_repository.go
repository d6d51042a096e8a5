package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"contest-service/internal/domain"
	"github.com/uptrace/bun"
)

// AccessRepository persists the per-round gate.
type AccessRepository struct {
	db *bun.DB
}

func NewAccessRepository(db *bun.DB) *AccessRepository {
	return &AccessRepository{db: db}
}

func (r *AccessRepository) Get(ctx context.Context, round domain.Round) (domain.RoundAccess, error) {
	var row roundAccessRow
	err := r.db.NewSelect().Model(&row).Where("round_number = ?", int(round)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RoundAccess{Round: round}, nil
	}
	if err != nil {
		return domain.RoundAccess{}, fmt.Errorf("select round access: %w", err)
	}
	return domain.RoundAccess{Round: round, Enabled: row.Enabled, EnabledAt: row.EnabledAt}, nil
}

func (r *AccessRepository) Set(ctx context.Context, access domain.RoundAccess) (domain.RoundAccess, error) {
	row := roundAccessRow{Round: int(access.Round), Enabled: access.Enabled, EnabledAt: access.EnabledAt}
	_, err := r.db.NewInsert().
		Model(&row).
		On("CONFLICT (round_number) DO UPDATE").
		Set("enabled = EXCLUDED.enabled").
		Set("enabled_at = EXCLUDED.enabled_at").
		Exec(ctx)
	if err != nil {
		return domain.RoundAccess{}, fmt.Errorf("upsert round access: %w", err)
	}
	return access, nil
}
