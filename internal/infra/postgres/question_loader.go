package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contest-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionLoader loads question set JSONB from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestions(ctx context.Context, round domain.Round, variant string) (domain.QuestionSet, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_sets WHERE round_number=$1 AND variant=$2`, int(round), variant).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuestionSet{}, domain.ErrQuestionsNotFound
	}
	if err != nil {
		return domain.QuestionSet{}, fmt.Errorf("load questions: %w", err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return domain.QuestionSet{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	return domain.QuestionSet{Round: round, Variant: variant, Questions: questions}, nil
}

// SaveQuestions replaces the stored set for the round variant.
func (l *QuestionLoader) SaveQuestions(ctx context.Context, set domain.QuestionSet) error {
	data, err := json.Marshal(set.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO question_sets (round_number, variant, data, updated_at)
		VALUES ($1, $2, $3::jsonb, now())
		ON CONFLICT (round_number, variant) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		int(set.Round), set.Variant, string(data))
	if err != nil {
		return fmt.Errorf("save questions: %w", err)
	}
	return nil
}
