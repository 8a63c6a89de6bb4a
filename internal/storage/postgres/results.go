package postgres

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/eexam/internal/domain"
	"github.com/victornm/eexam/internal/errors"
)

type ResultStore struct {
	db *pgxpool.Pool
}

func NewResultStore(db *pgxpool.Pool) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) Insert(ctx context.Context, r *domain.Result) error {
	subjectScores, err := json.Marshal(r.SubjectScores)
	if err != nil {
		return fmt.Errorf("marshal subject scores: %w", err)
	}

	const stmt = `
INSERT INTO results (result_id, user_id, total_questions, correct_answers, score, subject_scores, create_time)
VALUES ($1, $2, $3, $4, $5, $6, $7);`

	_, err = s.db.Exec(ctx, stmt,
		r.ResultID, r.UserID, r.TotalQuestions, r.CorrectAnswers, r.Score, subjectScores, r.CreateTime)

	return err
}

func (s *ResultStore) FindByUser(ctx context.Context, userID string) (*domain.Result, error) {
	const stmt = `
SELECT result_id, user_id, total_questions, correct_answers, score, subject_scores, create_time
FROM results
WHERE user_id = $1
ORDER BY create_time DESC
LIMIT 1;`

	var (
		r             domain.Result
		subjectScores []byte
	)

	err := s.db.QueryRow(ctx, stmt, userID).Scan(
		&r.ResultID, &r.UserID, &r.TotalQuestions, &r.CorrectAnswers, &r.Score, &subjectScores, &r.CreateTime)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no result for user %s", userID))
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(subjectScores, &r.SubjectScores); err != nil {
		return nil, fmt.Errorf("unmarshal subject scores: %w", err)
	}

	return &r, nil
}
