package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/eexam/internal/domain"
)

// Bank reads the question bank tables. The bank is owned by the admin
// tooling; this side only reads.
type Bank struct {
	db *pgxpool.Pool
}

func NewBank(db *pgxpool.Pool) *Bank {
	return &Bank{db: db}
}

func (b *Bank) ListBySubject(ctx context.Context, subject domain.Subject, limit int) ([]domain.Question, error) {
	stmt := `
SELECT question_id, question_text, options, correct_option, subject
FROM questions
WHERE subject = $1`
	args := []any{subject}

	if limit > 0 {
		stmt += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := b.db.Query(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Question, error) {
		var (
			q       domain.Question
			options []byte
		)
		if err := r.Scan(&q.QuestionID, &q.Text, &options, &q.CorrectOption, &q.Subject); err != nil {
			return domain.Question{}, err
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return domain.Question{}, fmt.Errorf("unmarshal options: %w", err)
		}
		return q, nil
	})
}

func (b *Bank) AnswerKey(ctx context.Context, questionIDs []string) (map[string]string, error) {
	const stmt = `
SELECT question_id, correct_option
FROM questions
WHERE question_id = ANY($1);`

	rows, err := b.db.Query(ctx, stmt, questionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	key := make(map[string]string, len(questionIDs))
	for rows.Next() {
		var id, correct string
		if err := rows.Scan(&id, &correct); err != nil {
			return nil, err
		}
		key[id] = correct
	}

	return key, rows.Err()
}
