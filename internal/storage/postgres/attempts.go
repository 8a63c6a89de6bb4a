package postgres

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/eexam/internal/domain"
	"github.com/victornm/eexam/internal/errors"
)

const codeUniqueViolation = "23505"

type AttemptStore struct {
	db *pgxpool.Pool
}

func NewAttemptStore(db *pgxpool.Pool) *AttemptStore {
	return &AttemptStore{db: db}
}

// attemptQuestionRow is the jsonb shape of a frozen question snapshot.
type attemptQuestionRow struct {
	QuestionID string   `json:"question_id"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	Subject    string   `json:"subject"`
}

func (s *AttemptStore) Insert(ctx context.Context, a *domain.Attempt) error {
	questions, err := marshalQuestions(a.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	answers, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	const stmt = `
INSERT INTO attempts (attempt_id, user_id, questions, answers, start_time, end_time, time_remaining, has_submitted, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`

	_, err = s.db.Exec(ctx, stmt,
		a.AttemptID, a.UserID, questions, answers,
		a.StartTime, a.EndTime, a.TimeRemaining, a.HasSubmitted, a.IsActive)

	// ux_attempts_active: at most one active attempt per user.
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("user %s already has an active attempt", a.UserID),
			errors.WithCause(err))
	}

	return err
}

func (s *AttemptStore) FindActive(ctx context.Context, userID string) (*domain.Attempt, error) {
	const stmt = `
SELECT attempt_id, user_id, questions, answers, start_time, end_time, time_remaining, has_submitted, is_active
FROM attempts
WHERE user_id = $1 AND is_active;`

	return s.findOne(ctx, stmt, userID)
}

func (s *AttemptStore) FindLatest(ctx context.Context, userID string) (*domain.Attempt, error) {
	const stmt = `
SELECT attempt_id, user_id, questions, answers, start_time, end_time, time_remaining, has_submitted, is_active
FROM attempts
WHERE user_id = $1
ORDER BY start_time DESC
LIMIT 1;`

	return s.findOne(ctx, stmt, userID)
}

func (s *AttemptStore) findOne(ctx context.Context, stmt, userID string) (*domain.Attempt, error) {
	var (
		a         domain.Attempt
		questions []byte
		answers   []byte
	)

	err := s.db.QueryRow(ctx, stmt, userID).Scan(
		&a.AttemptID, &a.UserID, &questions, &answers,
		&a.StartTime, &a.EndTime, &a.TimeRemaining, &a.HasSubmitted, &a.IsActive)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no active attempt for user %s", userID))
	}
	if err != nil {
		return nil, err
	}

	if a.Questions, err = unmarshalQuestions(questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	if err := json.Unmarshal(answers, &a.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	if a.Answers == nil {
		a.Answers = make(map[string]string)
	}

	return &a, nil
}

// SetAnswer is a targeted jsonb write, not a read-modify-write of the whole
// document, so two concurrent writes to different questions both land.
func (s *AttemptStore) SetAnswer(ctx context.Context, attemptID, questionID, selectedOption string, timeRemaining int) error {
	const stmt = `
UPDATE attempts
SET answers = jsonb_set(answers, ARRAY[$2], to_jsonb($3::text)), time_remaining = $4
WHERE attempt_id = $1;`

	return s.exec(ctx, stmt, attemptID, questionID, selectedOption, timeRemaining)
}

func (s *AttemptStore) RefreshTimeRemaining(ctx context.Context, attemptID string, seconds int) error {
	const stmt = `UPDATE attempts SET time_remaining = $2 WHERE attempt_id = $1;`

	return s.exec(ctx, stmt, attemptID, seconds)
}

func (s *AttemptStore) Expire(ctx context.Context, attemptID string) error {
	const stmt = `UPDATE attempts SET is_active = false, time_remaining = 0 WHERE attempt_id = $1;`

	return s.exec(ctx, stmt, attemptID)
}

// MarkSubmitted is the atomic check-and-set for the submit transition: of
// two racing submits exactly one sees a row updated.
func (s *AttemptStore) MarkSubmitted(ctx context.Context, attemptID string) (bool, error) {
	const stmt = `
UPDATE attempts
SET has_submitted = true, is_active = false
WHERE attempt_id = $1 AND NOT has_submitted;`

	tag, err := s.db.Exec(ctx, stmt, attemptID)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (s *AttemptStore) exec(ctx context.Context, stmt string, args ...any) error {
	tag, err := s.db.Exec(ctx, stmt, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("attempt not found"))
	}

	return nil
}

func marshalQuestions(questions []domain.AttemptQuestion) ([]byte, error) {
	rows := make([]attemptQuestionRow, 0, len(questions))
	for _, q := range questions {
		rows = append(rows, attemptQuestionRow{
			QuestionID: q.QuestionID,
			Text:       q.Text,
			Options:    q.Options,
			Subject:    string(q.Subject),
		})
	}

	return json.Marshal(rows)
}

func unmarshalQuestions(b []byte) ([]domain.AttemptQuestion, error) {
	var rows []attemptQuestionRow
	if err := json.Unmarshal(b, &rows); err != nil {
		return nil, err
	}

	questions := make([]domain.AttemptQuestion, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, domain.AttemptQuestion{
			QuestionID: r.QuestionID,
			Text:       r.Text,
			Options:    r.Options,
			Subject:    domain.Subject(r.Subject),
		})
	}

	return questions, nil
}
