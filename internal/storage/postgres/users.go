package postgres

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/victornm/eexam/internal/domain"
	"github.com/victornm/eexam/internal/errors"
)

type UserDirectory struct {
	db *pgxpool.Pool
}

func NewUserDirectory(db *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) IsEligible(ctx context.Context, userID string) (bool, error) {
	const stmt = `SELECT exam_allowed FROM users WHERE user_id = $1;`

	var allowed bool
	err := d.db.QueryRow(ctx, stmt, userID).Scan(&allowed)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return false, errors.New(errors.CodeNotFound,
			errors.WithMessagef("user %s not found", userID))
	}
	if err != nil {
		return false, err
	}

	return allowed, nil
}

func (d *UserDirectory) IncrementAttemptCount(ctx context.Context, userID string) error {
	const stmt = `UPDATE users SET attempt_count = attempt_count + 1 WHERE user_id = $1;`

	tag, err := d.db.Exec(ctx, stmt, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("user %s not found", userID))
	}

	return nil
}

// SessionStore resolves bearer tokens issued by the authentication
// collaborator into verified credentials.
type SessionStore struct {
	db *pgxpool.Pool
}

func NewSessionStore(db *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) VerifyToken(ctx context.Context, token string) (domain.Credential, error) {
	const stmt = `SELECT user_id, role FROM sessions WHERE token = $1;`

	var cred domain.Credential
	err := s.db.QueryRow(ctx, stmt, token).Scan(&cred.UserID, &cred.Role)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Credential{}, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("unknown token"))
	}
	if err != nil {
		return domain.Credential{}, err
	}

	return cred, nil
}
