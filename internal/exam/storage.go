package exam

import (
	"context"

	"github.com/victornm/eexam/internal/domain"
)

// AttemptStore persists attempts. Implementations must keep the one-active-
// attempt-per-user invariant with an atomic uniqueness check at insert time,
// and must make MarkSubmitted a single atomic check-and-set. Mutations are
// targeted per-field updates so two concurrent answer writes to different
// questions never clobber each other.
//
// Lookups return a CodeNotFound error when nothing matches; Insert returns
// CodeAlreadyExists when the user already holds an active attempt.
type AttemptStore interface {
	Insert(ctx context.Context, a *domain.Attempt) error
	// FindActive returns the user's attempt with IsActive true.
	FindActive(ctx context.Context, userID string) (*domain.Attempt, error)
	// FindLatest returns the user's most recent attempt regardless of state,
	// so a late write can be told apart from "never started".
	FindLatest(ctx context.Context, userID string) (*domain.Attempt, error)
	// SetAnswer upserts one answer and overwrites the advisory time cache.
	SetAnswer(ctx context.Context, attemptID, questionID, selectedOption string, timeRemaining int) error
	// RefreshTimeRemaining overwrites the advisory time cache.
	RefreshTimeRemaining(ctx context.Context, attemptID string, seconds int) error
	// Expire retires the attempt: IsActive false, TimeRemaining 0.
	Expire(ctx context.Context, attemptID string) error
	// MarkSubmitted flips HasSubmitted false->true and IsActive true->false.
	// Returns false when the attempt was already submitted.
	MarkSubmitted(ctx context.Context, attemptID string) (bool, error)
}

// ResultStore persists finalized scores, append-only from the core's view.
type ResultStore interface {
	Insert(ctx context.Context, r *domain.Result) error
	FindByUser(ctx context.Context, userID string) (*domain.Result, error)
}

// QuestionBank is the read-only question source. The bank returns questions
// with their correct options; redacting them on the candidate-facing path is
// the lifecycle manager's job.
type QuestionBank interface {
	// ListBySubject returns up to limit questions for a subject; limit <= 0
	// means all.
	ListBySubject(ctx context.Context, subject domain.Subject, limit int) ([]domain.Question, error)
	// AnswerKey maps each known question ID to its correct option.
	AnswerKey(ctx context.Context, questionIDs []string) (map[string]string, error)
}

// UserDirectory is the eligibility collaborator.
type UserDirectory interface {
	// IsEligible reports whether the user may start an exam. Unknown users
	// yield a CodeNotFound error.
	IsEligible(ctx context.Context, userID string) (bool, error)
	IncrementAttemptCount(ctx context.Context, userID string) error
}
