package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/eexam/internal/domain"
	"github.com/victornm/eexam/internal/errors"
	"github.com/victornm/eexam/internal/storage/memory"
)

func TestAttemptStore_UniqueActivePerUser(t *testing.T) {
	t.Parallel()

	s := memory.NewAttemptStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, attempt("a1", "u1")))

	err := s.Insert(ctx, attempt("a2", "u1"))
	require.True(t, errors.Is(err, errors.CodeAlreadyExists), "err = %v", err)

	// Retiring the active attempt frees the slot.
	require.NoError(t, s.Expire(ctx, "a1"))
	require.NoError(t, s.Insert(ctx, attempt("a2", "u1")))

	latest, err := s.FindLatest(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "a2", latest.AttemptID)
}

func TestAttemptStore_MarkSubmittedIsCheckAndSet(t *testing.T) {
	t.Parallel()

	s := memory.NewAttemptStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, attempt("a1", "u1")))

	ok, err := s.MarkSubmitted(ctx, "a1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.MarkSubmitted(ctx, "a1")
	require.NoError(t, err)
	require.False(t, ok, "second transition must lose")

	a, err := s.FindLatest(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, a.HasSubmitted)
	assert.False(t, a.IsActive)
}

func TestAttemptStore_SetAnswerIsTargeted(t *testing.T) {
	t.Parallel()

	s := memory.NewAttemptStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, attempt("a1", "u1")))

	require.NoError(t, s.SetAnswer(ctx, "a1", "q1", "option A", 3500))
	require.NoError(t, s.SetAnswer(ctx, "a1", "q2", "option B", 3400))
	require.NoError(t, s.SetAnswer(ctx, "a1", "q1", "option C", 3300))

	a, err := s.FindActive(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"q1": "option C", "q2": "option B"}, a.Answers)
	assert.Equal(t, 3300, a.TimeRemaining)
}

func TestAttemptStore_ReadsAreCopies(t *testing.T) {
	t.Parallel()

	s := memory.NewAttemptStore()
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, attempt("a1", "u1")))

	a, err := s.FindActive(ctx, "u1")
	require.NoError(t, err)
	a.Answers["q1"] = "mutated outside the store"
	a.IsActive = false

	fresh, err := s.FindActive(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, fresh.Answers)
}

func attempt(id, userID string) *domain.Attempt {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return &domain.Attempt{
		AttemptID: id,
		UserID:    userID,
		Questions: []domain.AttemptQuestion{
			{QuestionID: "q1", Text: "q1", Options: []string{"option A", "option B", "option C", "option D"}, Subject: domain.SubjectMath},
			{QuestionID: "q2", Text: "q2", Options: []string{"option A", "option B", "option C", "option D"}, Subject: domain.SubjectPhysics},
		},
		Answers:       map[string]string{},
		StartTime:     now,
		EndTime:       now.Add(time.Hour),
		TimeRemaining: 3600,
		IsActive:      true,
	}
}
