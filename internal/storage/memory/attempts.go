// Package memory provides in-memory implementations of the exam storage
// interfaces. They back the unit tests and the standalone dev mode, and
// mirror the atomicity the Postgres implementations get from the database:
// the unique-active check happens under the store lock, and MarkSubmitted
// is a check-and-set.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/victornm/eexam/internal/domain"
	"github.com/victornm/eexam/internal/errors"
)

type AttemptStore struct {
	mu       sync.Mutex
	attempts map[string]*domain.Attempt
	// byUser keeps attempt IDs per user in insertion order.
	byUser map[string][]string
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		attempts: make(map[string]*domain.Attempt),
		byUser:   make(map[string][]string),
	}
}

func (s *AttemptStore) Insert(_ context.Context, a *domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byUser[a.UserID] {
		if s.attempts[id].IsActive {
			return errors.New(errors.CodeAlreadyExists,
				errors.WithMessagef("user %s already has an active attempt", a.UserID))
		}
	}

	s.attempts[a.AttemptID] = cloneAttempt(a)
	s.byUser[a.UserID] = append(s.byUser[a.UserID], a.AttemptID)

	return nil
}

func (s *AttemptStore) FindActive(_ context.Context, userID string) (*domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byUser[userID] {
		if a := s.attempts[id]; a.IsActive {
			return cloneAttempt(a), nil
		}
	}

	return nil, errors.New(errors.CodeNotFound,
		errors.WithMessagef("no active attempt for user %s", userID))
}

func (s *AttemptStore) FindLatest(_ context.Context, userID string) (*domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byUser[userID]
	if len(ids) == 0 {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no active attempt for user %s", userID))
	}

	return cloneAttempt(s.attempts[ids[len(ids)-1]]), nil
}

func (s *AttemptStore) SetAnswer(_ context.Context, attemptID, questionID, selectedOption string, timeRemaining int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.get(attemptID)
	if err != nil {
		return err
	}

	a.Answers[questionID] = selectedOption
	a.TimeRemaining = timeRemaining

	return nil
}

func (s *AttemptStore) RefreshTimeRemaining(_ context.Context, attemptID string, seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.get(attemptID)
	if err != nil {
		return err
	}

	a.TimeRemaining = seconds

	return nil
}

func (s *AttemptStore) Expire(_ context.Context, attemptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.get(attemptID)
	if err != nil {
		return err
	}

	a.IsActive = false
	a.TimeRemaining = 0

	return nil
}

func (s *AttemptStore) MarkSubmitted(_ context.Context, attemptID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.get(attemptID)
	if err != nil {
		return false, err
	}
	if a.HasSubmitted {
		return false, nil
	}

	a.HasSubmitted = true
	a.IsActive = false

	return true, nil
}

// get returns the stored attempt itself; callers hold s.mu.
func (s *AttemptStore) get(attemptID string) (*domain.Attempt, error) {
	a, ok := s.attempts[attemptID]
	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("attempt %s not found", attemptID))
	}
	return a, nil
}

// cloneAttempt deep-copies the mutable parts so callers cannot reach the
// stored state behind the lock.
func cloneAttempt(a *domain.Attempt) *domain.Attempt {
	c := *a
	c.Questions = slices.Clone(a.Questions)
	c.Answers = maps.Clone(a.Answers)
	if c.Answers == nil {
		c.Answers = make(map[string]string)
	}
	return &c
}
