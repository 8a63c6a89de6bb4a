package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/victornm/eexam/internal/domain"
	"github.com/victornm/eexam/internal/errors"
)

type ResultStore struct {
	mu      sync.Mutex
	results []domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) Insert(_ context.Context, r *domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append(s.results, cloneResult(r))

	return nil
}

func (s *ResultStore) FindByUser(_ context.Context, userID string) (*domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Latest first, matching the secondary-index read in Postgres.
	for i := len(s.results) - 1; i >= 0; i-- {
		if s.results[i].UserID == userID {
			r := cloneResult(&s.results[i])
			return &r, nil
		}
	}

	return nil, errors.New(errors.CodeNotFound,
		errors.WithMessagef("no result for user %s", userID))
}

// Len reports the number of stored results, for tests.
func (s *ResultStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.results)
}

func cloneResult(r *domain.Result) domain.Result {
	c := *r
	c.SubjectScores = maps.Clone(r.SubjectScores)
	return c
}
