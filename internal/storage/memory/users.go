package memory

import (
	"context"
	"sync"

	"github.com/victornm/eexam/internal/errors"
)

type userRecord struct {
	examAllowed  bool
	attemptCount int
}

// UserDirectory is an in-memory stand-in for the eligibility collaborator.
type UserDirectory struct {
	mu    sync.Mutex
	users map[string]*userRecord
}

func NewUserDirectory() *UserDirectory {
	return &UserDirectory{users: make(map[string]*userRecord)}
}

// AddUser registers a user with the given exam-allowed flag.
func (d *UserDirectory) AddUser(userID string, examAllowed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.users[userID] = &userRecord{examAllowed: examAllowed}
}

func (d *UserDirectory) IsEligible(_ context.Context, userID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[userID]
	if !ok {
		return false, errors.New(errors.CodeNotFound,
			errors.WithMessagef("user %s not found", userID))
	}

	return u.examAllowed, nil
}

func (d *UserDirectory) IncrementAttemptCount(_ context.Context, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[userID]
	if !ok {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("user %s not found", userID))
	}

	u.attemptCount++

	return nil
}

// AttemptCount reports the external attempt counter, for tests.
func (d *UserDirectory) AttemptCount(userID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if u, ok := d.users[userID]; ok {
		return u.attemptCount
	}
	return 0
}
