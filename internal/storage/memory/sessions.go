package memory

import (
	"context"
	"sync"

	"github.com/victornm/eexam/internal/domain"
	"github.com/victornm/eexam/internal/errors"
)

// SessionStore maps bearer tokens to verified credentials, standing in for
// the authentication collaborator in dev mode and tests.
type SessionStore struct {
	mu     sync.RWMutex
	tokens map[string]domain.Credential
}

func NewSessionStore() *SessionStore {
	return &SessionStore{tokens: make(map[string]domain.Credential)}
}

func (s *SessionStore) AddToken(token string, cred domain.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = cred
}

func (s *SessionStore) VerifyToken(_ context.Context, token string) (domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.tokens[token]
	if !ok {
		return domain.Credential{}, errors.New(errors.CodeUnauthenticated,
			errors.WithMessagef("unknown token"))
	}

	return cred, nil
}
