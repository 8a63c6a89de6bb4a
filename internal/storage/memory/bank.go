package memory

import (
	"context"
	"sync"

	"github.com/victornm/eexam/internal/domain"
)

// Bank is a fixed in-memory question bank. Read-only after construction
// apart from Add, which exists for test and dev seeding.
type Bank struct {
	mu        sync.RWMutex
	bySubject map[domain.Subject][]domain.Question
	key       map[string]string
}

func NewBank(questions []domain.Question) *Bank {
	b := &Bank{
		bySubject: make(map[domain.Subject][]domain.Question),
		key:       make(map[string]string),
	}
	b.Add(questions...)
	return b
}

func (b *Bank) Add(questions ...domain.Question) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, q := range questions {
		b.bySubject[q.Subject] = append(b.bySubject[q.Subject], q)
		b.key[q.QuestionID] = q.CorrectOption
	}
}

func (b *Bank) ListBySubject(_ context.Context, subject domain.Subject, limit int) ([]domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	qs := b.bySubject[subject]
	if limit > 0 && limit < len(qs) {
		qs = qs[:limit]
	}

	out := make([]domain.Question, len(qs))
	copy(out, qs)

	return out, nil
}

func (b *Bank) AnswerKey(_ context.Context, questionIDs []string) (map[string]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	key := make(map[string]string, len(questionIDs))
	for _, id := range questionIDs {
		if opt, ok := b.key[id]; ok {
			key[id] = opt
		}
	}

	return key, nil
}
