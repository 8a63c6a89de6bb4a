package rediscache_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/eexam/internal/domain"
	"github.com/victornm/eexam/internal/storage/memory"
	"github.com/victornm/eexam/internal/storage/rediscache"
)

func TestBank_ListBySubject(t *testing.T) {
	t.Parallel()

	b, next := makeBank(t)
	ctx := context.Background()

	first, err := b.ListBySubject(ctx, domain.SubjectMath, 0)
	require.NoError(t, err)
	require.Len(t, first, 5)
	require.Equal(t, 1, next.listCalls())

	// Second read is served from the cache.
	second, err := b.ListBySubject(ctx, domain.SubjectMath, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, first, second)
	assert.Equal(t, 1, next.listCalls())

	// A different subject is its own cache entry.
	_, err = b.ListBySubject(ctx, domain.SubjectPhysics, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, next.listCalls())
}

func TestBank_ListBySubject_Limit(t *testing.T) {
	t.Parallel()

	b, _ := makeBank(t)

	qs, err := b.ListBySubject(context.Background(), domain.SubjectMath, 2)
	require.NoError(t, err)
	assert.Len(t, qs, 2)
}

func TestBank_AnswerKey(t *testing.T) {
	t.Parallel()

	b, next := makeBank(t)
	ctx := context.Background()

	ids := []string{"math-000", "math-001"}

	// Cold cache: goes to the backing bank and backfills the hash.
	key, err := b.AnswerKey(ctx, ids)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"math-000": "option C", "math-001": "option C"}, key)
	require.Equal(t, 1, next.keyCalls())

	key, err = b.AnswerKey(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"math-000": "option C", "math-001": "option C"}, key)
	assert.Equal(t, 1, next.keyCalls(), "second lookup should be served from the hash")
}

func TestBank_AnswerKey_FilledBySubjectListing(t *testing.T) {
	t.Parallel()

	b, next := makeBank(t)
	ctx := context.Background()

	_, err := b.ListBySubject(ctx, domain.SubjectChemistry, 0)
	require.NoError(t, err)

	key, err := b.AnswerKey(ctx, []string{"chemistry-000"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"chemistry-000": "option C"}, key)
	assert.Equal(t, 0, next.keyCalls(), "listing should have filled the answer hash")
}

func makeBank(t *testing.T) (*rediscache.Bank, *countingBank) {
	t.Helper()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	require.NoError(t, rc.Ping(context.Background()).Err(), "should be able to ping redis")

	next := &countingBank{inner: memory.NewBank(bankQuestions(5))}

	b := rediscache.NewBank(rediscache.Config{
		Redis:  rc,
		Next:   next,
		Prefix: "eexam:bank",
		TTL:    10 * time.Minute,
	})

	return b, next
}

// countingBank counts pass-through calls to the backing bank.
type countingBank struct {
	mu    sync.Mutex
	lists int
	keys  int
	inner *memory.Bank
}

func (b *countingBank) ListBySubject(ctx context.Context, subject domain.Subject, limit int) ([]domain.Question, error) {
	b.mu.Lock()
	b.lists++
	b.mu.Unlock()
	return b.inner.ListBySubject(ctx, subject, limit)
}

func (b *countingBank) AnswerKey(ctx context.Context, questionIDs []string) (map[string]string, error) {
	b.mu.Lock()
	b.keys++
	b.mu.Unlock()
	return b.inner.AnswerKey(ctx, questionIDs)
}

func (b *countingBank) listCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lists
}

func (b *countingBank) keyCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.keys
}

func bankQuestions(n int) []domain.Question {
	var qs []domain.Question
	for _, subject := range domain.Subjects {
		for i := 0; i < n; i++ {
			qs = append(qs, domain.Question{
				QuestionID:    fmt.Sprintf("%s-%03d", subject, i),
				Text:          fmt.Sprintf("%s question %d", subject, i),
				Options:       []string{"option A", "option B", "option C", "option D"},
				CorrectOption: "option C",
				Subject:       subject,
			})
		}
	}
	return qs
}
