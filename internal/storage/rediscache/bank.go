// Package rediscache puts a read-through Redis cache in front of a question
// bank. Subject listings are cached as JSON blobs with a jittered TTL;
// correct options are additionally kept in a hash so grading a submission
// costs one HMGET instead of a bank scan.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/victornm/eexam/internal/domain"
	"github.com/victornm/eexam/internal/exam"
)

type Config struct {
	Redis  redis.UniversalClient
	Next   exam.QuestionBank
	Prefix string
	TTL    time.Duration
}

type Bank struct {
	redis  redis.UniversalClient
	next   exam.QuestionBank
	prefix string
	ttl    time.Duration
	sf     singleflight.Group
}

func NewBank(c Config) *Bank {
	return &Bank{
		redis:  c.Redis,
		next:   c.Next,
		prefix: c.Prefix,
		ttl:    c.TTL,
	}
}

type questionRow struct {
	QuestionID    string   `json:"question_id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correct_option"`
	Subject       string   `json:"subject"`
}

func (b *Bank) ListBySubject(ctx context.Context, subject domain.Subject, limit int) ([]domain.Question, error) {
	questions, err := b.cachedSubject(ctx, subject)
	if err == nil {
		return truncate(questions, limit), nil
	}
	if err != redis.Nil {
		return nil, fmt.Errorf("read subject cache: %w", err)
	}

	v, err, _ := b.sf.Do(string(subject), func() (any, error) {
		// Re-check in case another caller filled the cache meanwhile.
		if questions, err := b.cachedSubject(ctx, subject); err == nil {
			return questions, nil
		}

		questions, err := b.next.ListBySubject(ctx, subject, 0)
		if err != nil {
			return nil, err
		}

		b.fill(ctx, subject, questions)

		return questions, nil
	})
	if err != nil {
		return nil, err
	}

	return truncate(v.([]domain.Question), limit), nil
}

func (b *Bank) AnswerKey(ctx context.Context, questionIDs []string) (map[string]string, error) {
	vals, err := b.redis.HMGet(ctx, b.answersKey(), questionIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("read answer cache: %w", err)
	}

	key := make(map[string]string, len(questionIDs))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			key[questionIDs[i]] = s
		}
	}
	if len(key) == len(questionIDs) {
		return key, nil
	}

	// Cache miss or partial hit: the hash may have expired. Go to the bank
	// and backfill.
	key, err = b.next.AnswerKey(ctx, questionIDs)
	if err != nil {
		return nil, err
	}
	if len(key) > 0 {
		fields := make(map[string]string, len(key))
		for id, opt := range key {
			fields[id] = opt
		}
		pipe := b.redis.Pipeline()
		pipe.HSet(ctx, b.answersKey(), fields)
		if b.ttl > 0 {
			pipe.Expire(ctx, b.answersKey(), b.ttlWithJitter())
		}
		_, _ = pipe.Exec(ctx)
	}

	return key, nil
}

func (b *Bank) cachedSubject(ctx context.Context, subject domain.Subject) ([]domain.Question, error) {
	blob, err := b.redis.Get(ctx, b.subjectKey(subject)).Bytes()
	if err != nil {
		return nil, err
	}

	var rows []questionRow
	if err := json.Unmarshal(blob, &rows); err != nil {
		return nil, err
	}

	questions := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, domain.Question{
			QuestionID:    r.QuestionID,
			Text:          r.Text,
			Options:       r.Options,
			CorrectOption: r.CorrectOption,
			Subject:       domain.Subject(r.Subject),
		})
	}

	return questions, nil
}

func (b *Bank) fill(ctx context.Context, subject domain.Subject, questions []domain.Question) {
	rows := make([]questionRow, 0, len(questions))
	answers := make(map[string]string, len(questions))
	for _, q := range questions {
		rows = append(rows, questionRow{
			QuestionID:    q.QuestionID,
			Text:          q.Text,
			Options:       q.Options,
			CorrectOption: q.CorrectOption,
			Subject:       string(q.Subject),
		})
		answers[q.QuestionID] = q.CorrectOption
	}

	blob, err := json.Marshal(rows)
	if err != nil {
		return
	}

	pipe := b.redis.Pipeline()
	pipe.Set(ctx, b.subjectKey(subject), blob, b.ttlWithJitter())
	if len(answers) > 0 {
		pipe.HSet(ctx, b.answersKey(), answers)
		if b.ttl > 0 {
			pipe.Expire(ctx, b.answersKey(), b.ttlWithJitter())
		}
	}
	// Best effort: a failed fill only costs the next caller a bank read.
	_, _ = pipe.Exec(ctx)
}

func (b *Bank) subjectKey(subject domain.Subject) string {
	return fmt.Sprintf("%s:questions:%s", b.prefix, subject)
}

func (b *Bank) answersKey() string {
	return fmt.Sprintf("%s:answers", b.prefix)
}

func (b *Bank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	return b.ttl + rand.N(b.ttl/10+1)
}

func truncate(questions []domain.Question, limit int) []domain.Question {
	if limit > 0 && limit < len(questions) {
		return questions[:limit]
	}
	return questions
}
