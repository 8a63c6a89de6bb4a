// Package exam implements the attempt lifecycle: it is the sole authority
// for creating, reading, mutating and retiring exam attempts, and for
// turning a submission into exactly one result.
package exam

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/victornm/eexam/internal/domain"
	"github.com/victornm/eexam/internal/errors"
	"github.com/victornm/eexam/internal/event"
	"github.com/victornm/eexam/internal/grade"
)

const (
	DefaultDuration            = time.Hour
	DefaultQuestionsPerSubject = 20
)

type Config struct {
	Attempts AttemptStore
	Results  ResultStore
	Bank     QuestionBank
	Users    UserDirectory
	EventBus *event.Bus

	// Duration is the exam length; EndTime = StartTime + Duration.
	Duration time.Duration
	// QuestionsPerSubject controls the fixed subject composition.
	QuestionsPerSubject int
	// Now is the time authority for expiry decisions, injectable in tests.
	Now func() time.Time
	// Rand drives question selection, seedable in tests.
	Rand *rand.Rand
}

type Service struct {
	attempts AttemptStore
	results  ResultStore
	bank     QuestionBank
	users    UserDirectory
	eb       *event.Bus

	duration   time.Duration
	perSubject int
	now        func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand
}

func NewService(c Config) *Service {
	s := &Service{
		attempts:   c.Attempts,
		results:    c.Results,
		bank:       c.Bank,
		users:      c.Users,
		eb:         c.EventBus,
		duration:   c.Duration,
		perSubject: c.QuestionsPerSubject,
		now:        c.Now,
		rand:       c.Rand,
	}

	if s.duration <= 0 {
		s.duration = DefaultDuration
	}
	if s.perSubject <= 0 {
		s.perSubject = DefaultQuestionsPerSubject
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.rand == nil {
		s.rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return s
}

type StartAttemptRequest struct {
	UserID string
}

// StartAttempt draws a fresh randomized question set, snapshots it into a
// new attempt and persists it. When the user already holds an active
// attempt it fails with CodeAlreadyExists carrying that attempt's ID, so
// the client can resume instead of erroring out.
func (s *Service) StartAttempt(ctx context.Context, req StartAttemptRequest) (*domain.Attempt, error) {
	eligible, err := s.users.IsEligible(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("user %s is not allowed to take the exam", req.UserID))
	}

	existing, err := s.attempts.FindActive(ctx, req.UserID)
	if err == nil {
		return nil, activeAttemptConflict(existing)
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, err
	}

	questions, err := s.drawQuestions(ctx)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate attempt ID: %w", err)
	}

	now := s.now()
	a := &domain.Attempt{
		AttemptID:     id.String(),
		UserID:        req.UserID,
		Questions:     questions,
		Answers:       make(map[string]string),
		StartTime:     now,
		EndTime:       now.Add(s.duration),
		TimeRemaining: int(s.duration / time.Second),
		IsActive:      true,
	}

	if err := s.attempts.Insert(ctx, a); err != nil {
		if errors.Is(err, errors.CodeAlreadyExists) {
			// Lost an insert race: surface the winner's attempt ID.
			if winner, ferr := s.attempts.FindActive(ctx, req.UserID); ferr == nil {
				return nil, activeAttemptConflict(winner)
			}
		}
		return nil, err
	}

	if err := s.users.IncrementAttemptCount(ctx, req.UserID); err != nil {
		// The counter belongs to the user collaborator; the attempt itself
		// is already persisted, so log instead of failing the request.
		slog.ErrorContext(ctx, "exam: increment attempt count failed",
			"user", req.UserID, "error", err)
	}

	s.publish(ctx, domain.EventAttemptStarted{Attempt: *a})

	return a, nil
}

// drawQuestions samples the fixed per-subject count from the bank, without
// replacement, and shuffles the combined order. All three subject draws run
// concurrently against the bank.
func (s *Service) drawQuestions(ctx context.Context) ([]domain.AttemptQuestion, error) {
	perSubject := make([][]domain.Question, len(domain.Subjects))

	eg, gctx := errgroup.WithContext(ctx)
	for i, subject := range domain.Subjects {
		eg.Go(func() error {
			qs, err := s.bank.ListBySubject(gctx, subject, 0)
			if err != nil {
				return fmt.Errorf("list %s questions: %w", subject, err)
			}
			perSubject[i] = qs
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	picked := make([]domain.AttemptQuestion, 0, s.perSubject*len(domain.Subjects))

	s.randMu.Lock()
	defer s.randMu.Unlock()

	for i, subject := range domain.Subjects {
		qs := perSubject[i]
		if len(qs) < s.perSubject {
			return nil, errors.New(errors.CodeFailedPrecondition,
				errors.WithMessagef("question bank has %d %s questions, need %d", len(qs), subject, s.perSubject))
		}

		s.rand.Shuffle(len(qs), func(a, b int) { qs[a], qs[b] = qs[b], qs[a] })
		for _, q := range qs[:s.perSubject] {
			picked = append(picked, snapshot(q))
		}
	}

	s.rand.Shuffle(len(picked), func(a, b int) { picked[a], picked[b] = picked[b], picked[a] })

	return picked, nil
}

func snapshot(q domain.Question) domain.AttemptQuestion {
	return domain.AttemptQuestion{
		QuestionID: q.QuestionID,
		Text:       q.Text,
		Options:    slices.Clone(q.Options),
		Subject:    q.Subject,
	}
}

type GetActiveAttemptRequest struct {
	UserID string
}

// GetActiveAttempt returns the user's active attempt with a freshly computed
// TimeRemaining. This is the lazy expiry path: when the wall clock has
// passed EndTime the attempt is retired first and the call fails with
// CodeDeadlineExceeded instead of returning data.
func (s *Service) GetActiveAttempt(ctx context.Context, req GetActiveAttemptRequest) (*domain.Attempt, error) {
	a, err := s.attempts.FindActive(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if now.After(a.EndTime) {
		if err := s.expire(ctx, a); err != nil {
			return nil, err
		}
		return nil, expiredError(a)
	}

	remaining := int(a.EndTime.Sub(now) / time.Second)
	if remaining < 0 {
		remaining = 0
	}

	// Persisted so a resume on another device starts from a consistent timer.
	if err := s.attempts.RefreshTimeRemaining(ctx, a.AttemptID, remaining); err != nil {
		return nil, err
	}
	a.TimeRemaining = remaining

	return a, nil
}

type RecordAnswerRequest struct {
	UserID         string
	QuestionID     string
	SelectedOption string
	// TimeRemaining is the client-reported remaining seconds. Stored as
	// advisory display data only; EndTime stays authoritative for expiry.
	TimeRemaining int
	// ProctorFlags are advisory proctoring signals, recorded as audit
	// annotations and never used as gating logic.
	ProctorFlags []string
}

// RecordAnswer upserts the selected option for one question of the user's
// active attempt, last write wins. It is the high-frequency path: it never
// touches the bank or the result store.
func (s *Service) RecordAnswer(ctx context.Context, req RecordAnswerRequest) error {
	a, err := s.attempts.FindLatest(ctx, req.UserID)
	if err != nil {
		return err
	}
	if a.HasSubmitted {
		return alreadySubmittedError(a)
	}
	if !a.IsActive {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("no active attempt for user %s", req.UserID))
	}
	if _, ok := a.Question(req.QuestionID); !ok {
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("question %s is not part of attempt %s", req.QuestionID, a.AttemptID))
	}

	if len(req.ProctorFlags) > 0 {
		slog.InfoContext(ctx, "exam: proctor annotations",
			"attempt", a.AttemptID, "question", req.QuestionID, "flags", req.ProctorFlags)
	}

	return s.attempts.SetAnswer(ctx, a.AttemptID, req.QuestionID, req.SelectedOption, req.TimeRemaining)
}

type SubmitAttemptRequest struct {
	UserID string
	// Answers is the client's full final answer map.
	Answers map[string]string
}

// SubmitAttempt grades the final answer map against the bank's answer key
// and writes exactly one result. The HasSubmitted flip is an atomic
// check-and-set, so the loser of a concurrent double submit gets
// CodeFailedPrecondition rather than a duplicate result.
func (s *Service) SubmitAttempt(ctx context.Context, req SubmitAttemptRequest) (*domain.Result, error) {
	a, err := s.attempts.FindLatest(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if a.HasSubmitted {
		return nil, alreadySubmittedError(a)
	}
	if !a.IsActive {
		return nil, expiredError(a)
	}

	now := s.now()
	if now.After(a.EndTime) {
		if err := s.expire(ctx, a); err != nil {
			return nil, err
		}
		return nil, expiredError(a)
	}

	// The client's final payload wins; server-recorded answers back-fill
	// questions the payload omits so incremental progress is not lost.
	answers := make(map[string]string, len(a.Answers)+len(req.Answers))
	for q, opt := range a.Answers {
		answers[q] = opt
	}
	for q, opt := range req.Answers {
		answers[q] = opt
	}

	ids := make([]string, 0, len(a.Questions))
	for _, q := range a.Questions {
		ids = append(ids, q.QuestionID)
	}
	key, err := s.bank.AnswerKey(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load answer key: %w", err)
	}

	sc := grade.Grade(a.Questions, key, answers)

	ok, err := s.attempts.MarkSubmitted(ctx, a.AttemptID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, alreadySubmittedError(a)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate result ID: %w", err)
	}

	r := &domain.Result{
		ResultID:       id.String(),
		UserID:         a.UserID,
		TotalQuestions: sc.TotalQuestions,
		CorrectAnswers: sc.CorrectAnswers,
		Score:          sc.Score,
		SubjectScores:  sc.SubjectScores,
		CreateTime:     now,
	}
	if err := s.results.Insert(ctx, r); err != nil {
		return nil, err
	}

	s.publish(ctx, domain.EventAttemptSubmitted{Result: *r})

	return r, nil
}

type GetResultRequest struct {
	UserID string
}

func (s *Service) GetResult(ctx context.Context, req GetResultRequest) (*domain.Result, error) {
	return s.results.FindByUser(ctx, req.UserID)
}

func (s *Service) expire(ctx context.Context, a *domain.Attempt) error {
	if err := s.attempts.Expire(ctx, a.AttemptID); err != nil {
		return err
	}
	a.IsActive = false
	a.TimeRemaining = 0

	s.publish(ctx, domain.EventAttemptExpired{Attempt: *a})

	return nil
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	if s.eb == nil {
		return
	}
	s.eb.Publish(ctx, e)
}

func activeAttemptConflict(a *domain.Attempt) error {
	return errors.New(errors.CodeAlreadyExists,
		errors.WithMessagef("user %s already has an active attempt", a.UserID),
		errors.WithDetails(map[string]any{"attempt_id": a.AttemptID}))
}

func alreadySubmittedError(a *domain.Attempt) error {
	return errors.New(errors.CodeFailedPrecondition,
		errors.WithMessagef("attempt %s is already submitted", a.AttemptID))
}

func expiredError(a *domain.Attempt) error {
	return errors.New(errors.CodeDeadlineExceeded,
		errors.WithMessagef("attempt %s has expired", a.AttemptID))
}
