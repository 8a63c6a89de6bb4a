package grade_test

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/eexam/internal/domain"
	"github.com/victornm/eexam/internal/grade"
)

func TestGrade(t *testing.T) {
	type inputs struct {
		questions []domain.AttemptQuestion
		key       map[string]string
		answers   map[string]string
	}

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, sc domain.Scorecard)
	}{
		"42 of 60 correct should score 70.0 with per-subject breakdown": {
			arrange: func() inputs {
				questions, key := fullExam(t)

				// 20/20 math, 13/20 physics, 9/20 chemistry.
				answers := map[string]string{}
				answerCorrectly(answers, key, domain.SubjectMath, 20)
				answerCorrectly(answers, key, domain.SubjectPhysics, 13)
				answerCorrectly(answers, key, domain.SubjectChemistry, 9)

				return inputs{questions: questions, key: key, answers: answers}
			},

			assert: func(t *testing.T, sc domain.Scorecard) {
				assert.Equal(t, 60, sc.TotalQuestions)
				assert.Equal(t, 42, sc.CorrectAnswers)
				requireScore(t, "70", sc.Score)
				assert.Equal(t, map[domain.Subject]int{
					domain.SubjectMath:      100,
					domain.SubjectPhysics:   65,
					domain.SubjectChemistry: 45,
				}, sc.SubjectScores)
			},
		},

		"no answers should score zero": {
			arrange: func() inputs {
				questions, key := fullExam(t)
				return inputs{questions: questions, key: key, answers: map[string]string{}}
			},

			assert: func(t *testing.T, sc domain.Scorecard) {
				assert.Equal(t, 0, sc.CorrectAnswers)
				requireScore(t, "0", sc.Score)
				assert.Equal(t, map[domain.Subject]int{
					domain.SubjectMath:      0,
					domain.SubjectPhysics:   0,
					domain.SubjectChemistry: 0,
				}, sc.SubjectScores)
			},
		},

		"wrong options should never count as correct": {
			arrange: func() inputs {
				questions, key := fullExam(t)

				answers := map[string]string{}
				for id := range key {
					answers[id] = "never the correct option"
				}

				return inputs{questions: questions, key: key, answers: answers}
			},

			assert: func(t *testing.T, sc domain.Scorecard) {
				assert.Equal(t, 0, sc.CorrectAnswers)
				requireScore(t, "0", sc.Score)
			},
		},

		"41 of 60 should round down to 68.3": {
			arrange: func() inputs {
				questions, key := fullExam(t)

				answers := map[string]string{}
				answerCorrectly(answers, key, domain.SubjectMath, 20)
				answerCorrectly(answers, key, domain.SubjectPhysics, 20)
				answerCorrectly(answers, key, domain.SubjectChemistry, 1)

				return inputs{questions: questions, key: key, answers: answers}
			},

			assert: func(t *testing.T, sc domain.Scorecard) {
				assert.Equal(t, 41, sc.CorrectAnswers)
				// 41/60*100 = 68.333...
				requireScore(t, "68.3", sc.Score)
			},
		},

		"exact half should round up": {
			arrange: func() inputs {
				questions, key := subjectQuestions(domain.SubjectMath, 16)

				// 1/16*100 = 6.25, one decimal kept half-up.
				return inputs{
					questions: questions,
					key:       key,
					answers:   map[string]string{questionID(domain.SubjectMath, 0): key[questionID(domain.SubjectMath, 0)]},
				}
			},

			assert: func(t *testing.T, sc domain.Scorecard) {
				requireScore(t, "6.3", sc.Score)
				// 6.25 rounds to 6 at integer precision.
				assert.Equal(t, 6, sc.SubjectScores[domain.SubjectMath])
			},
		},

		"subject percent should round half-up to integers": {
			arrange: func() inputs {
				questions, key := subjectQuestions(domain.SubjectPhysics, 3)

				answers := map[string]string{}
				answerCorrectly(answers, key, domain.SubjectPhysics, 2)

				return inputs{questions: questions, key: key, answers: answers}
			},

			assert: func(t *testing.T, sc domain.Scorecard) {
				// 2/3 = 66.67%, rounded to 67.
				assert.Equal(t, 67, sc.SubjectScores[domain.SubjectPhysics])
				assert.Equal(t, 0, sc.SubjectScores[domain.SubjectMath])
				assert.Equal(t, 0, sc.SubjectScores[domain.SubjectChemistry])
			},
		},

		"answers for unknown questions should be ignored": {
			arrange: func() inputs {
				questions, key := subjectQuestions(domain.SubjectChemistry, 4)

				return inputs{
					questions: questions,
					key:       key,
					answers:   map[string]string{"not-in-the-attempt": "option C"},
				}
			},

			assert: func(t *testing.T, sc domain.Scorecard) {
				assert.Equal(t, 4, sc.TotalQuestions)
				assert.Equal(t, 0, sc.CorrectAnswers)
			},
		},

		"empty question set should score zero without dividing by zero": {
			arrange: func() inputs {
				return inputs{questions: nil, key: map[string]string{}, answers: map[string]string{}}
			},

			assert: func(t *testing.T, sc domain.Scorecard) {
				assert.Equal(t, 0, sc.TotalQuestions)
				requireScore(t, "0", sc.Score)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			sc := grade.Grade(in.questions, in.key, in.answers)
			tt.assert(t, sc)
		})
	}
}

func TestGrade_Deterministic(t *testing.T) {
	questions, key := fullExam(t)

	answers := map[string]string{}
	answerCorrectly(answers, key, domain.SubjectMath, 7)
	answerCorrectly(answers, key, domain.SubjectChemistry, 19)

	first := grade.Grade(questions, key, answers)
	second := grade.Grade(questions, key, answers)

	require.Equal(t, first, second)
}

func requireScore(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, got.Equal(decimal.RequireFromString(want)), "score = %s, want %s", got, want)
}

// fullExam builds the fixed 20/20/20 composition with a known answer key.
func fullExam(t *testing.T) ([]domain.AttemptQuestion, map[string]string) {
	t.Helper()

	var (
		questions []domain.AttemptQuestion
		key       = map[string]string{}
	)
	for _, subject := range domain.Subjects {
		qs, k := subjectQuestions(subject, 20)
		questions = append(questions, qs...)
		for id, opt := range k {
			key[id] = opt
		}
	}

	return questions, key
}

func subjectQuestions(subject domain.Subject, n int) ([]domain.AttemptQuestion, map[string]string) {
	questions := make([]domain.AttemptQuestion, 0, n)
	key := make(map[string]string, n)

	for i := 0; i < n; i++ {
		id := questionID(subject, i)
		questions = append(questions, domain.AttemptQuestion{
			QuestionID: id,
			Text:       fmt.Sprintf("%s question %d", subject, i),
			Options:    []string{"option A", "option B", "option C", "option D"},
			Subject:    subject,
		})
		key[id] = "option C"
	}

	return questions, key
}

func questionID(subject domain.Subject, i int) string {
	return fmt.Sprintf("%s-%03d", subject, i)
}

// answerCorrectly fills answers with the correct option for the first n
// questions of a subject.
func answerCorrectly(answers, key map[string]string, subject domain.Subject, n int) {
	for i := 0; i < n; i++ {
		id := questionID(subject, i)
		answers[id] = key[id]
	}
}
