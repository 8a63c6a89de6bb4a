// Package grade computes exam scores. Grading is a pure function of the
// frozen question set, the bank's answer key and the submitted answers:
// no clock, no storage, no randomness.
package grade

import (
	"github.com/shopspring/decimal"

	"github.com/victornm/eexam/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Grade counts submitted options that match the answer key and derives the
// overall and per-subject percentages. An unanswered question never counts
// as correct. A question missing from the key is treated as unanswered.
//
// The overall score keeps one decimal place, rounded half-up. Subject scores
// are integer percentages; a subject with zero questions scores 0.
func Grade(questions []domain.AttemptQuestion, key map[string]string, answers map[string]string) domain.Scorecard {
	var (
		correct        int
		subjectTotal   = make(map[domain.Subject]int)
		subjectCorrect = make(map[domain.Subject]int)
	)

	for _, q := range questions {
		subjectTotal[q.Subject]++

		want, ok := key[q.QuestionID]
		if !ok {
			continue
		}
		got, ok := answers[q.QuestionID]
		if !ok {
			continue
		}
		if got == want {
			correct++
			subjectCorrect[q.Subject]++
		}
	}

	sc := domain.Scorecard{
		TotalQuestions: len(questions),
		CorrectAnswers: correct,
		Score:          percent(correct, len(questions), 1),
		SubjectScores:  make(map[domain.Subject]int, len(domain.Subjects)),
	}

	for _, subject := range domain.Subjects {
		sc.SubjectScores[subject] = int(percent(subjectCorrect[subject], subjectTotal[subject], 0).IntPart())
	}

	return sc
}

func percent(part, total int, places int32) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}

	return decimal.NewFromInt(int64(part)).
		Mul(hundred).
		DivRound(decimal.NewFromInt(int64(total)), places)
}
