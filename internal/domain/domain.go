package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subject partitions the question bank and the score breakdown.
type Subject string

const (
	SubjectMath      Subject = "math"
	SubjectPhysics   Subject = "physics"
	SubjectChemistry Subject = "chemistry"
)

// Subjects lists every subject in the fixed exam composition order.
var Subjects = []Subject{SubjectMath, SubjectPhysics, SubjectChemistry}

// Question is a bank question, including the correct option.
// The correct option must never reach the candidate-facing read path.
type Question struct {
	QuestionID    string
	Text          string
	Options       []string
	CorrectOption string
	Subject       Subject
}

// AttemptQuestion is an immutable snapshot of a bank question embedded in an
// attempt at creation time, so later bank edits cannot alter an in-progress
// exam. It intentionally carries no correct option.
type AttemptQuestion struct {
	QuestionID string
	Text       string
	Options    []string
	Subject    Subject
}

// Attempt is one candidate's single timed exam session: a frozen question set
// plus mutable answers. A user holds at most one attempt with IsActive true.
type Attempt struct {
	AttemptID string
	UserID    string
	Questions []AttemptQuestion
	// Answers maps question ID to the selected option. Sparse: a missing key
	// means unanswered. Last write wins.
	Answers   map[string]string
	StartTime time.Time
	EndTime   time.Time
	// TimeRemaining is an advisory cache in seconds, refreshed on reads.
	// Wall-clock comparison against EndTime is authoritative for expiry.
	TimeRemaining int
	HasSubmitted  bool
	IsActive      bool
}

// Question returns the frozen snapshot for the given question ID, if the
// question belongs to this attempt.
func (a *Attempt) Question(questionID string) (AttemptQuestion, bool) {
	for _, q := range a.Questions {
		if q.QuestionID == questionID {
			return q, true
		}
	}
	return AttemptQuestion{}, false
}

// Scorecard is the output of grading one answer set against an answer key.
type Scorecard struct {
	TotalQuestions int
	CorrectAnswers int
	// Score is a percentage in [0, 100] with one decimal place.
	Score decimal.Decimal
	// SubjectScores holds the integer percentage per subject.
	SubjectScores map[Subject]int
}

// Result is a finalized exam score, written exactly once per submission.
type Result struct {
	ResultID       string
	UserID         string
	TotalQuestions int
	CorrectAnswers int
	Score          decimal.Decimal
	SubjectScores  map[Subject]int
	CreateTime     time.Time
}

// Credential is a verified identity handed to the core by the authentication
// collaborator. The core trusts these fields and never re-parses raw tokens.
type Credential struct {
	UserID string
	Role   string
}

const (
	RoleCandidate = "candidate"
	RoleAdmin     = "admin"
)
