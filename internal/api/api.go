// Package api exposes the attempt lifecycle over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/victornm/eexam/internal/domain"
	"github.com/victornm/eexam/internal/errors"
	"github.com/victornm/eexam/internal/exam"
)

type Config struct {
	Router   gin.IRouter
	Exam     *exam.Service
	Verifier TokenVerifier
}

type API struct {
	exam     *exam.Service
	verifier TokenVerifier
}

func New(c Config) *API {
	a := &API{
		exam:     c.Exam,
		verifier: c.Verifier,
	}

	v1 := c.Router.Group("/v1", a.authenticate)
	v1.POST("/attempts", a.startAttempt)
	v1.GET("/attempts/active", a.getActiveAttempt)
	v1.PUT("/attempts/active/answers", a.recordAnswer)
	v1.POST("/attempts/active/submit", a.submitAttempt)
	v1.GET("/results", a.getResult)

	return a
}

type (
	questionPayload struct {
		QuestionID string   `json:"question_id"`
		Text       string   `json:"text"`
		Options    []string `json:"options"`
		Subject    string   `json:"subject"`
	}

	attemptPayload struct {
		AttemptID     string            `json:"attempt_id"`
		Questions     []questionPayload `json:"questions"`
		Answers       map[string]string `json:"answers"`
		StartTime     time.Time         `json:"start_time"`
		EndTime       time.Time         `json:"end_time"`
		TimeRemaining int               `json:"time_remaining"`
		HasSubmitted  bool              `json:"has_submitted"`
	}

	resultPayload struct {
		ResultID       string         `json:"result_id"`
		Score          float64        `json:"score"`
		CorrectAnswers int            `json:"correct_answers"`
		TotalQuestions int            `json:"total_questions"`
		SubjectScores  map[string]int `json:"subject_scores"`
		CreateTime     time.Time      `json:"create_time"`
	}
)

func (a *API) startAttempt(c *gin.Context) {
	attempt, err := a.exam.StartAttempt(c.Request.Context(), exam.StartAttemptRequest{
		UserID: credential(c).UserID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toAttemptPayload(attempt))
}

func (a *API) getActiveAttempt(c *gin.Context) {
	attempt, err := a.exam.GetActiveAttempt(c.Request.Context(), exam.GetActiveAttemptRequest{
		UserID: credential(c).UserID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAttemptPayload(attempt))
}

// recordAnswerRequest uses pointer fields so an omitted field can be told
// apart from a present zero value: an empty selected option or a zero time
// must not pass as "field missing".
type recordAnswerRequest struct {
	QuestionID     *string  `json:"question_id" binding:"required"`
	SelectedOption *string  `json:"selected_option" binding:"required"`
	TimeRemaining  *int     `json:"time_remaining" binding:"required"`
	ProctorFlags   []string `json:"proctor_flags"`
}

func (a *API) recordAnswer(c *gin.Context) {
	var req recordAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("question_id, selected_option and time_remaining are required"),
			errors.WithCause(err)))
		return
	}

	err := a.exam.RecordAnswer(c.Request.Context(), exam.RecordAnswerRequest{
		UserID:         credential(c).UserID,
		QuestionID:     *req.QuestionID,
		SelectedOption: *req.SelectedOption,
		TimeRemaining:  *req.TimeRemaining,
		ProctorFlags:   req.ProctorFlags,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recorded": true})
}

type submitAttemptRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}

func (a *API) submitAttempt(c *gin.Context) {
	var req submitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("answers map is required"),
			errors.WithCause(err)))
		return
	}

	result, err := a.exam.SubmitAttempt(c.Request.Context(), exam.SubmitAttemptRequest{
		UserID:  credential(c).UserID,
		Answers: req.Answers,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResultPayload(result))
}

func (a *API) getResult(c *gin.Context) {
	result, err := a.exam.GetResult(c.Request.Context(), exam.GetResultRequest{
		UserID: credential(c).UserID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toResultPayload(result))
}

func toAttemptPayload(a *domain.Attempt) attemptPayload {
	p := attemptPayload{
		AttemptID:     a.AttemptID,
		Questions:     make([]questionPayload, 0, len(a.Questions)),
		Answers:       a.Answers,
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		TimeRemaining: a.TimeRemaining,
		HasSubmitted:  a.HasSubmitted,
	}

	for _, q := range a.Questions {
		p.Questions = append(p.Questions, questionPayload{
			QuestionID: q.QuestionID,
			Text:       q.Text,
			Options:    q.Options,
			Subject:    string(q.Subject),
		})
	}

	return p
}

func toResultPayload(r *domain.Result) resultPayload {
	p := resultPayload{
		ResultID:       r.ResultID,
		Score:          r.Score.InexactFloat64(),
		CorrectAnswers: r.CorrectAnswers,
		TotalQuestions: r.TotalQuestions,
		SubjectScores:  make(map[string]int, len(r.SubjectScores)),
		CreateTime:     r.CreateTime,
	}

	for subject, score := range r.SubjectScores {
		p.SubjectScores[string(subject)] = score
	}

	return p
}

func abortWithError(c *gin.Context, err error) {
	e := errors.Convert(err)
	c.AbortWithStatusJSON(e.HTTPStatusCode(), gin.H{"error": e})
}
