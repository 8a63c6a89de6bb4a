package telemetry

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/victornm/eexam/internal/domain"
	"github.com/victornm/eexam/internal/event"
)

var attemptTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "eexam_attempt_transitions_total",
	Help: "Attempt lifecycle transitions by kind.",
}, []string{"transition"})

// ObserveExam subscribes to attempt lifecycle events, counting transitions
// and writing the audit trail. Proctoring and reporting consume this
// output; nothing here feeds back into the lifecycle.
func ObserveExam(eb *event.Bus) {
	eb.Subscribe(domain.EventNameAttemptStarted, func(ctx context.Context, e event.Event) error {
		a := e.(domain.EventAttemptStarted).Attempt
		attemptTransitions.WithLabelValues("started").Inc()
		slog.InfoContext(ctx, "exam: attempt started",
			"attempt", a.AttemptID, "user", a.UserID, "questions", len(a.Questions), "end_time", a.EndTime)
		return nil
	})

	eb.Subscribe(domain.EventNameAttemptExpired, func(ctx context.Context, e event.Event) error {
		a := e.(domain.EventAttemptExpired).Attempt
		attemptTransitions.WithLabelValues("expired").Inc()
		slog.InfoContext(ctx, "exam: attempt expired",
			"attempt", a.AttemptID, "user", a.UserID, "answered", len(a.Answers))
		return nil
	})

	eb.Subscribe(domain.EventNameAttemptSubmitted, func(ctx context.Context, e event.Event) error {
		r := e.(domain.EventAttemptSubmitted).Result
		attemptTransitions.WithLabelValues("submitted").Inc()
		slog.InfoContext(ctx, "exam: attempt submitted",
			"result", r.ResultID, "user", r.UserID, "correct", r.CorrectAnswers, "score", r.Score)
		return nil
	})
}
