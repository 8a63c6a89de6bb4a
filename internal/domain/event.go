package domain

const (
	EventNameAttemptStarted   = "attempt.started"
	EventNameAttemptExpired   = "attempt.expired"
	EventNameAttemptSubmitted = "attempt.submitted"
)

type EventAttemptStarted struct {
	Attempt Attempt
}

func (EventAttemptStarted) Name() string { return EventNameAttemptStarted }

type EventAttemptExpired struct {
	Attempt Attempt
}

func (EventAttemptExpired) Name() string { return EventNameAttemptExpired }

type EventAttemptSubmitted struct {
	Result Result
}

func (EventAttemptSubmitted) Name() string { return EventNameAttemptSubmitted }
