package domain

import "time"

// AttemptOutcome is the result of one channel try.
type AttemptOutcome string

const (
	AttemptSent   AttemptOutcome = "SENT"
	AttemptFailed AttemptOutcome = "FAILED"
)

func (o AttemptOutcome) String() string { return string(o) }

// DeliveryAttempt records a single channel try for one recipient. It feeds
// analytics and debugging only; dispatch decisions never read past attempts.
type DeliveryAttempt struct {
	RecipientID   string
	Channel       Channel
	AttemptNumber int
	Outcome       AttemptOutcome
	Error         string
	At            time.Time
}
