package domain

import (
	"fmt"
	"strings"
	"time"
)

// Decision is a recipient's reply to a campaign notification.
type Decision string

const (
	DecisionAccept  Decision = "ACCEPT"
	DecisionDecline Decision = "DECLINE"
)

func (d Decision) String() string { return string(d) }

func (d Decision) IsValid() bool {
	return d == DecisionAccept || d == DecisionDecline
}

func ParseDecisionFromString(s string) (Decision, error) {
	d := Decision(strings.ToUpper(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", fmt.Errorf("%w: invalid decision %q", ErrValidation, s)
	}
	return d, nil
}

// Response is one recipient's recorded decision for a campaign. Responses are
// append-only; a later decision from the same recipient replaces the earlier
// one in place only when it differs.
type Response struct {
	RecipientID      string
	Decision         Decision
	Reason           string
	EstimatedArrival *time.Time
	RespondedAt      time.Time
	// Latency is the time between campaign creation and this response.
	Latency time.Duration
}
