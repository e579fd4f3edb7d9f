package queue

import (
	"fmt"
	"strings"

	"github.com/AkashMedishetty/bloodalert/internal/channel"
	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

// DispatchMessage is the broker payload for one recipient notification job.
type DispatchMessage struct {
	CampaignID    string           `json:"campaignId"`
	CorrelationID string           `json:"correlationId,omitempty"`
	Urgency       domain.Urgency   `json:"urgency"`
	PriorityScore int              `json:"priorityScore"`
	Recipient     domain.Recipient `json:"recipient"`
	Payload       channel.Payload  `json:"payload"`
}

func (m DispatchMessage) Validate() error {
	if strings.TrimSpace(m.CampaignID) == "" {
		return fmt.Errorf("campaignId is required")
	}
	if !m.Urgency.IsValid() {
		return fmt.Errorf("invalid urgency %q", m.Urgency)
	}
	if strings.TrimSpace(m.Recipient.ID) == "" {
		return fmt.Errorf("recipient id is required")
	}
	return nil
}
