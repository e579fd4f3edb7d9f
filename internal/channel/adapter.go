// Package channel wraps each delivery mechanism behind a uniform adapter port.
package channel

import (
	"context"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

// Payload is the channel-independent notification content.
type Payload struct {
	CampaignID   string `json:"campaignId"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	BloodType    string `json:"bloodType,omitempty"`
	FacilityName string `json:"facilityName,omitempty"`
}

// Adapter delivers one payload to one recipient over a single channel.
type Adapter interface {
	Channel() domain.Channel
	Send(ctx context.Context, recipient domain.Recipient, payload Payload) (*SendResult, error)
}

// SendResult stores provider call metadata for audit and analytics.
type SendResult struct {
	StatusCode int
	Body       string
	MessageID  string
}
