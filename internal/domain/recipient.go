package domain

import "strings"

// Recipient is one candidate donor targeted by a campaign. Contact fields are
// optional per channel; an adapter with no address for its channel reports a
// permanent failure and the dispatcher falls through to the next channel.
type Recipient struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name,omitempty"`
	Phone              string    `json:"phone,omitempty"`
	Email              string    `json:"email,omitempty"`
	DeviceToken        string    `json:"deviceToken,omitempty"`
	PreferredChannels  []Channel `json:"preferredChannels,omitempty"`
	DistanceMeters     float64   `json:"distanceMeters,omitempty"`
	CompatibilityScore float64   `json:"compatibilityScore,omitempty"`
}

func (r Recipient) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrValidation
	}
	return nil
}
