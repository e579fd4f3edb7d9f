package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle state of a campaign.
type Status string

const (
	StatusActive       Status = "ACTIVE"
	StatusEscalated    Status = "ESCALATED"
	StatusCoordinating Status = "COORDINATING"
	StatusResolved     Status = "RESOLVED"
	StatusExpired      Status = "EXPIRED"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusEscalated, StatusCoordinating, StatusResolved, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports whether the campaign accepts no further mutation.
func (s Status) IsTerminal() bool {
	return s == StatusResolved || s == StatusExpired
}

// Urgency represents the declared urgency tier of a request.
type Urgency string

const (
	UrgencyCritical  Urgency = "CRITICAL"
	UrgencyUrgent    Urgency = "URGENT"
	UrgencyNormal    Urgency = "NORMAL"
	UrgencyScheduled Urgency = "SCHEDULED"
)

func (u Urgency) String() string { return string(u) }

func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyCritical, UrgencyUrgent, UrgencyNormal, UrgencyScheduled:
		return true
	}
	return false
}

func ParseUrgencyFromString(s string) (Urgency, error) {
	u := Urgency(strings.ToUpper(strings.TrimSpace(s)))
	if !u.IsValid() {
		return "", fmt.Errorf("%w: invalid urgency %q", ErrValidation, s)
	}
	return u, nil
}

// Channel represents a delivery channel.
type Channel string

const (
	ChannelPush     Channel = "PUSH"
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelSMS      Channel = "SMS"
	ChannelEmail    Channel = "EMAIL"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelPush, ChannelWhatsApp, ChannelSMS, ChannelEmail:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToUpper(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// Priority score bounds. Escalation never moves a score outside this range.
const (
	MinPriorityScore = 0
	MaxPriorityScore = 200
)

// ClampPriority bounds a score to [MinPriorityScore, MaxPriorityScore].
func ClampPriority(score int) int {
	if score < MinPriorityScore {
		return MinPriorityScore
	}
	if score > MaxPriorityScore {
		return MaxPriorityScore
	}
	return score
}

// rareBloodTypes is the fixed rarity set used for the priority bonus.
var rareBloodTypes = map[string]struct{}{
	"AB-": {},
	"B-":  {},
	"A-":  {},
	"O-":  {},
}

// IsRareBloodType reports whether a blood type earns the rarity bonus.
func IsRareBloodType(bloodType string) bool {
	_, ok := rareBloodTypes[strings.ToUpper(strings.TrimSpace(bloodType))]
	return ok
}

var validBloodTypes = map[string]struct{}{
	"A+": {}, "A-": {}, "B+": {}, "B-": {},
	"AB+": {}, "AB-": {}, "O+": {}, "O-": {},
}

// Patient carries optional patient metadata attached to a request.
type Patient struct {
	Age       int    `json:"age"`
	Condition string `json:"condition,omitempty"`
}

// Facility identifies the hospital or blood bank requesting units.
type Facility struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Contact   string  `json:"contact"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SlotAssignment is a non-overlapping donation time slot for an accepted recipient.
type SlotAssignment struct {
	RecipientID string    `json:"recipientId"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
}

// Campaign is one emergency outreach effort for a single blood request.
type Campaign struct {
	ID           string
	BloodType    string
	UnitsNeeded  int
	Urgency      Urgency
	Patient      *Patient
	Facility     Facility
	Instructions string
	NeededBy     *time.Time

	PriorityScore int
	SearchRadius  float64
	Status        Status
	CloseReason   string

	Responses          []Response
	SelectedRecipients []string
	Slots              []SlotAssignment
	DeliveryAttempts   []DeliveryAttempt

	// NotifiedIDs is every recipient handed to the dispatcher so far; used to
	// exclude them from expanded searches.
	NotifiedIDs map[string]struct{}

	MatchedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	ClosedAt  *time.Time
}

func (c *Campaign) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: campaign is required", ErrValidation)
	}
	bt := strings.ToUpper(strings.TrimSpace(c.BloodType))
	if bt == "" {
		return fmt.Errorf("%w: blood type is required", ErrValidation)
	}
	if _, ok := validBloodTypes[bt]; !ok {
		return fmt.Errorf("%w: invalid blood type %q", ErrValidation, c.BloodType)
	}
	if c.UnitsNeeded < 1 {
		return fmt.Errorf("%w: units needed must be >= 1", ErrValidation)
	}
	if !c.Urgency.IsValid() {
		return fmt.Errorf("%w: invalid urgency %q", ErrValidation, c.Urgency)
	}
	if strings.TrimSpace(c.Facility.Name) == "" {
		return fmt.Errorf("%w: facility name is required", ErrValidation)
	}
	if strings.TrimSpace(c.Facility.Contact) == "" {
		return fmt.Errorf("%w: facility contact is required", ErrValidation)
	}
	return nil
}

// AcceptedRecipients returns recipient IDs whose latest decision is accept,
// ordered by response latency (fastest responder first).
func (c *Campaign) AcceptedRecipients() []string {
	if c == nil {
		return nil
	}

	accepted := make([]Response, 0, len(c.Responses))
	for i := range c.Responses {
		if c.Responses[i].Decision == DecisionAccept {
			accepted = append(accepted, c.Responses[i])
		}
	}
	for i := 1; i < len(accepted); i++ {
		for j := i; j > 0 && accepted[j].Latency < accepted[j-1].Latency; j-- {
			accepted[j], accepted[j-1] = accepted[j-1], accepted[j]
		}
	}

	ids := make([]string, 0, len(accepted))
	for i := range accepted {
		ids = append(ids, accepted[i].RecipientID)
	}
	return ids
}

// ResponseFor returns the index of the recipient's recorded response, or -1.
func (c *Campaign) ResponseFor(recipientID string) int {
	for i := range c.Responses {
		if c.Responses[i].RecipientID == recipientID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy safe to hand outside the store's lock.
func (c *Campaign) Clone() Campaign {
	if c == nil {
		return Campaign{}
	}

	out := *c
	if c.Patient != nil {
		patient := *c.Patient
		out.Patient = &patient
	}
	out.Responses = append([]Response(nil), c.Responses...)
	out.SelectedRecipients = append([]string(nil), c.SelectedRecipients...)
	out.Slots = append([]SlotAssignment(nil), c.Slots...)
	out.DeliveryAttempts = append([]DeliveryAttempt(nil), c.DeliveryAttempts...)
	out.NotifiedIDs = make(map[string]struct{}, len(c.NotifiedIDs))
	for id := range c.NotifiedIDs {
		out.NotifiedIDs[id] = struct{}{}
	}
	return out
}
