package audit

import "time"

// DeliveryAttemptRecord is one channel delivery attempt persisted for offline
// analysis.
type DeliveryAttemptRecord struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	CampaignID    string `gorm:"type:uuid;not null;index"`
	RecipientID   string `gorm:"not null"`
	Channel       string `gorm:"type:varchar(16);not null"`
	AttemptNumber int    `gorm:"not null"`
	Outcome       string `gorm:"type:varchar(16);not null"`
	Error         *string
	CreatedAt     time.Time `gorm:"not null"`
}

func (DeliveryAttemptRecord) TableName() string { return "delivery_attempts" }

// ResponseRecord is one recipient decision persisted for offline analysis.
type ResponseRecord struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	CampaignID       string `gorm:"type:uuid;not null;index"`
	RecipientID      string `gorm:"not null"`
	Decision         string `gorm:"type:varchar(16);not null"`
	Reason           *string
	EstimatedArrival *time.Time
	LatencyMillis    int64     `gorm:"not null"`
	RespondedAt      time.Time `gorm:"not null"`
}

func (ResponseRecord) TableName() string { return "campaign_responses" }

// CampaignArchive is the terminal snapshot of a closed campaign.
type CampaignArchive struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	BloodType     string `gorm:"type:varchar(4);not null"`
	UnitsNeeded   int    `gorm:"not null"`
	Urgency       string `gorm:"type:varchar(16);not null"`
	PriorityScore int    `gorm:"not null"`
	SearchRadius  float64
	Status        string `gorm:"type:varchar(16);not null"`
	CloseReason   string
	FacilityID    string
	FacilityName  string
	ResponseCount int
	MatchedAt     *time.Time
	CreatedAt     time.Time `gorm:"not null"`
	ClosedAt      *time.Time
}

func (CampaignArchive) TableName() string { return "campaign_archives" }
