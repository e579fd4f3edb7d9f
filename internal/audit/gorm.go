package audit

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

var _ Sink = (*GormSink)(nil)

// GormSink writes audit records to Postgres.
type GormSink struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewGormSink(db *gorm.DB, logger *zap.Logger) *GormSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormSink{db: db, logger: logger}
}

func (s *GormSink) RecordAttempt(ctx context.Context, campaignID string, attempt domain.DeliveryAttempt) {
	if s == nil || s.db == nil {
		return
	}

	record := DeliveryAttemptRecord{
		ID:            uuid.NewString(),
		CampaignID:    campaignID,
		RecipientID:   attempt.RecipientID,
		Channel:       attempt.Channel.String(),
		AttemptNumber: attempt.AttemptNumber,
		Outcome:       attempt.Outcome.String(),
		CreatedAt:     attempt.At,
	}
	if strings.TrimSpace(attempt.Error) != "" {
		value := attempt.Error
		record.Error = &value
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logger.Warn("failed to persist delivery attempt",
			zap.String("campaignId", campaignID),
			zap.String("recipientId", attempt.RecipientID),
			zap.Error(err),
		)
	}
}

func (s *GormSink) RecordResponse(ctx context.Context, campaignID string, response domain.Response) {
	if s == nil || s.db == nil {
		return
	}

	record := ResponseRecord{
		ID:               uuid.NewString(),
		CampaignID:       campaignID,
		RecipientID:      response.RecipientID,
		Decision:         response.Decision.String(),
		EstimatedArrival: response.EstimatedArrival,
		LatencyMillis:    response.Latency.Milliseconds(),
		RespondedAt:      response.RespondedAt,
	}
	if strings.TrimSpace(response.Reason) != "" {
		value := response.Reason
		record.Reason = &value
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logger.Warn("failed to persist response",
			zap.String("campaignId", campaignID),
			zap.String("recipientId", response.RecipientID),
			zap.Error(err),
		)
	}
}

func (s *GormSink) ArchiveCampaign(ctx context.Context, c domain.Campaign) {
	if s == nil || s.db == nil {
		return
	}

	record := CampaignArchive{
		ID:            c.ID,
		BloodType:     c.BloodType,
		UnitsNeeded:   c.UnitsNeeded,
		Urgency:       c.Urgency.String(),
		PriorityScore: c.PriorityScore,
		SearchRadius:  c.SearchRadius,
		Status:        c.Status.String(),
		CloseReason:   c.CloseReason,
		FacilityID:    c.Facility.ID,
		FacilityName:  c.Facility.Name,
		ResponseCount: len(c.Responses),
		MatchedAt:     c.MatchedAt,
		CreatedAt:     c.CreatedAt,
		ClosedAt:      c.ClosedAt,
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logger.Warn("failed to archive campaign",
			zap.String("campaignId", c.ID),
			zap.Error(err),
		)
	}
}
