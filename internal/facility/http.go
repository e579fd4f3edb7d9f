package facility

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

const defaultNotifyTimeout = 5 * time.Second

type acceptanceEvent struct {
	Event            string     `json:"event"`
	CampaignID       string     `json:"campaignId"`
	FacilityID       string     `json:"facilityId"`
	RecipientID      string     `json:"recipientId"`
	EstimatedArrival *time.Time `json:"estimatedArrival,omitempty"`
}

type scheduleEvent struct {
	Event      string                  `json:"event"`
	CampaignID string                  `json:"campaignId"`
	FacilityID string                  `json:"facilityId"`
	Slots      []domain.SlotAssignment `json:"slots"`
}

type escalationEvent struct {
	Event         string  `json:"event"`
	CampaignID    string  `json:"campaignId"`
	FacilityID    string  `json:"facilityId"`
	PriorityScore int     `json:"priorityScore"`
	RadiusMeters  float64 `json:"radiusMeters"`
}

// HTTPSink posts facility events to the coordination gateway.
type HTTPSink struct {
	client   *resty.Client
	endpoint string
	logger   *zap.Logger
}

func NewHTTPSink(endpoint string, logger *zap.Logger) (*HTTPSink, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("facility endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid facility endpoint: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New()
	client.SetTimeout(defaultNotifyTimeout)
	client.SetRetryCount(0)

	return &HTTPSink{client: client, endpoint: trimmedEndpoint, logger: logger}, nil
}

func (s *HTTPSink) NotifyAcceptance(ctx context.Context, campaignID string, fac domain.Facility, recipientID string, estimatedArrival *time.Time) {
	s.post(ctx, campaignID, acceptanceEvent{
		Event:            "donor_accepted",
		CampaignID:       campaignID,
		FacilityID:       fac.ID,
		RecipientID:      recipientID,
		EstimatedArrival: estimatedArrival,
	})
}

func (s *HTTPSink) NotifySchedule(ctx context.Context, campaignID string, fac domain.Facility, slots []domain.SlotAssignment) {
	s.post(ctx, campaignID, scheduleEvent{
		Event:      "donation_schedule",
		CampaignID: campaignID,
		FacilityID: fac.ID,
		Slots:      slots,
	})
}

func (s *HTTPSink) BroadcastEscalation(ctx context.Context, campaignID string, fac domain.Facility, priorityScore int, radiusMeters float64) {
	s.post(ctx, campaignID, escalationEvent{
		Event:         "campaign_escalated",
		CampaignID:    campaignID,
		FacilityID:    fac.ID,
		PriorityScore: priorityScore,
		RadiusMeters:  radiusMeters,
	})
}

func (s *HTTPSink) post(ctx context.Context, campaignID string, body any) {
	if s == nil || s.client == nil {
		return
	}

	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(s.endpoint)
	if err != nil {
		s.logger.Warn("facility notification failed",
			zap.String("campaignId", campaignID),
			zap.Error(err),
		)
		return
	}
	if response.StatusCode() >= 300 {
		s.logger.Warn("facility notification rejected",
			zap.String("campaignId", campaignID),
			zap.Int("status", response.StatusCode()),
		)
	}
}
