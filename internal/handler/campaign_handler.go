package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/AkashMedishetty/bloodalert/internal/analytics"
	"github.com/AkashMedishetty/bloodalert/internal/domain"
	"github.com/AkashMedishetty/bloodalert/internal/observability"
)

type CampaignService interface {
	CreateCampaign(ctx context.Context, req domain.Campaign) (domain.Campaign, error)
	GetCampaign(id string) (domain.Campaign, error)
	ListCampaigns() []domain.Campaign
	RecordResponse(ctx context.Context, campaignID string, resp domain.Response) (domain.Campaign, error)
	CloseCampaign(ctx context.Context, campaignID string, status domain.Status, reason string) error
}

type CampaignHandler struct {
	service CampaignService
}

func NewCampaignHandler(service CampaignService) (*CampaignHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("campaign service is required")
	}
	return &CampaignHandler{service: service}, nil
}

func RegisterCampaignRoutes(router fiber.Router, service CampaignService) error {
	h, err := NewCampaignHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/campaigns", h.CreateCampaign)
	v1.Get("/campaigns", h.ListCampaigns)
	v1.Get("/campaigns/:id", h.GetCampaign)
	v1.Post("/campaigns/:id/responses", h.RecordResponse)
	v1.Post("/campaigns/:id/close", h.CloseCampaign)
	v1.Get("/analytics", h.GetAnalytics)

	return nil
}

type patientRequest struct {
	Age       int    `json:"age"`
	Condition string `json:"condition"`
}

type facilityRequest struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Contact   string  `json:"contact"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type createCampaignRequest struct {
	BloodType    string          `json:"bloodType"`
	UnitsNeeded  int             `json:"unitsNeeded"`
	Urgency      string          `json:"urgency"`
	Patient      *patientRequest `json:"patient,omitempty"`
	Facility     facilityRequest `json:"facility"`
	Instructions string          `json:"instructions"`
	NeededBy     *time.Time      `json:"neededBy,omitempty"`
}

type recordResponseRequest struct {
	RecipientID      string     `json:"recipientId"`
	Decision         string     `json:"decision"`
	Reason           string     `json:"reason"`
	EstimatedArrival *time.Time `json:"estimatedArrival,omitempty"`
}

type closeCampaignRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type responseItem struct {
	RecipientID      string     `json:"recipientId"`
	Decision         string     `json:"decision"`
	Reason           string     `json:"reason,omitempty"`
	EstimatedArrival *time.Time `json:"estimatedArrival,omitempty"`
	RespondedAt      time.Time  `json:"respondedAt"`
	LatencyMillis    int64      `json:"latencyMillis"`
}

type slotItem struct {
	RecipientID string    `json:"recipientId"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
}

type campaignResponse struct {
	ID                 string         `json:"id"`
	BloodType          string         `json:"bloodType"`
	UnitsNeeded        int            `json:"unitsNeeded"`
	Urgency            string         `json:"urgency"`
	PriorityScore      int            `json:"priorityScore"`
	SearchRadiusMeters float64        `json:"searchRadiusMeters"`
	Status             string         `json:"status"`
	CloseReason        string         `json:"closeReason,omitempty"`
	Instructions       string         `json:"instructions,omitempty"`
	NeededBy           *time.Time     `json:"neededBy,omitempty"`
	NotifiedCount      int            `json:"notifiedCount"`
	Responses          []responseItem `json:"responses"`
	SelectedRecipients []string       `json:"selectedRecipients"`
	Slots              []slotItem     `json:"slots,omitempty"`
	MatchedAt          *time.Time     `json:"matchedAt,omitempty"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	ClosedAt           *time.Time     `json:"closedAt,omitempty"`
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req createCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	campaign, err := requestToDomainCampaign(req)
	if err != nil {
		return err
	}

	created, err := h.service.CreateCampaign(requestContext(c), campaign)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toCampaignResponse(created))
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	campaign, err := h.service.GetCampaign(id)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toCampaignResponse(campaign))
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	campaigns := h.service.ListCampaigns()

	items := make([]campaignResponse, 0, len(campaigns))
	for _, campaign := range campaigns {
		items = append(items, toCampaignResponse(campaign))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data":  items,
		"total": len(items),
	})
}

func (h *CampaignHandler) RecordResponse(c *fiber.Ctx) error {
	var req recordResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	decision, err := domain.ParseDecisionFromString(req.Decision)
	if err != nil {
		return err
	}

	id := strings.TrimSpace(c.Params("id"))
	updated, err := h.service.RecordResponse(requestContext(c), id, domain.Response{
		RecipientID:      strings.TrimSpace(req.RecipientID),
		Decision:         decision,
		Reason:           strings.TrimSpace(req.Reason),
		EstimatedArrival: req.EstimatedArrival,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toCampaignResponse(updated))
}

func (h *CampaignHandler) CloseCampaign(c *fiber.Ctx) error {
	var req closeCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	status := domain.StatusResolved
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status = domain.Status(strings.ToUpper(raw))
		if !status.IsValid() {
			return fmt.Errorf("%w: invalid status %q", domain.ErrValidation, req.Status)
		}
	}

	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.CloseCampaign(requestContext(c), id, status, strings.TrimSpace(req.Reason)); err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"campaignId": id,
		"status":     status.String(),
	})
}

func (h *CampaignHandler) GetAnalytics(c *fiber.Ctx) error {
	snapshot := analytics.Summarize(h.service.ListCampaigns())
	return c.Status(fiber.StatusOK).JSON(snapshot)
}

func requestToDomainCampaign(req createCampaignRequest) (domain.Campaign, error) {
	urgency, err := domain.ParseUrgencyFromString(req.Urgency)
	if err != nil {
		return domain.Campaign{}, err
	}

	campaign := domain.Campaign{
		BloodType:    strings.TrimSpace(req.BloodType),
		UnitsNeeded:  req.UnitsNeeded,
		Urgency:      urgency,
		Instructions: strings.TrimSpace(req.Instructions),
		NeededBy:     req.NeededBy,
		Facility: domain.Facility{
			ID:        strings.TrimSpace(req.Facility.ID),
			Name:      strings.TrimSpace(req.Facility.Name),
			Contact:   strings.TrimSpace(req.Facility.Contact),
			Latitude:  req.Facility.Latitude,
			Longitude: req.Facility.Longitude,
		},
	}
	if req.Patient != nil {
		campaign.Patient = &domain.Patient{
			Age:       req.Patient.Age,
			Condition: strings.TrimSpace(req.Patient.Condition),
		}
	}

	return campaign, nil
}

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.Context()
	if correlationID := requestCorrelationID(c); correlationID != "" {
		return observability.WithCorrelationID(ctx, correlationID)
	}
	return ctx
}

func requestCorrelationID(c *fiber.Ctx) string {
	if value := strings.TrimSpace(c.Get(fiber.HeaderXRequestID)); value != "" {
		return value
	}
	if value, ok := c.Locals("requestid").(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func toCampaignResponse(c domain.Campaign) campaignResponse {
	responses := make([]responseItem, 0, len(c.Responses))
	for _, r := range c.Responses {
		responses = append(responses, responseItem{
			RecipientID:      r.RecipientID,
			Decision:         r.Decision.String(),
			Reason:           r.Reason,
			EstimatedArrival: r.EstimatedArrival,
			RespondedAt:      r.RespondedAt,
			LatencyMillis:    r.Latency.Milliseconds(),
		})
	}

	slots := make([]slotItem, 0, len(c.Slots))
	for _, s := range c.Slots {
		slots = append(slots, slotItem{
			RecipientID: s.RecipientID,
			StartsAt:    s.StartsAt,
			EndsAt:      s.EndsAt,
		})
	}

	selected := c.SelectedRecipients
	if selected == nil {
		selected = []string{}
	}

	return campaignResponse{
		ID:                 c.ID,
		BloodType:          c.BloodType,
		UnitsNeeded:        c.UnitsNeeded,
		Urgency:            c.Urgency.String(),
		PriorityScore:      c.PriorityScore,
		SearchRadiusMeters: c.SearchRadius,
		Status:             c.Status.String(),
		CloseReason:        c.CloseReason,
		Instructions:       c.Instructions,
		NeededBy:           c.NeededBy,
		NotifiedCount:      len(c.NotifiedIDs),
		Responses:          responses,
		SelectedRecipients: selected,
		Slots:              slots,
		MatchedAt:          c.MatchedAt,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		ClosedAt:           c.ClosedAt,
	}
}
