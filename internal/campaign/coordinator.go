package campaign

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AkashMedishetty/bloodalert/internal/audit"
	"github.com/AkashMedishetty/bloodalert/internal/channel"
	"github.com/AkashMedishetty/bloodalert/internal/domain"
	"github.com/AkashMedishetty/bloodalert/internal/facility"
	"github.com/AkashMedishetty/bloodalert/internal/finder"
	"github.com/AkashMedishetty/bloodalert/internal/observability"
	"github.com/AkashMedishetty/bloodalert/internal/queue"
	"github.com/AkashMedishetty/bloodalert/internal/scoring"
)

const (
	wideRadiusMeters   = 15000
	mediumRadiusMeters = 10000
	narrowRadiusMeters = 5000

	// declineFanoutThreshold is the response count after which a campaign with
	// zero accepts widens its search immediately instead of waiting for the
	// scheduled check.
	declineFanoutThreshold = 10

	slotStartOffset = time.Hour
	slotSpacing     = 45 * time.Minute
)

// Coordinator drives the campaign lifecycle end to end: scoring, the initial
// dispatch wave, response handling, matching, and closure.
type Coordinator struct {
	store     *Store
	donors    finder.Finder
	publisher queue.Publisher
	contacts  facility.ContactSink
	audit     audit.Sink
	escalator *Escalator
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewCoordinator(
	store *Store,
	donors finder.Finder,
	publisher queue.Publisher,
	contacts facility.ContactSink,
	auditSink audit.Sink,
	escalator *Escalator,
	logger *zap.Logger,
) (*Coordinator, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if escalator == nil {
		return nil, fmt.Errorf("escalator is required")
	}
	if contacts == nil {
		contacts = facility.Nop{}
	}
	if auditSink == nil {
		auditSink = audit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Coordinator{
		store:     store,
		donors:    donors,
		publisher: publisher,
		contacts:  contacts,
		audit:     auditSink,
		escalator: escalator,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (co *Coordinator) SetMetrics(metrics *observability.Metrics) {
	co.metrics = metrics
}

// CreateCampaign validates and scores the request, launches the initial
// dispatch wave, and arms escalation and expiry timers. A finder outage
// degrades to an empty wave rather than failing creation; escalation checks
// pick the campaign up later.
func (co *Coordinator) CreateCampaign(ctx context.Context, req domain.Campaign) (domain.Campaign, error) {
	req.BloodType = strings.ToUpper(strings.TrimSpace(req.BloodType))
	if err := req.Validate(); err != nil {
		return domain.Campaign{}, err
	}

	now := co.now().UTC()

	var patientAge *int
	if req.Patient != nil {
		age := req.Patient.Age
		patientAge = &age
	}

	c := req
	c.ID = uuid.NewString()
	c.PriorityScore = scoring.Score(scoring.Request{
		Urgency:    req.Urgency,
		BloodType:  req.BloodType,
		PatientAge: patientAge,
		NeededBy:   req.NeededBy,
	}, now)
	c.SearchRadius = initialRadius(c.PriorityScore)
	c.Status = domain.StatusActive
	c.NotifiedIDs = make(map[string]struct{})
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := co.store.Put(&c); err != nil {
		return domain.Campaign{}, err
	}
	co.metrics.IncCampaignsActive()

	co.logger.Info("campaign created",
		zap.String("campaignId", c.ID),
		zap.String("bloodType", c.BloodType),
		zap.String("urgency", c.Urgency.String()),
		zap.Int("priorityScore", c.PriorityScore),
		zap.Float64("radiusMeters", c.SearchRadius),
	)

	candidates := co.findCandidates(ctx, c)
	published := publishWave(ctx, co.publisher, c, candidates, co.logger)

	err := co.store.Update(c.ID, func(live *domain.Campaign) error {
		for _, id := range published {
			live.NotifiedIDs[id] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return domain.Campaign{}, err
	}

	co.escalator.ScheduleChecksFor(c)
	co.scheduleExpiry(c)

	return co.store.Get(c.ID)
}

// GetCampaign returns a point-in-time copy of the campaign.
func (co *Coordinator) GetCampaign(id string) (domain.Campaign, error) {
	return co.store.Get(id)
}

// ListCampaigns returns copies of every campaign held in memory.
func (co *Coordinator) ListCampaigns() []domain.Campaign {
	return co.store.List()
}

// RecordResponse records a recipient's decision. A repeat of the same
// decision is rejected as a conflict; a changed decision replaces the earlier
// one in place. Enough accepts move the campaign to COORDINATING and assign
// donation slots; a decline wave with zero accepts triggers an immediate
// escalation.
func (co *Coordinator) RecordResponse(ctx context.Context, campaignID string, resp domain.Response) (domain.Campaign, error) {
	if strings.TrimSpace(resp.RecipientID) == "" {
		return domain.Campaign{}, fmt.Errorf("%w: recipient id is required", domain.ErrValidation)
	}
	if !resp.Decision.IsValid() {
		return domain.Campaign{}, fmt.Errorf("%w: invalid decision %q", domain.ErrValidation, resp.Decision)
	}

	now := co.now().UTC()
	var (
		snapshot     domain.Campaign
		matched      bool
		needsFanout  bool
		acceptedSlot bool
	)

	err := co.store.Update(campaignID, func(c *domain.Campaign) error {
		if c.Status.IsTerminal() {
			return fmt.Errorf("%w: campaign %q no longer accepts responses", domain.ErrClosed, campaignID)
		}

		resp.RespondedAt = now
		resp.Latency = now.Sub(c.CreatedAt)

		if i := c.ResponseFor(resp.RecipientID); i >= 0 {
			if c.Responses[i].Decision == resp.Decision {
				return fmt.Errorf("%w: recipient %q already responded %s", domain.ErrConflict, resp.RecipientID, resp.Decision)
			}
			c.Responses[i] = resp
			// A withdrawal clears the selection only while the campaign is
			// still filling; once slots are announced the schedule stands.
			if resp.Decision == domain.DecisionDecline && c.Status == domain.StatusActive {
				c.SelectedRecipients = removeID(c.SelectedRecipients, resp.RecipientID)
			}
		} else {
			c.Responses = append(c.Responses, resp)
		}

		if resp.Decision == domain.DecisionAccept {
			if len(c.SelectedRecipients) < c.UnitsNeeded && !containsID(c.SelectedRecipients, resp.RecipientID) {
				c.SelectedRecipients = append(c.SelectedRecipients, resp.RecipientID)
				acceptedSlot = true
			}

			if len(c.AcceptedRecipients()) >= c.UnitsNeeded && c.Status != domain.StatusCoordinating {
				c.Status = domain.StatusCoordinating
				matchedAt := now
				c.MatchedAt = &matchedAt
				c.Slots = assignSlots(c, now)
				matched = true
			}
		}

		if resp.Decision == domain.DecisionDecline &&
			len(c.AcceptedRecipients()) == 0 &&
			len(c.Responses) >= declineFanoutThreshold {
			needsFanout = true
		}

		c.UpdatedAt = now
		snapshot = c.Clone()
		return nil
	})
	if err != nil {
		return domain.Campaign{}, err
	}

	co.metrics.IncResponse(resp.Decision.String())
	co.audit.RecordResponse(ctx, campaignID, resp)

	if acceptedSlot {
		co.contacts.NotifyAcceptance(ctx, campaignID, snapshot.Facility, resp.RecipientID, resp.EstimatedArrival)
	}
	if matched {
		co.escalator.Cancel(campaignID)
		co.contacts.NotifySchedule(ctx, campaignID, snapshot.Facility, snapshot.Slots)
		co.logger.Info("campaign matched",
			zap.String("campaignId", campaignID),
			zap.Int("unitsNeeded", snapshot.UnitsNeeded),
			zap.Int("slots", len(snapshot.Slots)),
		)
	}
	if needsFanout {
		if err := co.escalator.Escalate(ctx, campaignID, "decline threshold reached"); err != nil {
			// Conflict means another escalation pass already holds the
			// campaign; nothing to do.
			co.logger.Debug("decline-driven escalation skipped",
				zap.String("campaignId", campaignID),
				zap.Error(err),
			)
		}
	}

	return snapshot, nil
}

// CloseCampaign moves the campaign to a terminal status, cancels pending
// timers, and archives it. Closing an already closed campaign is a no-op.
func (co *Coordinator) CloseCampaign(ctx context.Context, campaignID string, status domain.Status, reason string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %q is not a terminal status", domain.ErrValidation, status)
	}

	now := co.now().UTC()
	alreadyClosed := false
	var snapshot domain.Campaign

	err := co.store.Update(campaignID, func(c *domain.Campaign) error {
		if c.Status.IsTerminal() {
			alreadyClosed = true
			return nil
		}
		c.Status = status
		c.CloseReason = reason
		c.ClosedAt = &now
		c.UpdatedAt = now
		snapshot = c.Clone()
		return nil
	})
	if err != nil {
		return err
	}
	if alreadyClosed {
		return nil
	}

	co.escalator.Cancel(campaignID)
	co.metrics.DecCampaignsActive()
	co.audit.ArchiveCampaign(ctx, snapshot)

	co.logger.Info("campaign closed",
		zap.String("campaignId", campaignID),
		zap.String("status", status.String()),
		zap.String("reason", reason),
	)
	return nil
}

// RecordAttempt appends a delivery attempt to campaign state. Attempts
// arriving after closure are dropped silently: late retry deliveries are
// expected and carry no further value.
func (co *Coordinator) RecordAttempt(ctx context.Context, campaignID string, attempt domain.DeliveryAttempt) error {
	err := co.store.Update(campaignID, func(c *domain.Campaign) error {
		if c.Status.IsTerminal() {
			return nil
		}
		c.DeliveryAttempts = append(c.DeliveryAttempts, attempt)
		c.UpdatedAt = co.now().UTC()
		return nil
	})
	if err != nil {
		return err
	}

	co.audit.RecordAttempt(ctx, campaignID, attempt)
	return nil
}

func (co *Coordinator) findCandidates(ctx context.Context, c domain.Campaign) []domain.Recipient {
	if co.donors == nil {
		return nil
	}

	location := finder.Location{Latitude: c.Facility.Latitude, Longitude: c.Facility.Longitude}
	candidates, err := co.donors.Find(ctx, c.BloodType, location, c.SearchRadius, nil)
	if err != nil {
		co.logger.Warn("donor search failed, campaign starts with empty wave",
			zap.String("campaignId", c.ID),
			zap.Error(err),
		)
		return nil
	}
	return candidates
}

func (co *Coordinator) scheduleExpiry(c domain.Campaign) {
	if c.NeededBy == nil {
		return
	}

	delay := c.NeededBy.Sub(co.now())
	if delay < 0 {
		delay = 0
	}

	id := c.ID
	co.escalator.Schedule(id, delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), escalateTimeout)
		defer cancel()

		if err := co.CloseCampaign(ctx, id, domain.StatusExpired, "needed-by deadline passed"); err != nil {
			co.logger.Warn("expiry close failed",
				zap.String("campaignId", id),
				zap.Error(err),
			)
		}
	})
}

// initialRadius picks the starting search radius tier from the priority
// score.
func initialRadius(priorityScore int) float64 {
	switch {
	case priorityScore >= highPriorityThreshold:
		return wideRadiusMeters
	case priorityScore >= midPriorityThreshold:
		return mediumRadiusMeters
	default:
		return narrowRadiusMeters
	}
}

// assignSlots gives each selected recipient a non-overlapping donation slot,
// fastest responder first, starting an hour out.
func assignSlots(c *domain.Campaign, now time.Time) []domain.SlotAssignment {
	order := c.AcceptedRecipients()
	if len(order) > c.UnitsNeeded {
		order = order[:c.UnitsNeeded]
	}

	slots := make([]domain.SlotAssignment, 0, len(order))
	start := now.Add(slotStartOffset)
	for _, recipientID := range order {
		slots = append(slots, domain.SlotAssignment{
			RecipientID: recipientID,
			StartsAt:    start,
			EndsAt:      start.Add(slotSpacing),
		})
		start = start.Add(slotSpacing)
	}
	return slots
}

// publishWave enqueues one dispatch message per candidate and returns the IDs
// actually published. Publish failures skip the candidate.
func publishWave(ctx context.Context, publisher queue.Publisher, c domain.Campaign, candidates []domain.Recipient, logger *zap.Logger) []string {
	if len(candidates) == 0 {
		return nil
	}

	queueName := queue.QueueName(c.Urgency)
	payload := notificationPayload(c)
	correlationID, _ := observability.CorrelationIDFromContext(ctx)

	published := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		msg := queue.DispatchMessage{
			CampaignID:    c.ID,
			CorrelationID: correlationID,
			Urgency:       c.Urgency,
			PriorityScore: c.PriorityScore,
			Recipient:     candidate,
			Payload:       payload,
		}
		if err := publisher.Publish(ctx, queueName, msg); err != nil {
			logger.Error("failed to publish dispatch message",
				zap.String("campaignId", c.ID),
				zap.String("recipientId", candidate.ID),
				zap.Error(err),
			)
			continue
		}
		published = append(published, candidate.ID)
	}

	logger.Info("dispatch wave published",
		zap.String("campaignId", c.ID),
		zap.String("queue", queueName),
		zap.Int("candidates", len(candidates)),
		zap.Int("published", len(published)),
	)
	return published
}

func notificationPayload(c domain.Campaign) channel.Payload {
	body := fmt.Sprintf("%s needs %d unit(s) of %s blood. Can you help?", c.Facility.Name, c.UnitsNeeded, c.BloodType)
	if strings.TrimSpace(c.Instructions) != "" {
		body = fmt.Sprintf("%s %s", body, strings.TrimSpace(c.Instructions))
	}

	return channel.Payload{
		CampaignID:   c.ID,
		Title:        fmt.Sprintf("%s blood needed urgently", c.BloodType),
		Body:         body,
		BloodType:    c.BloodType,
		FacilityName: c.Facility.Name,
	}
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
