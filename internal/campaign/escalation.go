package campaign

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
	"github.com/AkashMedishetty/bloodalert/internal/facility"
	"github.com/AkashMedishetty/bloodalert/internal/finder"
	"github.com/AkashMedishetty/bloodalert/internal/observability"
	"github.com/AkashMedishetty/bloodalert/internal/queue"
)

const (
	escalationBonus     = 25
	radiusGrowthFactor  = 1.5
	highPriorityCheckAt = 15 * time.Minute
	midPriorityCheckAt  = 30 * time.Minute

	// Priority thresholds driving escalation checks and initial radius tiers.
	highPriorityThreshold = 150
	midPriorityThreshold  = 100

	escalateTimeout = 30 * time.Second
)

// Escalator widens a stalled campaign: priority bump, radius growth, and a
// fresh dispatch wave to donors not yet contacted. All timers it arms are
// cancellable per campaign so closure stops pending escalations.
type Escalator struct {
	store     *Store
	donors    finder.Finder
	publisher queue.Publisher
	contacts  facility.ContactSink
	logger    *zap.Logger
	metrics   *observability.Metrics

	now       func() time.Time
	afterFunc func(d time.Duration, fn func()) *time.Timer

	mu     sync.Mutex
	timers map[string][]*time.Timer
}

func NewEscalator(store *Store, donors finder.Finder, publisher queue.Publisher, contacts facility.ContactSink, logger *zap.Logger) (*Escalator, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if contacts == nil {
		contacts = facility.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Escalator{
		store:     store,
		donors:    donors,
		publisher: publisher,
		contacts:  contacts,
		logger:    logger,
		now:       time.Now,
		afterFunc: time.AfterFunc,
		timers:    make(map[string][]*time.Timer),
	}, nil
}

func (e *Escalator) SetMetrics(metrics *observability.Metrics) {
	e.metrics = metrics
}

// Schedule arms a cancellable timer tied to the campaign.
func (e *Escalator) Schedule(campaignID string, delay time.Duration, fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.timers == nil {
		e.timers = make(map[string][]*time.Timer)
	}
	timer := e.afterFunc(delay, fn)
	e.timers[campaignID] = append(e.timers[campaignID], timer)
}

// ScheduleChecksFor arms the no-traction check appropriate for the campaign's
// priority: high-priority campaigns escalate after 15 minutes with zero
// responses, mid-priority after 30 minutes with zero accepts. Lower scores
// get no automatic escalation.
func (e *Escalator) ScheduleChecksFor(c domain.Campaign) {
	switch {
	case c.PriorityScore >= highPriorityThreshold:
		id := c.ID
		e.Schedule(id, highPriorityCheckAt, func() {
			e.checkAndEscalate(id, "no responses", func(c *domain.Campaign) bool {
				return len(c.Responses) == 0
			})
		})
	case c.PriorityScore >= midPriorityThreshold:
		id := c.ID
		e.Schedule(id, midPriorityCheckAt, func() {
			e.checkAndEscalate(id, "no accepts", func(c *domain.Campaign) bool {
				return len(c.AcceptedRecipients()) == 0
			})
		})
	}
}

// Cancel stops every pending timer for the campaign. Timers that already
// fired are harmless: escalation re-checks status under the campaign lock.
func (e *Escalator) Cancel(campaignID string) {
	e.mu.Lock()
	timers := e.timers[campaignID]
	delete(e.timers, campaignID)
	e.mu.Unlock()

	for _, timer := range timers {
		timer.Stop()
	}
}

func (e *Escalator) checkAndEscalate(campaignID, trigger string, stalled func(c *domain.Campaign) bool) {
	ctx, cancel := context.WithTimeout(context.Background(), escalateTimeout)
	defer cancel()

	err := e.escalate(ctx, campaignID, trigger, stalled)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrClosed), errors.Is(err, domain.ErrConflict):
		e.logger.Debug("scheduled escalation skipped",
			zap.String("campaignId", campaignID),
			zap.String("trigger", trigger),
			zap.Error(err),
		)
	default:
		e.logger.Warn("scheduled escalation failed",
			zap.String("campaignId", campaignID),
			zap.String("trigger", trigger),
			zap.Error(err),
		)
	}
}

// Escalate bumps the campaign's priority and radius, then notifies donors in
// the widened area who were not contacted before. Concurrent escalations for
// one campaign collapse to a single pass: the status flip to ESCALATED under
// the campaign lock acts as the guard.
func (e *Escalator) Escalate(ctx context.Context, campaignID, trigger string) error {
	return e.escalate(ctx, campaignID, trigger, nil)
}

// escalate evaluates the optional stalled predicate inside the same locked
// section that flips the status, so a response recorded while the check timer
// was firing vetoes the escalation.
func (e *Escalator) escalate(ctx context.Context, campaignID, trigger string, stalled func(c *domain.Campaign) bool) error {
	var snapshot domain.Campaign
	err := e.store.Update(campaignID, func(c *domain.Campaign) error {
		if c.Status.IsTerminal() {
			return fmt.Errorf("%w: campaign %q is closed", domain.ErrClosed, campaignID)
		}
		if c.Status != domain.StatusActive {
			return fmt.Errorf("%w: campaign %q is not eligible for escalation", domain.ErrConflict, campaignID)
		}
		if stalled != nil && !stalled(c) {
			return fmt.Errorf("%w: campaign %q regained traction", domain.ErrConflict, campaignID)
		}

		c.PriorityScore = domain.ClampPriority(c.PriorityScore + escalationBonus)
		c.SearchRadius *= radiusGrowthFactor
		c.Status = domain.StatusEscalated
		c.UpdatedAt = e.now()
		snapshot = c.Clone()
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("campaign escalated",
		zap.String("campaignId", campaignID),
		zap.String("trigger", trigger),
		zap.Int("priorityScore", snapshot.PriorityScore),
		zap.Float64("radiusMeters", snapshot.SearchRadius),
	)

	candidates := e.findNewCandidates(ctx, snapshot)
	published := publishWave(ctx, e.publisher, snapshot, candidates, e.logger)

	err = e.store.Update(campaignID, func(c *domain.Campaign) error {
		for _, id := range published {
			c.NotifiedIDs[id] = struct{}{}
		}
		if c.Status == domain.StatusEscalated {
			c.Status = domain.StatusActive
		}
		c.UpdatedAt = e.now()
		return nil
	})
	if err != nil {
		return err
	}

	e.contacts.BroadcastEscalation(ctx, campaignID, snapshot.Facility, snapshot.PriorityScore, snapshot.SearchRadius)
	e.metrics.IncEscalation()
	e.ScheduleChecksFor(snapshot)

	return nil
}

func (e *Escalator) findNewCandidates(ctx context.Context, c domain.Campaign) []domain.Recipient {
	if e.donors == nil {
		return nil
	}

	exclude := make([]string, 0, len(c.NotifiedIDs))
	for id := range c.NotifiedIDs {
		exclude = append(exclude, id)
	}

	location := finder.Location{Latitude: c.Facility.Latitude, Longitude: c.Facility.Longitude}
	candidates, err := e.donors.Find(ctx, c.BloodType, location, c.SearchRadius, exclude)
	if err != nil {
		e.logger.Warn("donor search failed during escalation",
			zap.String("campaignId", c.ID),
			zap.Error(err),
		)
		return nil
	}
	return candidates
}
