// Package dispatch tries an ordered channel list per recipient until one
// delivery succeeds.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AkashMedishetty/bloodalert/internal/channel"
	"github.com/AkashMedishetty/bloodalert/internal/domain"
	"github.com/AkashMedishetty/bloodalert/internal/observability"
	"github.com/AkashMedishetty/bloodalert/internal/ratelimit"
	"github.com/AkashMedishetty/bloodalert/internal/retry"
)

// DefaultOrder is the fallback sequence tried when a recipient has no
// channel preference.
var DefaultOrder = []domain.Channel{
	domain.ChannelPush,
	domain.ChannelWhatsApp,
	domain.ChannelSMS,
	domain.ChannelEmail,
}

// AttemptRecorder appends a DeliveryAttempt to campaign state (and, where
// wired, to the audit sink).
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, campaignID string, attempt domain.DeliveryAttempt) error
}

// RetryEnqueuer receives tasks whose synchronous dispatch exhausted every
// channel.
type RetryEnqueuer interface {
	Enqueue(task retry.Task)
}

// Outcome reports the result of one dispatch pass over the channel list.
type Outcome struct {
	Delivered bool
	Channel   domain.Channel
	Attempts  []domain.DeliveryAttempt
}

type Dispatcher struct {
	adapters map[domain.Channel]channel.Adapter
	attempts AttemptRecorder
	limiter  ratelimit.RateLimiter
	retries  RetryEnqueuer
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
}

func NewDispatcher(
	adapters []channel.Adapter,
	attempts AttemptRecorder,
	limiter ratelimit.RateLimiter,
	retries RetryEnqueuer,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if len(adapters) == 0 {
		return nil, fmt.Errorf("at least one channel adapter is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt recorder is required")
	}
	if limiter == nil {
		limiter = ratelimit.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	byChannel := make(map[domain.Channel]channel.Adapter, len(adapters))
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		byChannel[adapter.Channel()] = adapter
	}

	return &Dispatcher{
		adapters: byChannel,
		attempts: attempts,
		limiter:  limiter,
		retries:  retries,
		logger:   logger,
		now:      time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Order builds the channel sequence for a recipient: the recipient's
// preference first, then the default order. Critical urgency promotes
// WhatsApp to the front.
func Order(preferred []domain.Channel, urgency domain.Urgency) []domain.Channel {
	order := make([]domain.Channel, 0, len(DefaultOrder))
	seen := make(map[domain.Channel]struct{}, len(DefaultOrder))

	appendChannel := func(ch domain.Channel) {
		if !ch.IsValid() {
			return
		}
		if _, ok := seen[ch]; ok {
			return
		}
		seen[ch] = struct{}{}
		order = append(order, ch)
	}

	if urgency == domain.UrgencyCritical {
		appendChannel(domain.ChannelWhatsApp)
	}
	for _, ch := range preferred {
		appendChannel(ch)
	}
	for _, ch := range DefaultOrder {
		appendChannel(ch)
	}

	return order
}

// Dispatch runs one pass over the channel order. Every channel is tried at
// most once; when all fail the (recipient, payload, channels) triple is
// handed to the retry queue and the outcome reports no delivery.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	campaignID string,
	recipient domain.Recipient,
	payload channel.Payload,
	channelOrder []domain.Channel,
) (*Outcome, error) {
	outcome, err := d.run(ctx, campaignID, recipient, payload, channelOrder)
	if err != nil {
		return nil, err
	}

	if !outcome.Delivered && d.retries != nil {
		d.retries.Enqueue(retry.Task{
			CampaignID: campaignID,
			Recipient:  recipient,
			Payload:    payload,
			Channels:   channelOrder,
		})
	}

	return outcome, nil
}

// Redeliver is the retry queue's entry point: one pass over the task's
// channel list, no re-enqueue. Returns an error when every channel failed so
// the queue can apply backoff.
func (d *Dispatcher) Redeliver(ctx context.Context, task retry.Task) error {
	outcome, err := d.run(ctx, task.CampaignID, task.Recipient, task.Payload, task.Channels)
	if err != nil {
		return err
	}
	if !outcome.Delivered {
		return fmt.Errorf("all channels failed for recipient %s", task.Recipient.ID)
	}
	return nil
}

func (d *Dispatcher) run(
	ctx context.Context,
	campaignID string,
	recipient domain.Recipient,
	payload channel.Payload,
	channelOrder []domain.Channel,
) (*Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(channelOrder) == 0 {
		channelOrder = Order(recipient.PreferredChannels, "")
	}

	outcome := &Outcome{}

	for i, ch := range channelOrder {
		channelName := strings.ToLower(ch.String())

		adapter, ok := d.adapters[ch]
		if !ok {
			outcome.Attempts = append(outcome.Attempts, d.recordAttempt(
				ctx, campaignID, recipient.ID, ch, i+1, "no adapter configured",
			))
			continue
		}

		if err := d.limiter.Wait(ctx, channelName); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		sendStart := d.now()
		_, sendErr := adapter.Send(ctx, recipient, payload)
		d.metrics.ObserveDeliveryDuration(channelName, d.now().Sub(sendStart))

		if sendErr != nil {
			reason := "gateway_error"
			if !channel.IsTransient(sendErr) {
				reason = "permanent_error"
			}
			d.metrics.IncDeliveryFailed(channelName, reason)
			outcome.Attempts = append(outcome.Attempts, d.recordAttempt(
				ctx, campaignID, recipient.ID, ch, i+1, sendErr.Error(),
			))
			continue
		}

		d.metrics.IncDeliverySent(channelName)
		outcome.Attempts = append(outcome.Attempts, d.recordAttempt(
			ctx, campaignID, recipient.ID, ch, i+1, "",
		))
		outcome.Delivered = true
		outcome.Channel = ch
		return outcome, nil
	}

	d.logger.Warn("all channels failed",
		zap.String("campaignId", campaignID),
		zap.String("recipientId", recipient.ID),
		zap.Int("channelsTried", len(outcome.Attempts)),
	)

	return outcome, nil
}

func (d *Dispatcher) recordAttempt(
	ctx context.Context,
	campaignID string,
	recipientID string,
	ch domain.Channel,
	attemptNumber int,
	failure string,
) domain.DeliveryAttempt {
	attempt := domain.DeliveryAttempt{
		RecipientID:   recipientID,
		Channel:       ch,
		AttemptNumber: attemptNumber,
		Outcome:       domain.AttemptSent,
		At:            d.now().UTC(),
	}
	if failure != "" {
		attempt.Outcome = domain.AttemptFailed
		attempt.Error = failure
	}

	if err := d.attempts.RecordAttempt(ctx, campaignID, attempt); err != nil {
		d.logger.Error("failed to record delivery attempt",
			zap.String("campaignId", campaignID),
			zap.String("recipientId", recipientID),
			zap.String("channel", ch.String()),
			zap.Error(err),
		)
	}

	return attempt
}
