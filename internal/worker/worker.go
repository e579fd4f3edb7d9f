// Package worker runs the delivery worker pool consuming dispatch jobs from
// the urgency queues.
package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AkashMedishetty/bloodalert/internal/channel"
	"github.com/AkashMedishetty/bloodalert/internal/dispatch"
	"github.com/AkashMedishetty/bloodalert/internal/domain"
	"github.com/AkashMedishetty/bloodalert/internal/observability"
	"github.com/AkashMedishetty/bloodalert/internal/queue"
)

const minConcurrency = 1

// Deliverer runs one synchronous dispatch pass for a recipient.
type Deliverer interface {
	Dispatch(ctx context.Context, campaignID string, recipient domain.Recipient, payload channel.Payload, channelOrder []domain.Channel) (*dispatch.Outcome, error)
}

// StatusFunc reports the campaign's current status so stale jobs are acked
// without delivery.
type StatusFunc func(campaignID string) (domain.Status, error)

type Service struct {
	consumer    queue.Consumer
	deliverer   Deliverer
	status      StatusFunc
	logger      *zap.Logger
	concurrency int
}

func NewService(consumer queue.Consumer, deliverer Deliverer, status StatusFunc, concurrency int, logger *zap.Logger) (*Service, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if deliverer == nil {
		return nil, fmt.Errorf("deliverer is required")
	}
	if concurrency < minConcurrency {
		concurrency = minConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		consumer:    consumer,
		deliverer:   deliverer,
		status:      status,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

// Start consumes the urgency queues and processes dispatch messages until
// context cancellation. Workers are assigned round-robin over the queues,
// most urgent first, so the critical queue always has coverage.
func (s *Service) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	queueNames := queue.WorkQueueNames()
	if len(queueNames) == 0 {
		return fmt.Errorf("no work queues configured")
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		queueName := queueNames[i%len(queueNames)]
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)

			err := s.consumer.Consume(groupCtx, queueName, s.processMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.String("queue", queueName),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("worker stopped",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)
			return nil
		})
	}

	return g.Wait()
}

// processMessage delivers one dispatch job. A nil return acks the message: a
// delivery that exhausted all channels is still acked because the retry queue
// owns it from there.
func (s *Service) processMessage(ctx context.Context, msg queue.DispatchMessage) error {
	if s.status != nil {
		status, err := s.status(msg.CampaignID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.logger.Warn("campaign not found, skipping dispatch",
					zap.String("campaignId", msg.CampaignID),
					zap.String("recipientId", msg.Recipient.ID),
				)
				return nil
			}
			return fmt.Errorf("failed to check campaign status: %w", err)
		}
		if status.IsTerminal() {
			s.logger.Info("campaign closed, skipping dispatch",
				zap.String("campaignId", msg.CampaignID),
				zap.String("recipientId", msg.Recipient.ID),
			)
			return nil
		}
	}

	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	}
	ctx = observability.WithCampaignID(ctx, msg.CampaignID)

	order := dispatch.Order(msg.Recipient.PreferredChannels, msg.Urgency)
	outcome, err := s.deliverer.Dispatch(ctx, msg.CampaignID, msg.Recipient, msg.Payload, order)
	if err != nil {
		return fmt.Errorf("dispatch failed: %w", err)
	}

	if !outcome.Delivered {
		s.logger.Warn("synchronous dispatch exhausted all channels",
			zap.String("campaignId", msg.CampaignID),
			zap.String("recipientId", msg.Recipient.ID),
		)
	}
	return nil
}
