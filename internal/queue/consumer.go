package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

const consumerPrefetch = 8

// RabbitMQConsumer consumes dispatch messages from a work queue.
type RabbitMQConsumer struct {
	rabbit *RabbitMQ
	logger *zap.Logger
}

func NewRabbitMQConsumer(rabbit *RabbitMQ, logger *zap.Logger) (*RabbitMQConsumer, error) {
	if rabbit == nil {
		return nil, fmt.Errorf("rabbitmq client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RabbitMQConsumer{rabbit: rabbit, logger: logger}, nil
}

// Consume blocks delivering messages from the queue to the handler until the
// context is canceled or the channel closes. A handler error nacks without
// requeue so the message dead-letters.
func (c *RabbitMQConsumer) Consume(ctx context.Context, queue string, handler MessageHandler) error {
	ch, err := c.rabbit.channel(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos on %q: %w", queue, err)
	}

	deliveries, err := ch.Consume(
		queue,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to consume from %q: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %q closed", queue)
			}

			var msg DispatchMessage
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				c.logger.Error("failed to unmarshal dispatch message",
					zap.String("queue", queue),
					zap.Error(err),
				)
				_ = delivery.Reject(false)
				continue
			}

			if err := msg.Validate(); err != nil {
				c.logger.Error("invalid dispatch message",
					zap.String("queue", queue),
					zap.Error(err),
				)
				_ = delivery.Reject(false)
				continue
			}

			if err := handler(ctx, msg); err != nil {
				c.logger.Warn("dispatch handler failed",
					zap.String("queue", queue),
					zap.String("campaignId", msg.CampaignID),
					zap.Error(err),
				)
				_ = delivery.Nack(false, false)
				continue
			}

			_ = delivery.Ack(false)
		}
	}
}

func (c *RabbitMQConsumer) Close() error {
	return nil
}
