package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQPublisher publishes dispatch messages over a shared connection.
type RabbitMQPublisher struct {
	rabbit *RabbitMQ
}

func NewRabbitMQPublisher(rabbit *RabbitMQ) (*RabbitMQPublisher, error) {
	if rabbit == nil {
		return nil, fmt.Errorf("rabbitmq client is required")
	}
	return &RabbitMQPublisher{rabbit: rabbit}, nil
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, queue string, msg DispatchMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid dispatch message: %w", err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch message: %w", err)
	}

	ch, err := p.rabbit.channel(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	err = ch.PublishWithContext(
		ctx,
		"",
		queue,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			Priority:      PriorityValue(msg.PriorityScore),
			CorrelationId: msg.CorrelationID,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %q: %w", queue, err)
	}

	return nil
}

func (p *RabbitMQPublisher) Close() error {
	return nil
}
