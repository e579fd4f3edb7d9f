// Package queue carries dispatch jobs from the coordinator to the delivery
// worker pool.
package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/AkashMedishetty/bloodalert/internal/domain"
)

// Publisher publishes dispatch messages to a work queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg DispatchMessage) error
	Close() error
}

// MessageHandler handles a consumed dispatch message.
type MessageHandler func(ctx context.Context, msg DispatchMessage) error

// Consumer consumes dispatch messages from a work queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

var supportedUrgencies = []domain.Urgency{
	domain.UrgencyCritical,
	domain.UrgencyUrgent,
	domain.UrgencyNormal,
	domain.UrgencyScheduled,
}

const (
	// queueMaxPriority is the RabbitMQ x-max-priority value for work queues.
	queueMaxPriority int32 = 4
	// priorityBucket converts a campaign priority score to a broker priority.
	priorityBucket = 50
)

// QueueName returns the urgency work queue name, e.g. notify.critical.
func QueueName(urgency domain.Urgency) string {
	return fmt.Sprintf("notify.%s", strings.ToLower(urgency.String()))
}

// DLQName returns the dead-letter queue name for an urgency, e.g.
// dlq.notify.critical.
func DLQName(urgency domain.Urgency) string {
	return fmt.Sprintf("dlq.%s", QueueName(urgency))
}

// WorkQueueNames returns all urgency work queues (4 total), most urgent
// first so worker assignment favors them.
func WorkQueueNames() []string {
	queues := make([]string, 0, len(supportedUrgencies))
	for _, urgency := range supportedUrgencies {
		queues = append(queues, QueueName(urgency))
	}
	return queues
}

// DLQNames returns all dead-letter queues (4 total).
func DLQNames() []string {
	queues := make([]string, 0, len(supportedUrgencies))
	for _, urgency := range supportedUrgencies {
		queues = append(queues, DLQName(urgency))
	}
	return queues
}

// PriorityValue maps a campaign priority score to a RabbitMQ message
// priority so escalated campaigns jump their urgency queue.
func PriorityValue(priorityScore int) uint8 {
	if priorityScore <= 0 {
		return 0
	}
	bucket := priorityScore / priorityBucket
	if bucket > int(queueMaxPriority) {
		bucket = int(queueMaxPriority)
	}
	return uint8(bucket)
}
