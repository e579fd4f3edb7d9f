// Package retry replays failed dispatches on a bounded backoff schedule.
// The queue is in-memory: a crash loses pending retries.
package retry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AkashMedishetty/bloodalert/internal/channel"
	"github.com/AkashMedishetty/bloodalert/internal/domain"
	"github.com/AkashMedishetty/bloodalert/internal/observability"
)

const (
	defaultScanInterval = 30 * time.Second
	defaultBaseDelay    = time.Second
	defaultMaxRetries   = 3
	maxRetryDelay       = 60 * time.Second
)

// Task is one queued redelivery for a recipient whose synchronous dispatch
// exhausted every channel.
type Task struct {
	CampaignID string
	Recipient  domain.Recipient
	Payload    channel.Payload
	Channels   []domain.Channel
	// Attempts counts completed redelivery attempts, not the original
	// synchronous dispatch.
	Attempts int
	NextAt   time.Time
}

// RedeliverFunc retries the channel list once for a task. It must not
// re-enqueue on failure; the queue owns rescheduling.
type RedeliverFunc func(ctx context.Context, task Task) error

// StatusFunc reports the current campaign status so stale tasks for closed
// campaigns are dropped instead of delivered.
type StatusFunc func(campaignID string) (domain.Status, error)

// ExhaustedFunc observes tasks discarded after maxRetries failures.
type ExhaustedFunc func(task Task)

type Queue struct {
	redeliver   RedeliverFunc
	status      StatusFunc
	onExhausted ExhaustedFunc
	logger      *zap.Logger
	metrics     *observability.Metrics

	interval        time.Duration
	baseDelay       time.Duration
	maxRetries      int
	backoffDisabled bool
	now             func() time.Time

	mu    sync.Mutex
	tasks []*Task
}

// Option tweaks queue behavior.
type Option func(*Queue)

func WithInterval(interval time.Duration) Option {
	return func(q *Queue) {
		if interval > 0 {
			q.interval = interval
		}
	}
}

func WithBaseDelay(delay time.Duration) Option {
	return func(q *Queue) {
		if delay > 0 {
			q.baseDelay = delay
		}
	}
}

func WithMaxRetries(maxRetries int) Option {
	return func(q *Queue) {
		if maxRetries > 0 {
			q.maxRetries = maxRetries
		}
	}
}

// WithConstantBackoff disables exponential growth; every retry waits the base
// delay.
func WithConstantBackoff() Option {
	return func(q *Queue) {
		q.backoffDisabled = true
	}
}

func WithExhaustedFunc(fn ExhaustedFunc) Option {
	return func(q *Queue) {
		q.onExhausted = fn
	}
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(q *Queue) {
		q.metrics = metrics
	}
}

func NewQueue(redeliver RedeliverFunc, status StatusFunc, logger *zap.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}

	q := &Queue{
		redeliver:  redeliver,
		status:     status,
		logger:     logger,
		interval:   defaultScanInterval,
		baseDelay:  defaultBaseDelay,
		maxRetries: defaultMaxRetries,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Enqueue schedules the first redelivery attempt for a task.
func (q *Queue) Enqueue(task Task) {
	task.Attempts = 0
	task.NextAt = q.now().Add(q.delayFor(1))

	q.mu.Lock()
	q.tasks = append(q.tasks, &task)
	q.mu.Unlock()

	q.metrics.IncRetryScheduled()
	q.logger.Info("retry scheduled",
		zap.String("campaignId", task.CampaignID),
		zap.String("recipientId", task.Recipient.ID),
		zap.Time("nextAt", task.NextAt),
	)
}

// Len reports the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Start scans for due tasks until context cancellation.
func (q *Queue) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			q.ScanDue(ctx)
		}
	}
}

// ScanDue processes every task whose next-eligible time has passed. Exported
// so tests and tick drivers can run a scan deterministically.
func (q *Queue) ScanDue(ctx context.Context) {
	now := q.now()

	q.mu.Lock()
	due := make([]*Task, 0)
	remaining := q.tasks[:0]
	for _, task := range q.tasks {
		if !task.NextAt.After(now) {
			due = append(due, task)
			continue
		}
		remaining = append(remaining, task)
	}
	q.tasks = remaining
	q.mu.Unlock()

	for _, task := range due {
		if ctx.Err() != nil {
			// Shutdown mid-scan; remaining due tasks are dropped.
			return
		}
		q.process(ctx, task)
	}
}

func (q *Queue) process(ctx context.Context, task *Task) {
	if q.status != nil {
		status, err := q.status(task.CampaignID)
		if err != nil || status.IsTerminal() {
			q.logger.Info("dropping stale retry task",
				zap.String("campaignId", task.CampaignID),
				zap.String("recipientId", task.Recipient.ID),
			)
			return
		}
	}

	err := q.redeliver(ctx, *task)
	if err == nil {
		q.logger.Info("retry delivered",
			zap.String("campaignId", task.CampaignID),
			zap.String("recipientId", task.Recipient.ID),
			zap.Int("attempt", task.Attempts+1),
		)
		return
	}

	task.Attempts++
	if task.Attempts >= q.maxRetries {
		q.metrics.IncRetryExhausted()
		q.logger.Warn("retry exhausted",
			zap.String("campaignId", task.CampaignID),
			zap.String("recipientId", task.Recipient.ID),
			zap.Int("attempts", task.Attempts),
			zap.Error(err),
		)
		if q.onExhausted != nil {
			q.onExhausted(*task)
		}
		return
	}

	task.NextAt = q.now().Add(q.delayFor(task.Attempts + 1))
	q.logger.Info("retry rescheduled",
		zap.String("campaignId", task.CampaignID),
		zap.String("recipientId", task.Recipient.ID),
		zap.Int("attempts", task.Attempts),
		zap.Time("nextAt", task.NextAt),
		zap.Error(err),
	)

	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
}

// delayFor returns the wait before the given attempt number (1-based):
// baseDelay * 2^(attempt-1), capped, or a constant baseDelay when exponential
// backoff is disabled.
func (q *Queue) delayFor(attempt int) time.Duration {
	if q.backoffDisabled || attempt <= 1 {
		return q.baseDelay
	}

	delay := q.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}
