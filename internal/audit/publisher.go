package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plixa/plixa/internal/metrics"
)

const (
	// StreamKey is the Redis stream for payment events.
	StreamKey = "stream:payment_events"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:payment_events:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout is the max time to wait for Redis publish.
	PublishTimeout = 100 * time.Millisecond
)

// Publisher enqueues payment events to the Redis stream.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new audit event publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "audit.publisher"),
		metrics: recorder,
	}
}

// Publish adds a payment event to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, event EventPayload) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	result, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true, // ~MAXLEN for performance
		ID:     "*",  // Auto-generate ID
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()

	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// PublishAsync publishes without blocking the caller.
// Errors are logged but not returned (fire-and-forget).
func (p *Publisher) PublishAsync(event EventPayload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), PublishTimeout)
		defer cancel()

		streamID, err := p.Publish(ctx, event)
		if err != nil {
			p.logger.Warn("failed to publish payment event",
				"type", event.Type,
				"reference", event.Reference,
				"error", err,
			)
			p.metrics.IncAuditEventPublished("dropped")
			return
		}

		p.logger.Debug("payment event published",
			"type", event.Type,
			"stream_id", streamID,
		)
		p.metrics.IncAuditEventPublished("success")
	}()
}
