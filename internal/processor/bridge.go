package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/merchflow/echeck-debit-gateway/internal/config"
	"github.com/merchflow/echeck-debit-gateway/internal/queue"
	"golang.org/x/sync/semaphore"
)

// Message header keys carried across redeliveries.
const (
	HeaderMessageID     = "message-id"
	HeaderRetryCount    = "retry-count"
	HeaderOriginalTopic = "original-topic"
	HeaderFailureReason = "failure-reason"
	HeaderProcessedAt   = "processed-at"
)

// MessageSource is the consuming side of the broker connection.
type MessageSource interface {
	Consume(ctx context.Context, topic string, handler queue.Handler) error
	Commit(delivery *queue.Delivery) error
}

// Publisher is the producing side of the broker connection.
type Publisher interface {
	PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error
}

// DeadLetterRecord is the JSON body published to the dead-letter topic. The
// original body is embedded verbatim as a string since it may not be JSON.
type DeadLetterRecord struct {
	MessageID      string      `json:"message_id"`
	CorrelationID  string      `json:"correlation_id"`
	OriginalTopic  string      `json:"original_topic"`
	FailureType    FailureType `json:"failure_type"`
	Reason         string      `json:"reason"`
	DeliveryCount  int         `json:"delivery_count"`
	DeadLetteredAt time.Time   `json:"dead_lettered_at"`
	Body           string      `json:"body"`
}

// Bridge connects the broker to the Processor and enacts its outcomes:
// commit on completion, republish with an incremented retry count on
// retryable failures, dead-letter on permanent failures or an exhausted
// delivery budget. A delivery is only committed after its follow-up message
// has been acknowledged by the broker, so a crash in between yields a
// redelivery, never a lost message.
type Bridge struct {
	consumer      MessageSource
	producer      Publisher
	processor     *Processor
	topic         string
	dlqTopic      string
	maxDeliveries int
	sem           *semaphore.Weighted
	logger        *slog.Logger
}

func NewBridge(consumer MessageSource, producer Publisher, processor *Processor, cfg config.QueueConfig, logger *slog.Logger) *Bridge {
	return &Bridge{
		consumer:      consumer,
		producer:      producer,
		processor:     processor,
		topic:         cfg.Topic,
		dlqTopic:      cfg.DLQTopic,
		maxDeliveries: cfg.MaxDeliveries,
		sem:           semaphore.NewWeighted(cfg.Concurrency),
		logger:        logger,
	}
}

// Run consumes the transactions topic until ctx is cancelled or the
// consumer is closed.
func (b *Bridge) Run(ctx context.Context) error {
	return b.consumer.Consume(ctx, b.topic, b.handleDelivery)
}

// handleDelivery processes one delivery under the concurrency budget. The
// semaphore bounds in-flight messages across partition claims; within a
// partition deliveries stay strictly ordered.
func (b *Bridge) handleDelivery(ctx context.Context, delivery *queue.Delivery) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire processing slot: %w", err)
	}
	defer b.sem.Release(1)

	result := b.processor.ProcessMessage(ctx, delivery.Value)

	logger := b.logger.With(
		"correlation_id", result.CorrelationID,
		"topic", delivery.Topic,
		"partition", delivery.Partition,
		"offset", delivery.Offset,
	)

	switch result.Outcome {
	case OutcomeCompleted:
		return b.commit(logger, delivery)

	case OutcomeRetryableFailure:
		attempt := deliveryCount(delivery) + 1
		if attempt >= b.maxDeliveries {
			if err := b.deadLetter(delivery, result, attempt); err != nil {
				logger.Error("dead-letter publish failed, leaving delivery uncommitted", "error", err)
				return err
			}
			logger.Warn("delivery budget exhausted, message dead-lettered",
				"attempt", attempt,
				"max_deliveries", b.maxDeliveries,
			)
			return b.commit(logger, delivery)
		}

		if err := b.redeliver(delivery, result, attempt); err != nil {
			logger.Error("redelivery publish failed, leaving delivery uncommitted", "error", err)
			return err
		}
		logger.Info("message requeued for redelivery",
			"attempt", attempt,
			"max_deliveries", b.maxDeliveries,
		)
		return b.commit(logger, delivery)

	case OutcomePermanentFailure:
		if err := b.deadLetter(delivery, result, deliveryCount(delivery)+1); err != nil {
			logger.Error("dead-letter publish failed, leaving delivery uncommitted", "error", err)
			return err
		}
		logger.Warn("message dead-lettered",
			"failure_type", result.FailureType,
			"reason", result.Reason,
		)
		return b.commit(logger, delivery)
	}

	return fmt.Errorf("unhandled outcome %q", result.Outcome)
}

func (b *Bridge) commit(logger *slog.Logger, delivery *queue.Delivery) error {
	if err := b.consumer.Commit(delivery); err != nil {
		logger.Error("offset commit failed", "error", err)
		return err
	}
	return nil
}

// redeliver publishes the original body back onto the transactions topic
// with the retry count stamped for the next attempt.
func (b *Bridge) redeliver(delivery *queue.Delivery, result MessageResult, attempt int) error {
	return b.producer.PublishSync(b.topic, delivery.Key, retryHeaders(delivery, result, attempt), delivery.Value)
}

// deadLetter wraps the delivery in a DeadLetterRecord and publishes it to
// the dead-letter topic.
func (b *Bridge) deadLetter(delivery *queue.Delivery, result MessageResult, attempt int) error {
	record := DeadLetterRecord{
		MessageID:      messageID(delivery, result),
		CorrelationID:  result.CorrelationID,
		OriginalTopic:  originalTopic(delivery),
		FailureType:    result.FailureType,
		Reason:         result.Reason,
		DeliveryCount:  attempt,
		DeadLetteredAt: time.Now().UTC(),
		Body:           string(delivery.Value),
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal dead-letter record: %w", err)
	}

	return b.producer.PublishSync(b.dlqTopic, delivery.Key, retryHeaders(delivery, result, attempt), payload)
}

func retryHeaders(delivery *queue.Delivery, result MessageResult, attempt int) map[string][]byte {
	headers := map[string][]byte{
		HeaderRetryCount:    []byte(strconv.Itoa(attempt)),
		HeaderOriginalTopic: []byte(originalTopic(delivery)),
		HeaderFailureReason: []byte(result.Reason),
		HeaderProcessedAt:   []byte(time.Now().UTC().Format(time.RFC3339)),
	}
	if id, ok := delivery.Headers[HeaderMessageID]; ok && len(id) > 0 {
		headers[HeaderMessageID] = id
	}
	return headers
}

// deliveryCount reads how many failed attempts preceded this delivery.
func deliveryCount(delivery *queue.Delivery) int {
	raw, ok := delivery.Headers[HeaderRetryCount]
	if !ok {
		return 0
	}
	count, err := strconv.Atoi(string(raw))
	if err != nil || count < 0 {
		return 0
	}
	return count
}

func originalTopic(delivery *queue.Delivery) string {
	if topic, ok := delivery.Headers[HeaderOriginalTopic]; ok && len(topic) > 0 {
		return string(topic)
	}
	return delivery.Topic
}

func messageID(delivery *queue.Delivery, result MessageResult) string {
	if id, ok := delivery.Headers[HeaderMessageID]; ok && len(id) > 0 {
		return string(id)
	}
	return result.CorrelationID
}
