package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
)

const (
	sessionTimeout    = 30 * time.Second
	heartbeatInterval = 3 * time.Second
	rebalanceTimeout  = 30 * time.Second
	consumeBackoff    = time.Second
)

// Delivery is one Kafka message handed to the worker. An uncommitted
// delivery is redelivered by the broker after a rebalance or restart.
type Delivery struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string][]byte

	session sarama.ConsumerGroupSession
	message *sarama.ConsumerMessage

	mu        sync.Mutex
	committed bool
}

// Handler is invoked for every delivery. The handler owns the delivery's
// lifecycle and must commit it once its outcome has been enacted; a returned
// error means the delivery was left uncommitted.
type Handler func(ctx context.Context, delivery *Delivery) error

// Consumer wraps a Sarama consumer group with auto-commit disabled, so
// offsets only advance through explicit Commit calls.
type Consumer struct {
	group   sarama.ConsumerGroup
	groupID string
	logger  *slog.Logger

	handler Handler

	ready        atomic.Bool
	errorsDoneCh chan struct{}
}

func NewConsumer(brokers []string, groupID string, logger *slog.Logger) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka consumer: at least one broker is required")
	}
	if groupID == "" {
		return nil, errors.New("kafka consumer: group id is required")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = "echeck-debit-worker"
	cfg.Consumer.Group.Session.Timeout = sessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = heartbeatInterval
	cfg.Consumer.Group.Rebalance.Timeout = rebalanceTimeout
	cfg.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRange
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Offsets.AutoCommit.Enable = false
	cfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: create consumer group: %w", err)
	}

	c := &Consumer{
		group:        group,
		groupID:      groupID,
		logger:       logger,
		errorsDoneCh: make(chan struct{}),
	}

	go c.consumeErrors()

	return c, nil
}

// Consume subscribes to the topic and invokes the handler for each delivery.
// It blocks until ctx is cancelled or the group is closed, rejoining the
// group after recoverable errors.
func (c *Consumer) Consume(ctx context.Context, topic string, handler Handler) error {
	if topic == "" {
		return errors.New("kafka consumer: topic is required")
	}
	if handler == nil {
		return errors.New("kafka consumer: handler is required")
	}

	c.handler = handler

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.group.Consume(ctx, []string{topic}, &groupHandler{consumer: c})
		if err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error("kafka consume error", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(consumeBackoff):
			}
		}
	}
}

// Commit marks the delivery consumed and flushes the offset. Committing the
// same delivery twice is a no-op.
func (c *Consumer) Commit(delivery *Delivery) error {
	if delivery == nil {
		return errors.New("kafka consumer: delivery is required")
	}
	if delivery.session == nil || delivery.message == nil {
		return errors.New("kafka consumer: delivery missing session data")
	}

	delivery.mu.Lock()
	if delivery.committed {
		delivery.mu.Unlock()
		return nil
	}
	delivery.committed = true
	delivery.mu.Unlock()

	delivery.session.MarkMessage(delivery.message, "")
	delivery.session.Commit()
	return nil
}

// IsReady returns true once the consumer has joined the group and is
// actively consuming.
func (c *Consumer) IsReady() bool {
	return c.ready.Load()
}

// Close shuts down the consumer group and associated goroutines.
func (c *Consumer) Close() error {
	err := c.group.Close()
	<-c.errorsDoneCh
	return err
}

func (c *Consumer) consumeErrors() {
	defer close(c.errorsDoneCh)
	for err := range c.group.Errors() {
		if err != nil {
			c.logger.Error("kafka consumer error", "error", err)
		}
	}
}

type groupHandler struct {
	consumer *Consumer
}

func (h *groupHandler) Setup(session sarama.ConsumerGroupSession) error {
	h.consumer.ready.Store(true)
	h.consumer.logger.Info("kafka consumer group ready", "group_id", h.consumer.groupID)
	return nil
}

func (h *groupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	h.consumer.ready.Store(false)
	h.consumer.logger.Info("kafka consumer group cleanup", "group_id", h.consumer.groupID)
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		delivery := &Delivery{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Key:       cloneBytes(msg.Key),
			Value:     cloneBytes(msg.Value),
			Timestamp: msg.Timestamp,
			Headers:   fromHeaders(msg.Headers),
			session:   session,
			message:   msg,
		}

		if err := h.consumer.handler(session.Context(), delivery); err != nil {
			h.consumer.logger.Error("kafka handler error",
				"error", err,
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
		}
	}

	return nil
}

func cloneBytes(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

func fromHeaders(headers []*sarama.RecordHeader) map[string][]byte {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string][]byte, len(headers))
	for _, h := range headers {
		if h == nil || len(h.Key) == 0 {
			continue
		}
		out[string(h.Key)] = cloneBytes(h.Value)
	}
	return out
}
