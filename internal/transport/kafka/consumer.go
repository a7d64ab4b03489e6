package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"

	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/service/orders"
)

// HandleFunc processes a single orders.Event from Kafka
type HandleFunc func(context.Context, orders.Event) error

var newConsumerGroup = sarama.NewConsumerGroup

// Consume errors (broker gone, rebalance failure) are retried with
// exponential backoff between these bounds.
var (
	rejoinMin = 500 * time.Millisecond
	rejoinMax = 30 * time.Second
)

// Consumer reads order events from one topic as part of a consumer group.
type Consumer struct {
	logger  logx.Logger
	group   sarama.ConsumerGroup
	topic   string
	handler HandleFunc
}

// NewConsumer joins groupID on topic. It returns nil when Kafka is not configured.
func NewConsumer(logger logx.Logger, brokers []string, groupID, topic string, h HandleFunc) (*Consumer, error) {
	if logger == nil {
		logger = logx.Nop()
	}
	topic, groupID = strings.TrimSpace(topic), strings.TrimSpace(groupID)
	if len(brokers) == 0 || topic == "" || groupID == "" {
		logger.Info("kafka consumer disabled")
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.ClientID = "service-fulfillment"
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategySticky()}

	group, err := newConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		logger:  logger.With(logx.String("topic", topic), logx.String("group", groupID)),
		group:   group,
		topic:   topic,
		handler: h,
	}, nil
}

// Run consumes until ctx is canceled. Each Consume call lasts one group
// generation; a failed call is retried after a growing pause.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}

	pause := backoff.NewExponentialBackOff()
	pause.InitialInterval = rejoinMin
	pause.MaxInterval = rejoinMax
	pause.MaxElapsedTime = 0

	h := &groupHandler{c: c}
	for ctx.Err() == nil {
		err := c.group.Consume(ctx, []string{c.topic}, h)
		if err == nil || ctx.Err() != nil {
			pause.Reset()
			continue
		}

		wait := pause.NextBackOff()
		c.logger.Warn("kafka consume error", logx.Duration("retry_in", wait), logx.Err(err))
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
	}
	return ctx.Err()
}

// Close leaves the consumer group
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	return c.group.Close()
}

// decode turns a record into an event. Every error it returns is ErrMalformed.
func decode(msg *sarama.ConsumerMessage) (orders.Event, error) {
	var dto EventDTO
	if err := json.Unmarshal(msg.Value, &dto); err != nil {
		return orders.Event{}, malformed("payload", err)
	}
	ev, err := ToDomain(dto)
	if err != nil {
		return orders.Event{}, err
	}
	if ev.OrderID == "" {
		return orders.Event{}, malformed("order_id", errors.New("empty"))
	}
	return ev, nil
}

type groupHandler struct{ c *Consumer }

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	h.c.logger.Info("kafka partitions assigned",
		logx.Any("claims", sess.Claims()),
		logx.Int("generation", int(sess.GenerationID())),
	)
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim commits every record except one whose handling hit an
// unavailable store. That ends the claim so the record is delivered again.
func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		logger := h.c.logger.With(
			logx.Int("partition", int(msg.Partition)),
			logx.Int64("offset", msg.Offset),
		)

		ev, err := decode(msg)
		if err != nil {
			logger.Warn("order event dropped", logx.Err(err))
			sess.MarkMessage(msg, "")
			continue
		}

		if err := h.c.handler(sess.Context(), ev); err != nil {
			fields := []logx.Field{
				logx.String("order_id", ev.OrderID),
				logx.String("status", ev.Status),
				logx.Err(err),
			}
			if retryable(err) {
				logger.Warn("order event failed, redelivering", fields...)
				return err
			}
			logger.Warn("order event failed, committing", fields...)
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
