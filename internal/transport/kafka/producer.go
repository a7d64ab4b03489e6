package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/notify"
)

var newSyncProducer = sarama.NewSyncProducer

type counter interface {
	Inc()
}

// Notifier publishes notify.Message values to a Kafka topic
type Notifier struct {
	logger   logx.Logger
	producer sarama.SyncProducer
	topic    string
	failed   counter
	now      func() time.Time
}

var _ notify.Notifier = (*Notifier)(nil)

// NewNotifier creates a Kafka notifier. It returns nil when Kafka is not configured.
func NewNotifier(logger logx.Logger, brokers []string, topic string, failed counter) (*Notifier, error) {
	if logger == nil {
		logger = logx.Nop()
	}
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" {
		logger.Info("kafka notifier disabled")
		return nil, nil
	}

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3

	p, err := newSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return newNotifier(logger, p, topic, failed), nil
}

func newNotifier(logger logx.Logger, p sarama.SyncProducer, topic string, failed counter) *Notifier {
	return &Notifier{
		logger:   logger.With(logx.String("topic", topic)),
		producer: p,
		topic:    topic,
		failed:   failed,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Notify publishes one message keyed by audience. Failures are logged and counted.
func (n *Notifier) Notify(_ context.Context, audience notify.Audience, event string, payload map[string]any) {
	if n == nil {
		return
	}
	msg := notify.Message{
		ID:         uuid.NewString(),
		Audience:   audience,
		Event:      event,
		Payload:    payload,
		OccurredAt: n.now(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		n.fail(msg, err)
		return
	}
	_, _, err = n.producer.SendMessage(&sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(audience),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		n.fail(msg, err)
		return
	}
	n.logger.Debug("notification published", logx.String("id", msg.ID), logx.String("notification", event))
}

func (n *Notifier) fail(msg notify.Message, err error) {
	if n.failed != nil {
		n.failed.Inc()
	}
	n.logger.Warn("notification publish failed",
		logx.String("id", msg.ID),
		logx.String("audience", string(msg.Audience)),
		logx.String("notification", msg.Event),
		logx.Err(err),
	)
}

// Close closes the producer
func (n *Notifier) Close() error {
	if n == nil {
		return nil
	}
	return n.producer.Close()
}
