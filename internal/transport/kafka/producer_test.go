package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/require"

	"service-fulfillment/internal/notify"
	testlog "service-fulfillment/internal/testutil"
)

type countStub struct{ n int }

func (c *countStub) Inc() { c.n++ }

func TestNewNotifier_SkipsWhenNoKafkaConfig(t *testing.T) {
	t.Parallel()

	got, err := NewNotifier(nil, nil, "notifications", nil)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = NewNotifier(nil, []string{"b:9092"}, " ", nil)
	require.NoError(t, err)
	require.Nil(t, got)

	// A nil notifier is safe to use.
	got.Notify(context.Background(), notify.Customers, notify.EventDelivered, nil)
	require.NoError(t, got.Close())
}

func TestNotifier_Notify_PublishesMessage(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p := mocks.NewSyncProducer(t, nil)
	p.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg notify.Message
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		if msg.ID == "" || msg.Event != notify.EventDelivered || msg.Audience != notify.Customers {
			return errors.New("unexpected message")
		}
		if !msg.OccurredAt.Equal(at) || msg.Payload["order_id"] != "o-1" {
			return errors.New("unexpected payload")
		}
		return nil
	})

	failed := &countStub{}
	n := newNotifier(testlog.New().Logger(), p, "notifications", failed)
	n.now = func() time.Time { return at }

	n.Notify(context.Background(), notify.Customers, notify.EventDelivered, map[string]any{"order_id": "o-1"})

	require.Zero(t, failed.n)
	require.NoError(t, n.Close())
}

func TestNotifier_Notify_FailureIsCountedNotReturned(t *testing.T) {
	t.Parallel()

	p := mocks.NewSyncProducer(t, nil)
	p.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	rec := testlog.New()
	failed := &countStub{}
	n := newNotifier(rec.Logger(), p, "notifications", failed)

	n.Notify(context.Background(), notify.Vendors, notify.EventPickupFailed, nil)

	require.Equal(t, 1, failed.n)
	require.True(t, rec.Has("notification publish failed"))
	require.NoError(t, n.Close())
}

func TestNewNotifier_ReturnsErrorWhenSaramaFails(t *testing.T) {
	t.Parallel()

	orig := newSyncProducer
	t.Cleanup(func() { newSyncProducer = orig })

	sentinel := errors.New("boom")
	newSyncProducer = func([]string, *sarama.Config) (sarama.SyncProducer, error) {
		return nil, sentinel
	}

	got, err := NewNotifier(nil, []string{"b:9092"}, "notifications", nil)
	require.ErrorIs(t, err, sentinel)
	require.Nil(t, got)
}
