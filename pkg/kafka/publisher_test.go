package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/outbox"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishMapsMessage(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}

	err := p.Publish(context.Background(), outbox.Message{
		Topic:      "storefront.orders",
		Key:        "order-1",
		Data:       []byte(`{"version":1}`),
		Attributes: map[string]string{"event_type": "order.created"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	require.Equal(t, "storefront.orders", w.msgs[0].Topic)
	require.Equal(t, []byte("order-1"), w.msgs[0].Key)
	require.Equal(t, "event_type", w.msgs[0].Headers[0].Key)

	require.NoError(t, p.Close())
	require.True(t, w.closed)
}

func TestPublishErrors(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("leader not available")}}
	err := p.Publish(context.Background(), outbox.Message{Topic: "t"})
	require.ErrorContains(t, err, "leader not available")

	err = p.Publish(context.Background(), outbox.Message{})
	var nonRetry outbox.NonRetryableError
	require.ErrorAs(t, err, &nonRetry)
}

func TestNewPublisherRequiresBrokers(t *testing.T) {
	_, err := NewPublisher(context.Background(), config.KafkaConfig{Brokers: []string{" ", ""}}, nil)
	require.Error(t, err)

	p, err := NewPublisher(context.Background(), config.KafkaConfig{Brokers: []string{"a:9092,b:9092"}}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"a:9092", "b:9092"}, p.brokers)
	require.NoError(t, p.Close())
}
