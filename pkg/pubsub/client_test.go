package pubsub

import (
	"context"
	"testing"

	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/outbox"
	"github.com/stretchr/testify/require"
)

func TestTopicResourceName(t *testing.T) {
	require.Equal(t, "projects/p1/topics/orders", topicResourceName("p1", "orders"))
	require.Equal(t, "projects/x/topics/y", topicResourceName("p1", "projects/x/topics/y"))
	require.Empty(t, topicResourceName("", "orders"))
	require.Empty(t, topicResourceName("p1", "  "))
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, nil, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestUninitializedClient(t *testing.T) {
	var c *Client
	require.Error(t, c.Ping(context.Background()))
	require.NoError(t, c.Close())

	err := (&Client{}).Publish(context.Background(), outbox.Message{Topic: "orders"})
	var nonRetry outbox.NonRetryableError
	require.ErrorAs(t, err, &nonRetry)
}
