package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/outbox"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errProjectIDRequired = errors.New("gcp project id is required")

// Client publishes outbox messages to Pub/Sub topics, caching one publisher per topic.
type Client struct {
	client    *pubsub.Client
	projectID string
	topics    []string

	mu         sync.Mutex
	publishers map[string]*pubsub.Publisher
}

// NewClient creates a Pub/Sub v2 client and checks that every configured topic exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, topics []string, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{
		client:     psClient,
		projectID:  gcp.ProjectID,
		topics:     topics,
		publishers: make(map[string]*pubsub.Publisher),
	}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(ctx, "pubsub client initialized")
	}
	return c, nil
}

// Ping checks that every configured topic exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	for _, name := range c.topics {
		fullName := topicResourceName(c.projectID, name)
		if fullName == "" {
			continue
		}
		_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: fullName})
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("topic %q does not exist", name)
			}
			return fmt.Errorf("checking topic %q: %w", name, err)
		}
	}
	return nil
}

// Publish sends msg and waits for the server id. Attributes travel as message attributes.
func (c *Client) Publish(ctx context.Context, msg outbox.Message) error {
	pub := c.publisher(msg.Topic)
	if pub == nil {
		return outbox.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %q", msg.Topic))
	}
	result := pub.Publish(ctx, &pubsub.Message{
		Data:       msg.Data,
		Attributes: msg.Attributes,
	})
	if _, err := result.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound || status.Code(err) == codes.PermissionDenied {
			return outbox.NewNonRetryableError(err)
		}
		return err
	}
	return nil
}

func (c *Client) publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := topicResourceName(c.projectID, topic)
	if fullName == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if pub, ok := c.publishers[fullName]; ok {
		return pub
	}
	pub := c.client.Publisher(fullName)
	c.publishers[fullName] = pub
	return pub
}

// Close flushes publishers and releases the client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	for _, pub := range c.publishers {
		pub.Stop()
	}
	c.publishers = map[string]*pubsub.Publisher{}
	c.mu.Unlock()
	return c.client.Close()
}

// topicResourceName accepts a bare topic id or a full projects/<p>/topics/<t> name.
func topicResourceName(projectID, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	p := strings.TrimSpace(projectID)
	if p == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/topics/%s", p, n)
}
