package storage

import (
	"context"
	"fmt"
	"strings"
)

type gcsClient interface {
	Upload(ctx context.Context, object, contentType string, data []byte) error
	DeleteObject(ctx context.Context, object string) error
	Bucket() string
	Ping(ctx context.Context) error
}

// GCS stores objects in a bucket and serves them from a public base URL.
type GCS struct {
	client  gcsClient
	baseURL string
}

func NewGCS(client gcsClient, baseURL string) *GCS {
	return &GCS{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *GCS) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if err := g.client.Upload(ctx, key, contentType, data); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s", g.baseURL, g.client.Bucket(), key), nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	return g.client.DeleteObject(ctx, key)
}

// Ping checks the bucket is reachable with the configured credentials.
func (g *GCS) Ping(ctx context.Context) error {
	return g.client.Ping(ctx)
}
