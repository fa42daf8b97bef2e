// Package gcs is a minimal Cloud Storage JSON API client covering the three
// calls the storefront makes: media upload, object delete and a bucket probe.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

const (
	defaultEndpoint = "https://storage.googleapis.com"
	requestTimeout  = 30 * time.Second
	pingTimeout     = 5 * time.Second
	maxErrorBody    = 2 << 10
)

type Client struct {
	httpClient  *http.Client
	bucket      string
	endpoint    string
	tokenSource *tokenSource
}

// NewClient picks credentials in this order: inline JSON, the credentials
// file, then the GCE metadata server. The bucket must be listable.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errors.New("gcs bucket name is required")
	}
	httpClient := &http.Client{Timeout: requestTimeout}

	ts, err := resolveTokenSource(httpClient, gcp)
	if err != nil {
		return nil, err
	}
	c := &Client{httpClient: httpClient, bucket: cfg.BucketName, endpoint: defaultEndpoint, tokenSource: ts}
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs bucket %s unreachable: %w", cfg.BucketName, err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", cfg.BucketName), "gcs client ready")
	}
	return c, nil
}

func resolveTokenSource(httpClient *http.Client, gcp config.GCPConfig) (*tokenSource, error) {
	switch {
	case gcp.CredentialsJSON != "":
		return serviceAccountSource(httpClient, []byte(gcp.CredentialsJSON))
	case gcp.ApplicationCredentials != "":
		raw, err := os.ReadFile(gcp.ApplicationCredentials)
		if err != nil {
			return nil, fmt.Errorf("read gcp credentials: %w", err)
		}
		return serviceAccountSource(httpClient, raw)
	default:
		return metadataSource(httpClient), nil
	}
}

func (c *Client) Bucket() string {
	if c == nil {
		return ""
	}
	return c.bucket
}

// Ping lists at most one object.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.tokenSource == nil {
		return errors.New("gcs client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.call(ctx, http.MethodGet, c.objectsURL("storage")+"?maxResults=1", nil, "", http.StatusOK)
}

func (c *Client) Upload(ctx context.Context, object, contentType string, data []byte) error {
	if strings.TrimSpace(object) == "" {
		return errors.New("object name is required")
	}
	target := c.objectsURL("upload/storage") + "?uploadType=media&name=" + url.QueryEscape(object)
	return c.call(ctx, http.MethodPost, target, bytes.NewReader(data), contentType, http.StatusOK)
}

// DeleteObject treats an already missing object as deleted.
func (c *Client) DeleteObject(ctx context.Context, object string) error {
	if strings.TrimSpace(object) == "" {
		return errors.New("object name is required")
	}
	target := c.objectsURL("storage") + "/" + url.PathEscape(object)
	return c.call(ctx, http.MethodDelete, target, nil, "", http.StatusOK, http.StatusNoContent, http.StatusNotFound)
}

func (c *Client) objectsURL(api string) string {
	return fmt.Sprintf("%s/%s/v1/b/%s/o", c.endpoint, api, url.PathEscape(c.bucket))
}

// call sends an authorized request and fails unless the status is one of ok.
func (c *Client) call(ctx context.Context, method, target string, body io.Reader, contentType string, ok ...int) error {
	token, err := c.tokenSource.Token(ctx)
	if err != nil {
		return fmt.Errorf("gcs token: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gcs %s: %w", method, err)
	}
	defer resp.Body.Close()
	for _, status := range ok {
		if resp.StatusCode == status {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("gcs %s %s: %s %s", method, req.URL.Path, resp.Status, strings.TrimSpace(string(detail)))
}
