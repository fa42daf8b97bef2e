// Package redis wraps go-redis with the few commands the storefront needs:
// session markers, idempotency records, fixed-window rate limits and the
// maintenance lock. Keys are namespaced under "sf:".
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const namespace = "sf"

var ErrNotInitialized = errors.New("redis client not initialized")

// cmdable is the slice of go-redis used here; tests substitute a fake.
type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	SetNX(context.Context, string, any, time.Duration) *redis.BoolCmd
	Incr(context.Context, string) *redis.IntCmd
	Expire(context.Context, string, time.Duration) *redis.BoolCmd
	Del(context.Context, ...string) *redis.IntCmd
}

type Client struct {
	store cmdable
	conn  *redis.Client
}

type Pinger interface {
	Ping(context.Context) error
}

// IdempotencyStore backs middleware.Idempotency.
type IdempotencyStore interface {
	Get(context.Context, string) (string, error)
	SetNX(context.Context, string, any, time.Duration) (bool, error)
	Set(context.Context, string, any, time.Duration) error
	IdempotencyKey(scope, id string) string
	Del(context.Context, ...string) error
}

// RateLimiter backs the rate limit middleware.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// New dials cfg.URL and fails unless the server answers PING.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	conn := redis.NewClient(opts)
	if err := conn.Ping(ctx).Err(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping redis %s: %w", opts.Addr, err), conn.Close())
	}
	if logg != nil {
		logg.Debug(logg.WithField(ctx, "addr", opts.Addr), "redis connected")
	}
	return &Client{store: conn, conn: conn}, nil
}

func NewWithStore(store cmdable) *Client {
	return &Client{store: store}
}

// optionsFromConfig parses the URL and lets explicit settings fill what the
// URL leaves unset.
func optionsFromConfig(cfg config.RedisConfig) (*redis.Options, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.Password == "" {
		opts.Password = cfg.Password
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	setIfPositive(&opts.PoolSize, cfg.PoolSize)
	setIfPositive(&opts.MinIdleConns, cfg.MinIdleConns)
	setIfPositive(&opts.DialTimeout, cfg.DialTimeout)
	setIfPositive(&opts.ReadTimeout, cfg.ReadTimeout)
	setIfPositive(&opts.WriteTimeout, cfg.WriteTimeout)
	return opts, nil
}

func setIfPositive[T int | time.Duration](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}

func (c *Client) ready() error {
	if c == nil || c.store == nil {
		return ErrNotInitialized
	}
	return nil
}

func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.store.Set(ctx, key, value, ttl).Err()
}

// Get returns redis.Nil for a missing key; see IsNil.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}
	return c.store.Get(ctx, key).Result()
}

func (c *Client) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}
	return c.store.SetNX(ctx, key, value, ttl).Result()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if err := c.ready(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.store.Del(ctx, keys...).Err()
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.store.Ping(ctx).Err()
}

// FixedWindowAllow counts a hit against scope. The window starts with the
// first hit; the call is allowed while the count stays within limit.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if err := c.ready(); err != nil {
		return false, 0, err
	}
	key := c.RateLimitKey(scope)
	count, err := c.store.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("incr %s: %w", key, err)
	}
	if count == 1 && window > 0 {
		if err := c.store.Expire(ctx, key, window).Err(); err != nil {
			return false, count, fmt.Errorf("expire %s: %w", key, err)
		}
	}
	return count <= limit, count, nil
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return key("idempotency", scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return key("rate_limit", scope)
}

// RefreshTokenKey holds the refresh token issued alongside access token accessID.
func (c *Client) RefreshTokenKey(accessID string) string {
	return key("session", "refresh", accessID)
}

// LockKey names a cross-replica lock, e.g. the maintenance worker cycle.
func (c *Client) LockKey(name, env string) string {
	return key("lock", name, env)
}

func key(parts ...string) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
