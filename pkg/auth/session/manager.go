// Package session tracks refresh sessions in redis. Each access token id
// (the JWT jti) owns exactly one refresh token; only its SHA-256 digest is
// stored, so a redis dump cannot be replayed against /auth/refresh.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/config"
	redislib "github.com/redis/go-redis/v9"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errMissingAccessID     = errors.New("access id is required")
)

// Store is satisfied by *redis.Client.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	RefreshTokenKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware consults on every request.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager requires the refresh TTL to outlive the access token TTL.
func NewManager(store Store, cfg config.JWTConfig) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	refresh := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case refresh <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case refresh <= access:
		return nil, fmt.Errorf("refresh token ttl %s must exceed access token ttl %s", refresh, access)
	}
	return &Manager{store: store, ttl: refresh}, nil
}

// Generate opens a session for accessID and returns the refresh token. The
// token itself is never persisted.
func (m *Manager) Generate(ctx context.Context, accessID string) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errMissingAccessID
	}
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	if err := m.store.Set(ctx, m.store.RefreshTokenKey(accessID), digest(token), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Rotate trades a valid (accessID, refresh token) pair for a new pair. The
// old session is closed, so a refresh token works once.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (newAccessID, newToken string, err error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return "", "", ErrInvalidRefreshToken
	}
	oldKey := m.store.RefreshTokenKey(oldAccessID)
	stored, err := m.store.Get(ctx, oldKey)
	switch {
	case errors.Is(err, redislib.Nil):
		return "", "", ErrInvalidRefreshToken
	case err != nil:
		return "", "", fmt.Errorf("load session: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(digest(provided))) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	newAccessID = NewAccessID()
	if newToken, err = m.Generate(ctx, newAccessID); err != nil {
		return "", "", err
	}
	if err := m.store.Del(ctx, oldKey); err != nil {
		return "", "", fmt.Errorf("close old session: %w", err)
	}
	return newAccessID, newToken, nil
}

// Revoke is idempotent.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errMissingAccessID
	}
	return m.store.Del(ctx, m.store.RefreshTokenKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errMissingAccessID
	}
	_, err := m.store.Get(ctx, m.store.RefreshTokenKey(accessID))
	if errors.Is(err, redislib.Nil) {
		return false, nil
	}
	return err == nil, err
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
