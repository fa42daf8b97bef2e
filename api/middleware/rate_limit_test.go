package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/enums"
	"github.com/stretchr/testify/require"
)

type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: map[string]int64{}}
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func loginRequest(email, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = ip + ":5678"
	return req
}

func TestPublicRateLimitKeepsBodyReadable(t *testing.T) {
	policy := NewRateLimitPolicy("login", time.Minute, 5, 5)
	handler := PublicRateLimit(policy, newFakeLimiter(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `"email":"tester@example.com"`)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("tester@example.com", "1.2.3.4"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPublicRateLimitEmailLimitSpansIPs(t *testing.T) {
	policy := NewRateLimitPolicy("login", time.Minute, 0, 2)
	handler := PublicRateLimit(policy, newFakeLimiter(), nil)(okHandler())

	for i, ip := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(" Blocked@Example.com", ip))
		if i < 2 {
			require.Equal(t, http.StatusOK, rec.Code)
			continue
		}
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "60", rec.Header().Get("Retry-After"))
		require.Contains(t, rec.Body.String(), "RATE_LIMIT_EXCEEDED")
	}
}

func TestPublicRateLimitIPLimit(t *testing.T) {
	policy := NewRateLimitPolicy("contact", time.Minute, 1, 0)
	handler := PublicRateLimit(policy, newFakeLimiter(), nil)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, loginRequest("a@example.com", "9.9.9.9"))
	require.Equal(t, http.StatusOK, first.Code)

	forwarded := loginRequest("b@example.com", "10.0.0.1")
	forwarded.Header.Set("X-Forwarded-For", "9.9.9.9, 10.0.0.1")
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, forwarded)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestPublicRateLimitDisabledPolicy(t *testing.T) {
	handler := PublicRateLimit(NewRateLimitPolicy("login", 0, 1, 1), newFakeLimiter(), nil)(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest("a@example.com", "1.2.3.4"))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestUserRateLimit(t *testing.T) {
	limiter := newFakeLimiter()
	handler := UserRateLimit(limiter, 2, time.Minute, nil)(okHandler())
	alice := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}
	bob := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleCustomer}

	call := func(actor auth.Actor) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req = req.WithContext(WithActor(req.Context(), actor))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, call(alice))
	require.Equal(t, http.StatusOK, call(alice))
	require.Equal(t, http.StatusTooManyRequests, call(alice))
	require.Equal(t, http.StatusOK, call(bob))
}
