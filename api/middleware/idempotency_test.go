package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	pkgAuth "github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/enums"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key], _ = value.(string)
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.data[key], _ = value.(string)
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func checkoutRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/checkout", strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	actor := pkgAuth.Actor{UserID: uuid.MustParse("6c1f4a52-8d0e-4d5b-9d45-1f1e2d3c4b5a"), Role: enums.UserRoleCustomer}
	return req.WithContext(WithActor(req.Context(), actor))
}

func TestCoveredRoutes(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   bool
	}{
		{http.MethodPost, "/api/v1/orders/checkout", true},
		{http.MethodPost, "/api/v1/orders/checkout/items/0b4c", true},
		{http.MethodPost, "/api/v1/orders/0b4c/cancel", true},
		{http.MethodGet, "/api/v1/orders/checkout", false},
		{http.MethodPost, "/api/v1/auth/login", false},
		{http.MethodPost, "/api/v1/orders/0b4c/messages", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, covered(tt.method, tt.path), "%s %s", tt.method, tt.path)
	}
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{}`, ""))
	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{}`, ""))
	require.Equal(t, 2, calls)
	require.Empty(t, store.data)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, checkoutRequest(`{"shipping_name":"A"}`, "abc"))
	require.Equal(t, http.StatusCreated, first.Code)

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, checkoutRequest(`{"shipping_name":"A"}`, "abc"))
	require.Equal(t, http.StatusCreated, replay.Code)
	require.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	require.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	require.Equal(t, `{"ok":true}`, strings.TrimSpace(replay.Body.String()))
	require.Equal(t, 1, calls)
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{"foo":"bar"}`, "xyz"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, checkoutRequest(`{"foo":"diff"}`, "xyz"))

	require.Equal(t, http.StatusConflict, resp.Code)
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.Equal(t, string(pkgerrors.CodeIdempotency), payload.Error.Code)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	status := http.StatusServiceUnavailable
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{}`, "retry"))
	require.Empty(t, store.data)

	status = http.StatusCreated
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, checkoutRequest(`{}`, "retry"))
	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, 2, calls)
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	store := newFakeStore()
	var inner http.Handler
	nested := httptest.NewRecorder()
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner.ServeHTTP(nested, checkoutRequest(`{}`, "dup"))
		w.WriteHeader(http.StatusCreated)
	}))
	inner = Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("duplicate must not reach the handler")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), checkoutRequest(`{}`, "dup"))
	require.Equal(t, http.StatusConflict, nested.Code)
	require.Contains(t, nested.Body.String(), "still in progress")
}
