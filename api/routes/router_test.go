package routes

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/api/controllers"
	"github.com/muxdry/storefront-backend/internal/catalog"
	"github.com/muxdry/storefront-backend/internal/orders"
	pkgAuth "github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/enums"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/pagination"
	"github.com/redis/go-redis/v9"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) {
	return true, nil
}

type memoryRedis struct {
	mu     sync.Mutex
	data   map[string]string
	counts map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{data: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], _ = value.(string)
	return true, nil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key], _ = value.(string)
	return nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("idem:%s:%s", scope, id)
}

func (m *memoryRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[scope]++
	return m.counts[scope] <= limit, m.counts[scope], nil
}

type stubOrders struct {
	orders.Service
	mu        sync.Mutex
	checkouts int
}

func (s *stubOrders) CheckoutCart(_ context.Context, actor pkgAuth.Actor, _ orders.CheckoutInput) (*orders.OrderDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkouts++
	return &orders.OrderDTO{ID: uuid.New(), OrderNumber: fmt.Sprintf("MUX-20260101-%06d", s.checkouts), UserID: actor.UserID, Status: enums.OrderStatusPending}, nil
}

func (s *stubOrders) ListAdmin(context.Context, pkgAuth.Actor, orders.AdminFilters, pagination.Params) (*orders.OrderPage, error) {
	return &orders.OrderPage{Items: []orders.OrderDTO{}}, nil
}

type stubCatalog struct {
	catalog.Service
}

func (stubCatalog) ListProducts(_ context.Context, input catalog.ListProductsInput) (*catalog.ProductListResult, error) {
	return &catalog.ProductListResult{Items: []catalog.ProductDTO{}, Page: input.Page, PageSize: input.PageSize}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", CORSOrigins: []string{"https://shop.example.com"}},
		JWT: config.JWTConfig{
			Secret:            "router-secret",
			Issuer:            "storefront-test",
			ExpirationMinutes: 15,
		},
		RateLimit: config.RateLimitConfig{
			LoginWindow:     time.Minute,
			LoginEmailLimit: 2,
			LoginIPLimit:    100,
			APIWindow:       time.Minute,
			APIUserLimit:    100,
			IdempotencyTTL:  time.Hour,
		},
	}
}

func testDependencies(cfg *config.Config) Dependencies {
	return Dependencies{
		Config:   cfg,
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Pingers:  map[string]controllers.Pinger{"db": stubPinger{}, "redis": stubPinger{}},
		Redis:    newMemoryRedis(),
		Sessions: stubSessions{},
		Orders:   &stubOrders{},
		Catalog:  stubCatalog{},
	}
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "tester@example.com",
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthRoutes(t *testing.T) {
	cfg := testConfig()
	deps := testDependencies(cfg)
	router := NewRouter(deps)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 from live got %d", resp.Code)
	}

	deps.Pingers["redis"] = stubPinger{err: fmt.Errorf("dial tcp: refused")}
	router = NewRouter(deps)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from ready got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "redis") {
		t.Fatalf("expected failing dependency in body: %s", resp.Body.String())
	}
}

func TestCatalogIsPublic(t *testing.T) {
	router := NewRouter(testDependencies(testConfig()))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products?page=1", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public catalog got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestPrivateRoutesRejectMissingJWT(t *testing.T) {
	router := NewRouter(testDependencies(testConfig()))
	for _, target := range []string{"/api/v1/me", "/api/v1/cart", "/api/v1/orders/current", "/api/v1/admin/orders"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without token got %d", target, resp.Code)
		}
	}
}

func TestAdminRoutesRequireStaff(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(testDependencies(cfg))

	customer := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	staff := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
	staff.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, staff)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for staff got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestGrantStaffRequiresSuperuser(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(testDependencies(cfg))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/users/staff", strings.NewReader(`{"email":"new@example.com"}`))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff got %d", resp.Code)
	}
}

func TestCheckoutReplaysWithIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	deps := testDependencies(cfg)
	ordersSvc := deps.Orders.(*stubOrders)
	router := NewRouter(deps)
	token := buildToken(t, cfg, enums.UserRoleCustomer)

	var bodies []string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/checkout", strings.NewReader(`{"payment_method":"zinli"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "checkout-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d: %s", i, resp.Code, resp.Body.String())
		}
		bodies = append(bodies, resp.Body.String())
	}

	if ordersSvc.checkouts != 1 {
		t.Fatalf("expected one checkout, got %d", ordersSvc.checkouts)
	}
	if bodies[0] != bodies[1] {
		t.Fatalf("expected replayed body to match first response")
	}
}

func TestLoginRateLimitedByEmail(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(testDependencies(cfg))

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"Ana@Example.com","password":"secret"}`))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		last = resp.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third login got %d", last)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := NewRouter(testDependencies(testConfig()))
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders/checkout", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Idempotency-Key")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}
