package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/muxdry/storefront-backend/internal/catalog"
	"github.com/muxdry/storefront-backend/pkg/config"
)

type stubCatalog struct {
	catalog.Service
	input catalog.ListProductsInput
}

func (s *stubCatalog) ListProducts(_ context.Context, input catalog.ListProductsInput) (*catalog.ProductListResult, error) {
	s.input = input
	return &catalog.ProductListResult{Items: []catalog.ProductDTO{}, Page: input.Page, PageSize: input.PageSize}, nil
}

func TestCatalogProductsParsesFilters(t *testing.T) {
	svc := &stubCatalog{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/products?category=audio&q=mic&on_sale=true&featured=0&sort=price_desc&page=2&page_size=24", nil)
	resp := httptest.NewRecorder()
	CatalogProducts(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	in := svc.input
	if in.Sort != catalog.SortPriceDesc || in.Page != 2 || in.PageSize != 24 {
		t.Fatalf("unexpected paging %+v", in)
	}
	if in.Filters.CategorySlug != "audio" || in.Filters.Query != "mic" {
		t.Fatalf("unexpected filters %+v", in.Filters)
	}
	if in.Filters.OnSale == nil || !*in.Filters.OnSale || in.Filters.Featured == nil || *in.Filters.Featured {
		t.Fatalf("unexpected flag filters %+v", in.Filters)
	}
	if in.Filters.BestSeller != nil || in.Filters.IsNew != nil {
		t.Fatalf("unset flags must stay nil")
	}
}

func TestCatalogProductsRejectsBadInput(t *testing.T) {
	for _, target := range []string{
		"/api/v1/catalog/products?sort=cheapest",
		"/api/v1/catalog/products?page_size=500",
		"/api/v1/catalog/products?is_new=maybe",
	} {
		resp := httptest.NewRecorder()
		CatalogProducts(&stubCatalog{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", target, resp.Code)
		}
	}
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": ok, "redis": ok}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": ok, "redis": down}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if got := resp.Header().Get("X-Storefront-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}
