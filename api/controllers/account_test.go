package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/internal/auth"
	"github.com/muxdry/storefront-backend/internal/cart"
	pkgAuth "github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/enums"
)

type stubCartCounter struct{ items int }

func (s stubCartCounter) Get(context.Context, uuid.UUID) (*cart.CartDTO, error) {
	return &cart.CartDTO{ItemCount: s.items}, nil
}

type stubOrderCounter struct{ active int64 }

func (s stubOrderCounter) CountInProgress(context.Context, uuid.UUID) (int64, error) {
	return s.active, nil
}

func TestMeBadges(t *testing.T) {
	handler := MeBadges(stubCartCounter{items: 3}, stubOrderCounter{active: 2}, &stubMessages{unread: 5}, nil)
	req, _ := customerRequest(http.MethodGet, "/api/v1/me/badges", "")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data Badges `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data != (Badges{CartItems: 3, OrdersActive: 2, UnreadMessages: 5}) {
		t.Fatalf("unexpected badges %+v", envelope.Data)
	}
}

type stubAuth struct {
	auth.Service
	revoked string
	err     error
}

func (s *stubAuth) Logout(_ context.Context, accessID string) error {
	s.revoked = accessID
	return s.err
}

func TestAuthLogoutAcceptsExpiredToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 1}
	token, err := pkgAuth.MintAccessToken(cfg, time.Now().Add(-time.Hour), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleCustomer,
		JTI:    "expired-jti",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	svc := &stubAuth{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	AuthLogout(svc, cfg, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.revoked != "expired-jti" {
		t.Fatalf("expected session expired-jti revoked, got %q", svc.revoked)
	}
}

func TestAuthLogoutRejectsMissingToken(t *testing.T) {
	svc := &stubAuth{err: errors.New("should not be called")}
	resp := httptest.NewRecorder()
	AuthLogout(svc, config.JWTConfig{Secret: "secret", Issuer: "issuer"}, nil).
		ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
	if svc.revoked != "" {
		t.Fatalf("no session should be revoked")
	}
}
