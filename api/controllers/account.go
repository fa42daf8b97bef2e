package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/api/responses"
	"github.com/muxdry/storefront-backend/api/validators"
	"github.com/muxdry/storefront-backend/internal/cart"
	"github.com/muxdry/storefront-backend/internal/users"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

func MeProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "users")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		profile, err := svc.Profile(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

func MeUpdateProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "users")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var body users.UpdateProfileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.UpdateProfile(r.Context(), actor.UserID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// MeChangePassword verifies the current password; the session used for the
// call is revoked on success so the client must log in again.
func MeChangePassword(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "users")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var body users.ChangePasswordRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ChangePassword(r.Context(), actor, body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

type cartCounter interface {
	Get(ctx context.Context, userID uuid.UUID) (*cart.CartDTO, error)
}

type orderCounter interface {
	CountInProgress(ctx context.Context, userID uuid.UUID) (int64, error)
}

type unreadCounter interface {
	UnreadForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Badges are the counters shown in the storefront header.
type Badges struct {
	CartItems      int   `json:"cart_items"`
	OrdersActive   int64 `json:"orders_in_progress"`
	UnreadMessages int64 `json:"unread_messages"`
}

func MeBadges(carts cartCounter, orders orderCounter, messages unreadCounter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if carts == nil || orders == nil || messages == nil {
			unavailable(w, r, logg, "badges")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		ctx := r.Context()

		current, err := carts.Get(ctx, actor.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		active, err := orders.CountInProgress(ctx, actor.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		unread, err := messages.UnreadForUser(ctx, actor.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, Badges{CartItems: current.ItemCount, OrdersActive: active, UnreadMessages: unread})
	}
}

// AdminGrantStaff promotes an existing account to staff.
func AdminGrantStaff(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "users")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var body users.GrantStaffRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GrantStaff(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
