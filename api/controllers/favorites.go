package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/api/responses"
	"github.com/muxdry/storefront-backend/api/validators"
	"github.com/muxdry/storefront-backend/internal/favorites"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

type addFavoritePayload struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
}

// FavoritesList returns the caller's liked products, newest first.
func FavoritesList(svc favorites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "favorites")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		params, err := validators.ParseCursorParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), actor.UserID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func FavoritesIDs(svc favorites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "favorites")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		ids, err := svc.ListIDs(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ids)
	}
}

// FavoritesAdd is idempotent; liking a product twice still answers 204.
func FavoritesAdd(svc favorites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "favorites")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var body addFavoritePayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Add(r.Context(), actor.UserID, body.ProductID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func FavoritesRemove(svc favorites.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "favorites")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Remove(r.Context(), actor.UserID, productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
