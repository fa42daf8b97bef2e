package controllers

import (
	"net/http"

	"github.com/muxdry/storefront-backend/api/responses"
	"github.com/muxdry/storefront-backend/api/validators"
	"github.com/muxdry/storefront-backend/internal/cart"
	"github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

const cartItemParam = "itemId"

func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "cart")
	}
	return actorHandler(logg, func(w http.ResponseWriter, r *http.Request, actor auth.Actor) {
		result, err := svc.Get(r.Context(), actor.UserID)
		reply(w, r, logg, http.StatusOK, result, err)
	})
}

// CartAddItem merges into an existing line for the same product.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "cart")
	}
	return actorHandler(logg, func(w http.ResponseWriter, r *http.Request, actor auth.Actor) {
		var body cart.AddItemInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.AddItem(r.Context(), actor.UserID, body)
		reply(w, r, logg, http.StatusOK, result, err)
	})
}

// CartUpdateItem takes either an absolute quantity or a delta.
func CartUpdateItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "cart")
	}
	return actorHandler(logg, func(w http.ResponseWriter, r *http.Request, actor auth.Actor) {
		itemID, err := validators.ParseUUIDParam(r, cartItemParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body cart.UpdateItemInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.UpdateItem(r.Context(), actor.UserID, itemID, body)
		reply(w, r, logg, http.StatusOK, result, err)
	})
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "cart")
	}
	return actorHandler(logg, func(w http.ResponseWriter, r *http.Request, actor auth.Actor) {
		itemID, err := validators.ParseUUIDParam(r, cartItemParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.RemoveItem(r.Context(), actor.UserID, itemID)
		reply(w, r, logg, http.StatusOK, result, err)
	})
}
