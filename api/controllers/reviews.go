package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/muxdry/storefront-backend/api/responses"
	"github.com/muxdry/storefront-backend/api/validators"
	"github.com/muxdry/storefront-backend/internal/catalog"
	"github.com/muxdry/storefront-backend/internal/reviews"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

// ProductReviews lists the approved reviews of the product named by slug.
// Query: sort=recent|rating, limit.
func ProductReviews(products catalog.Service, svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if products == nil || svc == nil {
			unavailable(w, r, logg, "reviews")
			return
		}
		sort, ok := reviews.ParseSort(strings.TrimSpace(r.URL.Query().Get("sort")))
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "sort must be recent or rating").
				WithDetails(map[string]any{"field": "sort"}))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := products.GetProduct(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		block, err := svc.ListForProduct(r.Context(), product.ID, sort, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, block)
	}
}

func ReviewsSubmit(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "reviews")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var body reviews.SubmitInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		review, err := svc.Submit(r.Context(), actor.UserID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, review)
	}
}

func ReviewsUpdate(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "reviews")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		reviewID, err := validators.ParseUUIDParam(r, "reviewId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body reviews.UpdateInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		review, err := svc.Update(r.Context(), actor.UserID, reviewID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, review)
	}
}

func ReviewsDelete(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "reviews")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		reviewID, err := validators.ParseUUIDParam(r, "reviewId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), actor, reviewID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// ReviewsList shows the caller's own reviews, or every review for staff.
func ReviewsList(svc reviews.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "reviews")
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
		page, err := svc.List(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
