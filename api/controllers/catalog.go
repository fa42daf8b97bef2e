package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/muxdry/storefront-backend/api/responses"
	"github.com/muxdry/storefront-backend/api/validators"
	"github.com/muxdry/storefront-backend/internal/catalog"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

const (
	imageFormField     = "file"
	multipartOverhead  = 1 << 20
	multipartMemoryCap = 4 << 20
)

func CatalogCategories(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		categories, err := svc.ListCategories(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, categories)
	}
}

func CatalogCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		category, err := svc.GetCategory(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

// CatalogProducts is the browse endpoint: page/page_size paging, a sort and
// optional category, q, featured, best_seller, is_new and on_sale filters.
func CatalogProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		input, err := parseProductListInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CatalogProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		product, err := svc.GetProduct(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func CatalogHome(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		home, err := svc.Home(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, home)
	}
}

func AdminCreateCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var body catalog.CategoryInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.CreateCategory(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, category)
	}
}

func AdminUpdateCategory(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "categoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body catalog.CategoryInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		category, err := svc.UpdateCategory(r.Context(), actor, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		var body catalog.CreateProductInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), actor, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body catalog.UpdateProductInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.UpdateProduct(r.Context(), actor, id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminUploadProductImage accepts a multipart "file" part and stores it in the
// slot named by the slot query parameter (image or image_hover).
func AdminUploadProductImage(svc catalog.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "catalog")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		slot := catalog.ImageSlot(strings.TrimSpace(r.URL.Query().Get("slot")))
		if slot == "" {
			slot = catalog.ImageSlotMain
		}

		data, err := readUpload(w, r, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.UploadProductImage(r.Context(), actor, id, slot, data)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// readUpload pulls the file part out of a multipart body. Size and type checks
// beyond the transport cap happen in the storage layer.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemoryCap); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	data, found, err := formImage(r)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file part required").
			WithDetails(map[string]any{"field": imageFormField})
	}
	return data, nil
}

// formImage reads the image part of an already parsed multipart form and closes it.
// found is false when the form carries no such part.
func formImage(r *http.Request) (data []byte, found bool, err error) {
	file, _, err := r.FormFile(imageFormField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file part")
	}
	defer file.Close()
	data, err = io.ReadAll(file)
	if err != nil {
		return nil, true, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read upload")
	}
	return data, true, nil
}

func parseProductListInput(r *http.Request) (catalog.ListProductsInput, error) {
	query := r.URL.Query()
	sort, err := catalog.ParseProductSort(query.Get("sort"))
	if err != nil {
		return catalog.ListProductsInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid sort").
			WithDetails(map[string]any{"field": "sort"})
	}
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 100000)
	if err != nil {
		return catalog.ListProductsInput{}, err
	}
	pageSize, err := validators.ParseQueryInt(r, "page_size", catalog.DefaultPageSize, 1, catalog.MaxPageSize)
	if err != nil {
		return catalog.ListProductsInput{}, err
	}

	filters := catalog.ProductListFilters{
		CategorySlug: strings.TrimSpace(query.Get("category")),
		Query:        validators.TrimText(query.Get("q"), 100),
	}
	flags := map[string]**bool{
		"featured":    &filters.Featured,
		"best_seller": &filters.BestSeller,
		"is_new":      &filters.IsNew,
		"on_sale":     &filters.OnSale,
	}
	for key, dest := range flags {
		raw := strings.TrimSpace(query.Get(key))
		if raw == "" {
			continue
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return catalog.ListProductsInput{}, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a boolean").
				WithDetails(map[string]any{"field": key})
		}
		*dest = &value
	}

	return catalog.ListProductsInput{Filters: filters, Sort: sort, Page: page, PageSize: pageSize}, nil
}
