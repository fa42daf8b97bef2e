package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	pkgAuth "github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/db"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/storage"
	"gorm.io/gorm"
)

// ImageSlot selects which product image an upload replaces.
type ImageSlot string

const (
	ImageSlotMain  ImageSlot = "image"
	ImageSlotHover ImageSlot = "image_hover"
)

// Service exposes catalog browsing and staff maintenance.
type Service interface {
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	GetCategory(ctx context.Context, slug string) (*CategoryDTO, error)
	CreateCategory(ctx context.Context, actor pkgAuth.Actor, input CategoryInput) (*CategoryDTO, error)
	UpdateCategory(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID, input CategoryInput) (*CategoryDTO, error)

	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
	GetProduct(ctx context.Context, slug string) (*ProductDTO, error)
	Home(ctx context.Context) (*HomeListing, error)
	CreateProduct(ctx context.Context, actor pkgAuth.Actor, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	UploadProductImage(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID, slot ImageSlot, data []byte) (*ProductDTO, error)
}

// ServiceParams bundles the catalog dependencies.
type ServiceParams struct {
	Repo           *Repository
	Storage        storage.Store
	MaxUploadBytes int64
	Logger         *logger.Logger
}

type service struct {
	repo     *Repository
	store    storage.Store
	maxBytes int64
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("catalog repository is required")
	}
	if params.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	return &service{
		repo:     params.Repo,
		store:    params.Storage,
		maxBytes: params.MaxUploadBytes,
		logg:     params.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewCategoryDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) GetCategory(ctx context.Context, slug string) (*CategoryDTO, error) {
	category, err := s.repo.FindCategoryBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, notFoundOr(err, "category not found", "load category")
	}
	return NewCategoryDTO(category), nil
}

func (s *service) CreateCategory(ctx context.Context, actor pkgAuth.Actor, input CategoryInput) (*CategoryDTO, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	slug, err := slugFor(input.Slug, input.Name)
	if err != nil {
		return nil, err
	}
	category := &models.Category{
		Name:        strings.TrimSpace(input.Name),
		Slug:        slug,
		Description: strings.TrimSpace(input.Description),
		ImageURL:    input.ImageURL,
	}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, conflictOr(err, "category slug already exists", "create category")
	}
	return NewCategoryDTO(category), nil
}

func (s *service) UpdateCategory(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID, input CategoryInput) (*CategoryDTO, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	slug, err := slugFor(input.Slug, input.Name)
	if err != nil {
		return nil, err
	}
	cols := map[string]any{
		"name":        strings.TrimSpace(input.Name),
		"slug":        slug,
		"description": strings.TrimSpace(input.Description),
		"image_url":   input.ImageURL,
	}
	if err := s.repo.UpdateCategory(ctx, id, cols); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "category not found")
		}
		return nil, conflictOr(err, "category slug already exists", "update category")
	}
	category, err := s.repo.FindCategoryByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "category not found", "load category")
	}
	return NewCategoryDTO(category), nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	input = input.normalized()
	rows, total, err := s.repo.ListProducts(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	pages := int((total + int64(input.PageSize) - 1) / int64(input.PageSize))
	return &ProductListResult{
		Items:      productDTOs(rows),
		Page:       input.Page,
		PageSize:   input.PageSize,
		Total:      total,
		TotalPages: pages,
	}, nil
}

func (s *service) GetProduct(ctx context.Context, slug string) (*ProductDTO, error) {
	product, err := s.repo.FindProductBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) Home(ctx context.Context) (*HomeListing, error) {
	featured, err := s.repo.ListFlagged(ctx, "is_featured", HomeSectionSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list featured")
	}
	best, err := s.repo.ListFlagged(ctx, "is_best_seller", HomeSectionSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list best sellers")
	}
	arrivals, err := s.repo.ListFlagged(ctx, "is_new", HomeSectionSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list new arrivals")
	}
	return &HomeListing{
		Featured:    productDTOs(featured),
		BestSellers: productDTOs(best),
		NewArrivals: productDTOs(arrivals),
	}, nil
}

func (s *service) CreateProduct(ctx context.Context, actor pkgAuth.Actor, input CreateProductInput) (*ProductDTO, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	slug, err := slugFor(input.Slug, input.Name)
	if err != nil {
		return nil, err
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.OldPrice != nil && input.OldPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "old_price cannot be negative")
	}
	if input.CategoryID != nil {
		if _, err := s.repo.FindCategoryByID(ctx, *input.CategoryID); err != nil {
			return nil, notFoundOr(err, "category not found", "load category")
		}
	}

	product := &models.Product{
		CategoryID:   input.CategoryID,
		Name:         strings.TrimSpace(input.Name),
		Slug:         slug,
		Description:  strings.TrimSpace(input.Description),
		Price:        input.Price.Round(2),
		OldPrice:     roundPtr(input.OldPrice),
		Stock:        input.Stock,
		SKU:          blankToNil(input.SKU),
		IsFeatured:   input.IsFeatured,
		IsBestSeller: input.IsBestSeller,
		IsNew:        input.IsNew,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		return nil, conflictOr(err, "product slug or sku already exists", "create product")
	}
	return s.reload(ctx, product.ID)
}

func (s *service) UpdateProduct(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	cols, err := s.productColumns(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProduct(ctx, id, cols); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, conflictOr(err, "product slug or sku already exists", "update product")
	}
	return s.reload(ctx, id)
}

func (s *service) UploadProductImage(ctx context.Context, actor pkgAuth.Actor, id uuid.UUID, slot ImageSlot, data []byte) (*ProductDTO, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	column := ""
	switch slot {
	case ImageSlotMain:
		column = "image_url"
	case ImageSlotHover:
		column = "image_hover_url"
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown image slot %q", slot)
	}
	if _, err := s.repo.FindProductByID(ctx, id); err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}

	image, err := storage.ValidateImage(data, s.maxBytes)
	if err != nil {
		return nil, err
	}
	key := storage.ObjectKey("products/"+id.String(), s.now(), image.Extension)
	url, err := s.store.Put(ctx, key, image.ContentType, image.Data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store image")
	}
	if err := s.repo.UpdateProduct(ctx, id, map[string]any{column: url}); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil && s.logg != nil {
			s.logg.Error(s.logg.WithField(ctx, "object", key), "remove orphaned product image", delErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save image url")
	}
	return s.reload(ctx, id)
}

func (s *service) productColumns(ctx context.Context, in UpdateProductInput) (map[string]any, error) {
	cols := map[string]any{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		cols["name"] = name
	}
	if in.Slug != nil {
		slug := Slugify(*in.Slug)
		if slug == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug cannot be empty")
		}
		cols["slug"] = slug
	}
	if in.Description != nil {
		cols["description"] = strings.TrimSpace(*in.Description)
	}
	if in.CategoryID != nil {
		if _, err := s.repo.FindCategoryByID(ctx, *in.CategoryID); err != nil {
			return nil, notFoundOr(err, "category not found", "load category")
		}
		cols["category_id"] = *in.CategoryID
	}
	if in.Price != nil {
		if !in.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
		}
		cols["price"] = in.Price.Round(2)
	}
	switch {
	case in.ClearOldPrice:
		cols["old_price"] = nil
	case in.OldPrice != nil:
		if in.OldPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "old_price cannot be negative")
		}
		cols["old_price"] = in.OldPrice.Round(2)
	}
	switch {
	case in.ClearStock:
		cols["stock"] = nil
	case in.Stock != nil:
		cols["stock"] = *in.Stock
	}
	if in.SKU != nil {
		cols["sku"] = blankToNil(in.SKU)
	}
	if in.IsFeatured != nil {
		cols["is_featured"] = *in.IsFeatured
	}
	if in.IsBestSeller != nil {
		cols["is_best_seller"] = *in.IsBestSeller
	}
	if in.IsNew != nil {
		cols["is_new"] = *in.IsNew
	}
	return cols, nil
}

func (s *service) reload(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProductByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

func requireStaff(actor pkgAuth.Actor) error {
	if !actor.IsStaff() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "staff access required")
	}
	return nil
}

func slugFor(explicit, name string) (string, error) {
	source := explicit
	if strings.TrimSpace(source) == "" {
		source = name
	}
	slug := Slugify(source)
	if slug == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "a slug could not be derived from the name").
			WithDetails(map[string]string{"slug": "required"})
	}
	return slug, nil
}

func notFoundOr(err error, notFound, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func conflictOr(err error, conflict, op string) error {
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, conflict)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func blankToNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
