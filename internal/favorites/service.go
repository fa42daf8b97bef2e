package favorites

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/internal/catalog"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/pagination"
	"gorm.io/gorm"
)

type productFinder interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// ServiceParams groups dependencies for the favorites service.
type ServiceParams struct {
	Repo     *Repository
	Products productFinder
}

// Service exposes the per-user favorites list.
type Service interface {
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (FavoritesPage, error)
	ListIDs(ctx context.Context, userID uuid.UUID) (FavoriteIDsDTO, error)
	Add(ctx context.Context, userID, productID uuid.UUID) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
}

type service struct {
	repo     *Repository
	products productFinder
}

// NewService builds a favorites service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("favorites repo is required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repo is required")
	}
	return &service{repo: params.Repo, products: params.Products}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (FavoritesPage, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return FavoritesPage{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.List(ctx, userID, cursor, limit)
	if err != nil {
		return FavoritesPage{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorites")
	}
	page := pagination.Trim(rows, limit, func(f models.ProductFavorite) pagination.Cursor {
		return pagination.Cursor{CreatedAt: f.CreatedAt, ID: f.ID}
	})

	items := make([]FavoriteDTO, 0, len(page.Items))
	for _, row := range page.Items {
		if row.Product == nil {
			continue
		}
		items = append(items, FavoriteDTO{
			ID:        row.ID,
			CreatedAt: row.CreatedAt,
			Product:   catalog.NewProductDTO(row.Product),
		})
	}
	return FavoritesPage{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) ListIDs(ctx context.Context, userID uuid.UUID) (FavoriteIDsDTO, error) {
	ids, err := s.repo.ListProductIDs(ctx, userID)
	if err != nil {
		return FavoriteIDsDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorite ids")
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return FavoriteIDsDTO{ProductIDs: ids}, nil
}

// Add ensures the product exists and adds it; liking twice is not an error.
func (s *service) Add(ctx context.Context, userID, productID uuid.UUID) error {
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if _, err := s.products.FindProductByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if err := s.repo.Add(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add favorite")
	}
	return nil
}

// Remove drops the favorite regardless of prior state.
func (s *service) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.repo.Remove(ctx, userID, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove favorite")
	}
	return nil
}
