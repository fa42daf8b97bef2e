package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes the per-user cart.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error)
}

// ServiceParams bundles the cart dependencies.
type ServiceParams struct {
	Repo     CartRepository
	Tx       txRunner
	Products productLoader
}

type service struct {
	repo     CartRepository
	tx       txRunner
	products productLoader
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	return &service{repo: params.Repo, tx: params.Tx, products: params.Products}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return NewCartDTO(cart), nil
}

// AddItem merges into an existing line by summing quantities.
func (s *service) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartDTO, error) {
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if _, err := s.products.FindProductByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.GetOrCreate(ctx, userID)
		if err != nil {
			return err
		}
		existing, err := repo.FindItemByProduct(ctx, cart.ID, input.ProductID)
		switch {
		case err == nil:
			return repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity+quantity)
		case errors.Is(err, gorm.ErrRecordNotFound):
			return repo.CreateItem(ctx, &models.CartItem{CartID: cart.ID, ProductID: input.ProductID, Quantity: quantity})
		default:
			return err
		}
	})
	if err != nil {
		if db.IsUniqueViolation(err, "ux_cart_items_cart_product") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart changed concurrently, retry")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart item")
	}
	return s.Get(ctx, userID)
}

// UpdateItem sets or shifts a line quantity. An absolute quantity below 1 removes
// the line; a delta never takes the line below 1.
func (s *service) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, input UpdateItemInput) (*CartDTO, error) {
	if input.Quantity == nil && input.Delta == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity or delta is required")
	}
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if input.Quantity != nil {
		if *input.Quantity < 1 {
			if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
			}
			return s.Get(ctx, userID)
		}
		if err := s.repo.UpdateItemQuantity(ctx, item.ID, *input.Quantity); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		return s.Get(ctx, userID)
	}

	next := item.Quantity + *input.Delta
	if next < 1 {
		next = 1
	}
	if err := s.repo.UpdateItemQuantity(ctx, item.ID, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
	}
	return s.Get(ctx, userID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*CartDTO, error) {
	item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, item.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
	}
	return s.Get(ctx, userID)
}

func (s *service) ownedItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartItem, error) {
	cart, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	item, err := s.repo.FindItem(ctx, cart.ID, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	return item, nil
}
