package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// CartRepository defines the persistence surface the cart and checkout flows depend on.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	FindItem(ctx context.Context, cartID, itemID uuid.UUID) (*models.CartItem, error)
	FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error)
	CreateItem(ctx context.Context, item *models.CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, itemID uuid.UUID) error
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
}
