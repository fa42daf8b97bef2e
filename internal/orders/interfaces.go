package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/enums"
	"github.com/muxdry/storefront-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository defines persistence operations for orders and the stock they consume.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	OrderNumberExists(ctx context.Context, number string) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, cols map[string]any) error
	LockProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	IncrementSales(ctx context.Context, productID uuid.UUID, qty int) error
	List(ctx context.Context, query ListQuery) ([]models.Order, error)
	CountByStatus(ctx context.Context, userID uuid.UUID, statuses []enums.OrderStatus) (int64, error)
}

// ListQuery is the repository side of every order listing.
type ListQuery struct {
	UserID    *uuid.UUID
	Statuses  []enums.OrderStatus
	Since     *time.Time
	DayStart  *time.Time
	Search    string
	SearchAll bool
	Cursor    *pagination.Cursor
	Limit     int
}
