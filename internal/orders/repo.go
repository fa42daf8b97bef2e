package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/enums"
	"github.com/muxdry/storefront-backend/pkg/pagination"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository binds the orders repository to conn.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts the order together with its items.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("User").Create(order).Error
}

func (r *repository) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("order_number = ?", number).Count(&count).Error
	return count > 0, err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC").Order("id ASC") }).
		Preload("User").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindForUpdate locks the order row on postgres and loads its items.
func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) UpdateOrder(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LockProduct re-reads the product under a row lock so checkout prices and stock are current.
func (r *repository) LockProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementStock subtracts qty only while enough stock remains. Untracked stock always succeeds.
func (r *repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND (stock IS NULL OR stock >= ?)", productID, qty).
		UpdateColumn("stock", gorm.Expr("CASE WHEN stock IS NULL THEN NULL ELSE stock - ? END", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) IncrementSales(ctx context.Context, productID uuid.UUID, qty int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("sales_count", gorm.Expr("sales_count + ?", qty)).Error
}

// List returns up to Limit+1 orders, newest first, with items and owner loaded.
func (r *repository) List(ctx context.Context, q ListQuery) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if q.UserID != nil {
		query = query.Where("orders.user_id = ?", *q.UserID)
	}
	if len(q.Statuses) > 0 {
		query = query.Where("orders.status IN ?", q.Statuses)
	}
	if q.Since != nil {
		query = query.Where("orders.created_at >= ?", *q.Since)
	}
	if q.DayStart != nil {
		query = query.Where("orders.created_at >= ? AND orders.created_at < ?", *q.DayStart, q.DayStart.AddDate(0, 0, 1))
	}
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		like := "%" + term + "%"
		if q.SearchAll {
			query = query.
				Joins("JOIN users ON users.id = orders.user_id").
				Where("LOWER(orders.order_number) LIKE ? OR LOWER(users.email) LIKE ? OR LOWER(orders.notes) LIKE ?", like, like, like)
		} else {
			query = query.Where("LOWER(orders.order_number) LIKE ? OR LOWER(orders.notes) LIKE ?", like, like)
		}
	}
	query = pagination.NewestFirst(query, "orders", q.Cursor)

	var rows []models.Order
	err := query.
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("created_at ASC").Order("id ASC") }).
		Preload("User").
		Limit(q.Limit + 1).
		Find(&rows).Error
	return rows, err
}

func (r *repository) CountByStatus(ctx context.Context, userID uuid.UUID, statuses []enums.OrderStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ? AND status IN ?", userID, statuses).
		Count(&count).Error
	return count, err
}
