package reviews

import (
	"context"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/enums"
	"github.com/muxdry/storefront-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, review *models.Review) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(review).Error
}

func (r *Repository) Exists(ctx context.Context, productID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Where("product_id = ? AND user_id = ?", productID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).Preload("User").Preload("Product").First(&review, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// HasDeliveredPurchase reports whether userID received productID in a delivered order.
func (r *Repository) HasDeliveredPurchase(ctx context.Context, userID, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ? AND orders.status = ? AND order_items.product_id = ?", userID, enums.OrderStatusDelivered, productID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Review{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListForProduct returns up to limit approved reviews.
func (r *Repository) ListForProduct(ctx context.Context, productID uuid.UUID, sort Sort, limit int) ([]models.Review, error) {
	query := r.db.WithContext(ctx).
		Preload("User").
		Where("product_id = ? AND approved = ?", productID, true)
	if sort == SortRating {
		query = query.Order("rating DESC")
	}
	var rows []models.Review
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

type productStats struct {
	Total   int64
	Average float64
}

// Stats counts approved reviews and averages their rating.
func (r *Repository) Stats(ctx context.Context, productID uuid.UUID) (productStats, error) {
	var stats productStats
	err := r.db.WithContext(ctx).
		Model(&models.Review{}).
		Select("COUNT(*) AS total, COALESCE(AVG(rating), 0) AS average").
		Where("product_id = ? AND approved = ?", productID, true).
		Scan(&stats).Error
	return stats, err
}

// List pages reviews newest first; a nil userID lists every review.
func (r *Repository) List(ctx context.Context, userID *uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Review, error) {
	query := r.db.WithContext(ctx).Model(&models.Review{}).Preload("User").Preload("Product")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	var rows []models.Review
	err := pagination.NewestFirst(query, "", cursor).Limit(limit + 1).Find(&rows).Error
	return rows, err
}
