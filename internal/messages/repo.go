package messages

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// OrderOwner returns the user that placed orderID.
func (r *Repository) OrderOwner(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Select("id", "user_id").First(&order, "id = ?", orderID).Error
	return order.UserID, err
}

func (r *Repository) Create(ctx context.Context, msg *models.OrderMessage) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(msg).Error
}

func (r *Repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderMessage, error) {
	var rows []models.OrderMessage
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("order_id = ?", orderID).
		Order("created_at ASC").Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// MarkReadByOwner stamps read_at on admin messages the owner has not seen yet.
func (r *Repository) MarkReadByOwner(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderMessage{}).
		Where("order_id = ? AND is_from_admin = ? AND read_at IS NULL", orderID, true).
		UpdateColumn("read_at", at).Error
}

// MarkReadByAdmin stamps read_by_admin_at on owner messages staff has not seen yet.
func (r *Repository) MarkReadByAdmin(ctx context.Context, orderID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderMessage{}).
		Where("order_id = ? AND is_from_admin = ? AND read_by_admin_at IS NULL", orderID, false).
		UpdateColumn("read_by_admin_at", at).Error
}

func (r *Repository) CountUnreadForOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderMessage{}).
		Where("order_id = ? AND is_from_admin = ? AND read_at IS NULL", orderID, true).
		Count(&count).Error
	return count, err
}

func (r *Repository) CountUnreadForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderMessage{}).
		Joins("JOIN orders ON orders.id = order_messages.order_id").
		Where("orders.user_id = ? AND order_messages.is_from_admin = ? AND order_messages.read_at IS NULL", userID, true).
		Count(&count).Error
	return count, err
}

func (r *Repository) CountUnreadForAdmin(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderMessage{}).
		Where("is_from_admin = ? AND read_by_admin_at IS NULL", false).
		Count(&count).Error
	return count, err
}
