package favorites

import (
	"context"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository encapsulates favorites persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a favorites repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add inserts a favorite and ignores duplicates.
func (r *Repository) Add(ctx context.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil || productID == uuid.Nil {
		return gorm.ErrInvalidValue
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoNothing: true,
		}).
		Create(&models.ProductFavorite{UserID: userID, ProductID: productID}).
		Error
}

// Remove deletes the favorite if it exists.
func (r *Repository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.ProductFavorite{}).
		Error
}

// List returns up to limit+1 favorites past cursor so callers can detect a next page.
func (r *Repository) List(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.ProductFavorite, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ProductFavorite{}).
		Preload("Product").
		Preload("Product.Category").
		Where("user_id = ?", userID)
	query = pagination.NewestFirst(query, "", cursor)

	var rows []models.ProductFavorite
	if err := query.Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListProductIDs returns every product the user liked.
func (r *Repository) ListProductIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ProductFavorite{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("product_id", &ids).Error
	return ids, err
}
