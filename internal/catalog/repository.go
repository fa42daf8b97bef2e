package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository reads and writes categories and products.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *Repository) UpdateCategory(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *Repository) UpdateProduct(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Preload("Category").Where("slug = ?", slug).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts returns one page of products and the total matching count.
func (r *Repository) ListProducts(ctx context.Context, in ListProductsInput) ([]models.Product, int64, error) {
	query := applyProductFilters(r.db.WithContext(ctx).Model(&models.Product{}), in.Filters)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	for _, clause := range in.Sort.orderClauses() {
		query = query.Order(clause)
	}
	var rows []models.Product
	err := query.
		Preload("Category").
		Offset((in.Page - 1) * in.PageSize).
		Limit(in.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ListFlagged returns the newest products with the boolean column set.
func (r *Repository) ListFlagged(ctx context.Context, column string, limit int) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where(column+" = ?", true).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func applyProductFilters(query *gorm.DB, f ProductListFilters) *gorm.DB {
	if slug := strings.TrimSpace(f.CategorySlug); slug != "" {
		query = query.
			Joins("JOIN categories ON categories.id = products.category_id").
			Where("categories.slug = ?", slug)
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		like := "%" + q + "%"
		query = query.Where(
			"LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ? OR LOWER(COALESCE(products.sku, '')) LIKE ?",
			like, like, like,
		)
	}
	if f.Featured != nil {
		query = query.Where("products.is_featured = ?", *f.Featured)
	}
	if f.BestSeller != nil {
		query = query.Where("products.is_best_seller = ?", *f.BestSeller)
	}
	if f.IsNew != nil {
		query = query.Where("products.is_new = ?", *f.IsNew)
	}
	if f.OnSale != nil {
		if *f.OnSale {
			query = query.Where("products.old_price IS NOT NULL AND products.old_price > products.price")
		} else {
			query = query.Where("products.old_price IS NULL OR products.old_price <= products.price")
		}
	}
	return query
}
