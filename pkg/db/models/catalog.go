package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category groups products under a slug.
type Category struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Slug        string    `gorm:"column:slug;not null;uniqueIndex:ux_categories_slug"`
	Description string    `gorm:"column:description;not null;default:''"`
	ImageURL    *string   `gorm:"column:image_url"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Product is a sellable catalog entry. A nil Stock means stock is not tracked.
type Product struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	CategoryID    *uuid.UUID       `gorm:"column:category_id;type:uuid;index"`
	Category      *Category        `gorm:"foreignKey:CategoryID"`
	Name          string           `gorm:"column:name;not null"`
	Slug          string           `gorm:"column:slug;not null;uniqueIndex:ux_products_slug"`
	Description   string           `gorm:"column:description;not null;default:''"`
	Price         decimal.Decimal  `gorm:"column:price;type:numeric(10,2);not null"`
	OldPrice      *decimal.Decimal `gorm:"column:old_price;type:numeric(10,2)"`
	Stock         *int             `gorm:"column:stock"`
	SKU           *string          `gorm:"column:sku;uniqueIndex:ux_products_sku"`
	ImageURL      *string          `gorm:"column:image_url"`
	ImageHoverURL *string          `gorm:"column:image_hover_url"`
	IsFeatured    bool             `gorm:"column:is_featured;not null;default:false"`
	IsBestSeller  bool             `gorm:"column:is_best_seller;not null;default:false"`
	IsNew         bool             `gorm:"column:is_new;not null;default:false"`
	SalesCount    int              `gorm:"column:sales_count;not null;default:0"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// IsOnSale reports whether a previous price higher than the current one is set.
func (p *Product) IsOnSale() bool {
	return p.OldPrice != nil && p.OldPrice.GreaterThan(p.Price)
}

// DiscountPercent is the rounded percentage saved against OldPrice.
func (p *Product) DiscountPercent() int {
	if !p.IsOnSale() || p.OldPrice.IsZero() {
		return 0
	}
	saved := p.OldPrice.Sub(p.Price).Div(*p.OldPrice).Mul(decimal.NewFromInt(100))
	return int(saved.Round(0).IntPart())
}

// HasStockFor reports whether qty units are available.
func (p *Product) HasStockFor(qty int) bool {
	return p.Stock == nil || *p.Stock >= qty
}

// ProductFavorite marks a product as liked by a user.
type ProductFavorite struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_product_favorites_user_product"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_product_favorites_user_product;index"`
	Product   *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (f *ProductFavorite) BeforeCreate(*gorm.DB) error {
	ensureID(&f.ID)
	return nil
}
