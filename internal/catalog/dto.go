package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// CategoryDTO is the public category shape.
type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	ImageURL    *string   `json:"image_url,omitempty"`
}

// ProductDTO exposes a product with its derived pricing flags.
type ProductDTO struct {
	ID              uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	Slug            string           `json:"slug"`
	Description     string           `json:"description"`
	Category        *CategoryDTO     `json:"category,omitempty"`
	Price           decimal.Decimal  `json:"price"`
	OldPrice        *decimal.Decimal `json:"old_price,omitempty"`
	IsOnSale        bool             `json:"is_on_sale"`
	DiscountPercent int              `json:"discount_percent"`
	Stock           *int             `json:"stock,omitempty"`
	InStock         bool             `json:"in_stock"`
	SKU             *string          `json:"sku,omitempty"`
	ImageURL        *string          `json:"image_url,omitempty"`
	ImageHoverURL   *string          `json:"image_hover_url,omitempty"`
	IsFeatured      bool             `json:"is_featured"`
	IsBestSeller    bool             `json:"is_best_seller"`
	IsNew           bool             `json:"is_new"`
	SalesCount      int              `json:"sales_count"`
	CreatedAt       time.Time        `json:"created_at"`
}

// HomeListing feeds the storefront landing page.
type HomeListing struct {
	Featured    []ProductDTO `json:"featured"`
	BestSellers []ProductDTO `json:"best_sellers"`
	NewArrivals []ProductDTO `json:"new_arrivals"`
}

// ProductListResult is one numbered page of products.
type ProductListResult struct {
	Items      []ProductDTO `json:"items"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	Total      int64        `json:"total"`
	TotalPages int          `json:"total_pages"`
}

// CategoryInput creates or replaces a category.
type CategoryInput struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Slug        string  `json:"slug" validate:"omitempty,max=120"`
	Description string  `json:"description" validate:"max=2000"`
	ImageURL    *string `json:"image_url" validate:"omitempty,url"`
}

// CreateProductInput captures the staff product form.
type CreateProductInput struct {
	CategoryID   *uuid.UUID       `json:"category_id"`
	Name         string           `json:"name" validate:"required,max=200"`
	Slug         string           `json:"slug" validate:"omitempty,max=220"`
	Description  string           `json:"description" validate:"max=5000"`
	Price        decimal.Decimal  `json:"price"`
	OldPrice     *decimal.Decimal `json:"old_price"`
	Stock        *int             `json:"stock" validate:"omitempty,gte=0"`
	SKU          *string          `json:"sku" validate:"omitempty,max=64"`
	IsFeatured   bool             `json:"is_featured"`
	IsBestSeller bool             `json:"is_best_seller"`
	IsNew        bool             `json:"is_new"`
}

// UpdateProductInput applies a partial change. ClearStock and ClearOldPrice null the column.
type UpdateProductInput struct {
	CategoryID    *uuid.UUID       `json:"category_id"`
	Name          *string          `json:"name" validate:"omitempty,max=200"`
	Slug          *string          `json:"slug" validate:"omitempty,max=220"`
	Description   *string          `json:"description" validate:"omitempty,max=5000"`
	Price         *decimal.Decimal `json:"price"`
	OldPrice      *decimal.Decimal `json:"old_price"`
	ClearOldPrice bool             `json:"clear_old_price"`
	Stock         *int             `json:"stock" validate:"omitempty,gte=0"`
	ClearStock    bool             `json:"clear_stock"`
	SKU           *string          `json:"sku" validate:"omitempty,max=64"`
	IsFeatured    *bool            `json:"is_featured"`
	IsBestSeller  *bool            `json:"is_best_seller"`
	IsNew         *bool            `json:"is_new"`
}

func NewCategoryDTO(c *models.Category) *CategoryDTO {
	if c == nil {
		return nil
	}
	return &CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		ImageURL:    c.ImageURL,
	}
}

func NewProductDTO(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:              p.ID,
		Name:            p.Name,
		Slug:            p.Slug,
		Description:     p.Description,
		Category:        NewCategoryDTO(p.Category),
		Price:           p.Price,
		OldPrice:        p.OldPrice,
		IsOnSale:        p.IsOnSale(),
		DiscountPercent: p.DiscountPercent(),
		Stock:           p.Stock,
		InStock:         p.HasStockFor(1),
		SKU:             p.SKU,
		ImageURL:        p.ImageURL,
		ImageHoverURL:   p.ImageHoverURL,
		IsFeatured:      p.IsFeatured,
		IsBestSeller:    p.IsBestSeller,
		IsNew:           p.IsNew,
		SalesCount:      p.SalesCount,
		CreatedAt:       p.CreatedAt,
	}
}

func productDTOs(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewProductDTO(&rows[i]))
	}
	return out
}

// Slugify lower-cases s and joins its ASCII letter and digit runs with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func roundPtr(value *decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	rounded := value.Round(2)
	return &rounded
}
