package cart

import (
	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/shopspring/decimal"
)

// ProductSummary is the slice of a product shown on a cart line.
type ProductSummary struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	ImageURL *string         `json:"image_url,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Stock    *int            `json:"stock,omitempty"`
}

// ItemDTO is one cart line priced at the live product price.
type ItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	Product   ProductSummary  `json:"product"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartDTO is the cart with its derived totals.
type CartDTO struct {
	ID        uuid.UUID       `json:"id"`
	Items     []ItemDTO       `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

// AddItemInput adds quantity units of a product.
type AddItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"omitempty,gte=1"`
}

// UpdateItemInput sets an absolute quantity or applies a delta. Quantity wins when both are set.
type UpdateItemInput struct {
	Quantity *int `json:"quantity"`
	Delta    *int `json:"delta"`
}

// LineTotal is the live unit price times quantity.
func LineTotal(item models.CartItem) decimal.Decimal {
	if item.Product == nil {
		return decimal.Zero
	}
	return item.Product.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// NewCartDTO prices every line and sums the totals.
func NewCartDTO(cart *models.Cart) *CartDTO {
	dto := &CartDTO{ID: cart.ID, Items: make([]ItemDTO, 0, len(cart.Items)), Total: decimal.Zero}
	for _, item := range cart.Items {
		if item.Product == nil {
			continue
		}
		line := LineTotal(item)
		dto.Items = append(dto.Items, ItemDTO{
			ID: item.ID,
			Product: ProductSummary{
				ID:       item.Product.ID,
				Name:     item.Product.Name,
				Slug:     item.Product.Slug,
				ImageURL: item.Product.ImageURL,
				Price:    item.Product.Price,
				Stock:    item.Product.Stock,
			},
			Quantity:  item.Quantity,
			UnitPrice: item.Product.Price,
			LineTotal: line,
		})
		dto.Total = dto.Total.Add(line)
		dto.ItemCount += item.Quantity
	}
	return dto
}
