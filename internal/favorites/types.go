package favorites

import (
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/internal/catalog"
	"github.com/muxdry/storefront-backend/pkg/pagination"
)

// FavoriteDTO is one liked product.
type FavoriteDTO struct {
	ID        uuid.UUID          `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Product   catalog.ProductDTO `json:"product"`
}

// FavoritesPage is a cursor page of favorites, newest first.
type FavoritesPage = pagination.Page[FavoriteDTO]

// FavoriteIDsDTO lists every liked product id, for heart toggles on listings.
type FavoriteIDsDTO struct {
	ProductIDs []uuid.UUID `json:"product_ids"`
}
