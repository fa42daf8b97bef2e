package reviews

import (
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/pagination"
)

// Sort orders a product's reviews.
type Sort string

const (
	SortRecent Sort = "recent"
	SortRating Sort = "rating"
)

const (
	defaultTitle   = "My review"
	maxTitleLength = 200
)

const (
	defaultProductLimit = 3
	maxProductLimit     = 50
)

// ParseSort maps query input to a Sort; empty means recent.
func ParseSort(value string) (Sort, bool) {
	switch Sort(value) {
	case "", SortRecent:
		return SortRecent, true
	case SortRating:
		return SortRating, true
	}
	return "", false
}

type SubmitInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Rating    int       `json:"rating" validate:"required,min=1,max=5"`
	Title     string    `json:"title"`
	Comment   string    `json:"comment" validate:"required,max=5000"`
}

type UpdateInput struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Title   *string `json:"title"`
	Comment *string `json:"comment" validate:"omitempty,max=5000"`
}

type ReviewDTO struct {
	ID               uuid.UUID `json:"id"`
	ProductID        uuid.UUID `json:"product_id"`
	ProductName      string    `json:"product_name,omitempty"`
	UserID           uuid.UUID `json:"user_id"`
	AuthorName       string    `json:"author_name"`
	Rating           int       `json:"rating"`
	Title            string    `json:"title"`
	Comment          string    `json:"comment"`
	VerifiedPurchase bool      `json:"verified_purchase"`
	Approved         bool      `json:"approved"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProductReviews is the review block shown on a product page.
type ProductReviews struct {
	Reviews       []ReviewDTO `json:"reviews"`
	Total         int64       `json:"total"`
	Showing       int         `json:"showing"`
	HasMore       bool        `json:"has_more"`
	AverageRating float64     `json:"average_rating"`
}

type ReviewPage = pagination.Page[ReviewDTO]

func newReviewDTO(r *models.Review) ReviewDTO {
	dto := ReviewDTO{
		ID:               r.ID,
		ProductID:        r.ProductID,
		UserID:           r.UserID,
		Rating:           r.Rating,
		Title:            r.Title,
		Comment:          r.Comment,
		VerifiedPurchase: r.VerifiedPurchase,
		Approved:         r.Approved,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.User != nil {
		dto.AuthorName = r.User.FullName()
	}
	if r.Product != nil {
		dto.ProductName = r.Product.Name
	}
	return dto
}
