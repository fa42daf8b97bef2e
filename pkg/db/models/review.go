package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review is a user's rating of a product. Approved=false hides it.
type Review struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID        uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_reviews_product_user"`
	Product          *Product  `gorm:"foreignKey:ProductID"`
	UserID           uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_reviews_product_user"`
	User             *User     `gorm:"foreignKey:UserID"`
	Rating           int       `gorm:"column:rating;not null"`
	Title            string    `gorm:"column:title;not null"`
	Comment          string    `gorm:"column:comment;not null"`
	VerifiedPurchase bool      `gorm:"column:verified_purchase;not null;default:false"`
	Approved         bool      `gorm:"column:approved;not null;default:true"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Review) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
