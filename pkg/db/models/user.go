package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a storefront account. Profile fields are optional.
type User struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email        string     `gorm:"column:email;not null;uniqueIndex:ux_users_email"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	FirstName    string     `gorm:"column:first_name;not null;default:''"`
	LastName     string     `gorm:"column:last_name;not null;default:''"`
	Phone        *string    `gorm:"column:phone"`
	Document     *string    `gorm:"column:document"`
	City         *string    `gorm:"column:city"`
	Address      *string    `gorm:"column:address"`
	ShortAddress *string    `gorm:"column:short_address"`
	Country      *string    `gorm:"column:country"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	IsStaff      bool       `gorm:"column:is_staff;not null;default:false"`
	IsSuperuser  bool       `gorm:"column:is_superuser;not null;default:false"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// CanManageOrders reports staff level access; superusers are always staff.
func (u *User) CanManageOrders() bool {
	return u != nil && (u.IsStaff || u.IsSuperuser)
}

// FullName joins first and last name, falling back to the email.
func (u *User) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Email
	}
	return name
}
