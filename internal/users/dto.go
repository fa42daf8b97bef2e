package users

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID           uuid.UUID      `json:"id"`
	Email        string         `json:"email"`
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	FullName     string         `json:"full_name"`
	Phone        *string        `json:"phone,omitempty"`
	Document     *string        `json:"document,omitempty"`
	City         *string        `json:"city,omitempty"`
	Address      *string        `json:"address,omitempty"`
	ShortAddress *string        `json:"short_address,omitempty"`
	Country      *string        `json:"country,omitempty"`
	Role         enums.UserRole `json:"role"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	IsStaff      bool
	IsSuperuser  bool
}

// UpdateProfileRequest carries the editable profile fields. Nil leaves a field untouched,
// an empty string clears it.
type UpdateProfileRequest struct {
	FirstName    *string `json:"first_name" validate:"omitempty,max=150"`
	LastName     *string `json:"last_name" validate:"omitempty,max=150"`
	Phone        *string `json:"phone" validate:"omitempty,max=32"`
	Document     *string `json:"document" validate:"omitempty,max=32"`
	City         *string `json:"city" validate:"omitempty,max=100"`
	Address      *string `json:"address" validate:"omitempty,max=500"`
	ShortAddress *string `json:"short_address" validate:"omitempty,max=200"`
	Country      *string `json:"country" validate:"omitempty,max=100"`
}

// ChangePasswordRequest is the payload of the change password endpoint.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// GrantStaffRequest names the account to promote.
type GrantStaffRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// GrantStaffResult reports whether the grant changed anything.
type GrantStaffResult struct {
	User         *UserDTO `json:"user"`
	AlreadyStaff bool     `json:"already_staff"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		FullName:     u.FullName(),
		Phone:        u.Phone,
		Document:     u.Document,
		City:         u.City,
		Address:      u.Address,
		ShortAddress: u.ShortAddress,
		Country:      u.Country,
		Role:         enums.RoleFor(u.IsStaff, u.IsSuperuser),
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        strings.ToLower(strings.TrimSpace(c.Email)),
		PasswordHash: c.PasswordHash,
		FirstName:    strings.TrimSpace(c.FirstName),
		LastName:     strings.TrimSpace(c.LastName),
		Phone:        c.Phone,
		IsStaff:      c.IsStaff || c.IsSuperuser,
		IsSuperuser:  c.IsSuperuser,
	}
}

// columns maps the request onto update columns. Blank optional values become NULL.
func (r UpdateProfileRequest) columns() map[string]any {
	cols := map[string]any{}
	if r.FirstName != nil {
		cols["first_name"] = strings.TrimSpace(*r.FirstName)
	}
	if r.LastName != nil {
		cols["last_name"] = strings.TrimSpace(*r.LastName)
	}
	optional := map[string]*string{
		"phone":         r.Phone,
		"document":      r.Document,
		"city":          r.City,
		"address":       r.Address,
		"short_address": r.ShortAddress,
		"country":       r.Country,
	}
	for col, value := range optional {
		if value == nil {
			continue
		}
		trimmed := strings.TrimSpace(*value)
		if trimmed == "" {
			cols[col] = nil
			continue
		}
		cols[col] = trimmed
	}
	return cols
}
