package users

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists accounts in the users table. Lookups return
// gorm.ErrRecordNotFound for a missing row.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) table(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{})
}

func (r *Repository) byID(ctx context.Context, id uuid.UUID) *gorm.DB {
	return r.table(ctx).Where("id = ?", id)
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail expects email already lower-cased.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) first(ctx context.Context, query string, arg any) (*models.User, error) {
	user := new(models.User)
	if err := r.db.WithContext(ctx).Where(query, arg).Take(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// ListStaffEmails returns every active staff or superuser address, sorted.
func (r *Repository) ListStaffEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := r.table(ctx).
		Where("is_active AND (is_staff OR is_superuser)").
		Order("email").
		Pluck("email", &emails).Error
	return emails, err
}

// UpdateLastLogin writes the column without touching updated_at.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.byID(ctx, id).UpdateColumn("last_login_at", at).Error
}

// UpdateProfile writes cols and reports gorm.ErrRecordNotFound when no row matched.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}
	res := r.byID(ctx, id).Updates(cols)
	switch {
	case res.Error != nil:
		return res.Error
	case res.RowsAffected == 0:
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.byID(ctx, id).Update("password_hash", hash).Error
}

// HasSuperuser reports whether any active superuser exists.
func (r *Repository) HasSuperuser(ctx context.Context) (bool, error) {
	var n int64
	err := r.table(ctx).Where("is_active AND is_superuser").Count(&n).Error
	return n > 0, err
}

// Promote makes the user staff and superuser.
func (r *Repository) Promote(ctx context.Context, id uuid.UUID) error {
	return r.byID(ctx, id).Updates(map[string]any{"is_staff": true, "is_superuser": true}).Error
}

func (r *Repository) SetStaff(ctx context.Context, id uuid.UUID, staff bool) error {
	return r.byID(ctx, id).Update("is_staff", staff).Error
}
