package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	pkgAuth "github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/security"
	"gorm.io/gorm"
)

// Service covers the account operations available after login.
type Service interface {
	Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserDTO, error)
	ChangePassword(ctx context.Context, actor pkgAuth.Actor, req ChangePasswordRequest) error
	GrantStaff(ctx context.Context, actor pkgAuth.Actor, req GrantStaffRequest) (*GrantStaffResult, error)
}

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, cols map[string]any) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	SetStaff(ctx context.Context, id uuid.UUID, staff bool) error
}

type sessionRevoker interface {
	Revoke(ctx context.Context, accessID string) error
}

// ServiceParams bundles the dependencies of the account service.
type ServiceParams struct {
	Repo           userRepository
	Sessions       sessionRevoker
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

type service struct {
	repo        userRepository
	sessions    sessionRevoker
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		repo:        params.Repo,
		sessions:    params.Sessions,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
	}, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserDTO, error) {
	if err := s.repo.UpdateProfile(ctx, userID, req.columns()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update profile")
	}
	return s.Profile(ctx, userID)
}

func (s *service) ChangePassword(ctx context.Context, actor pkgAuth.Actor, req ChangePasswordRequest) error {
	user, err := s.load(ctx, actor.UserID)
	if err != nil {
		return err
	}

	valid, err := security.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return pkgerrors.New(pkgerrors.CodeValidation, "current password is incorrect").
			WithDetails(map[string]string{"current_password": "incorrect"})
	}
	if err := ValidateNewPassword(req.NewPassword, s.passwordCfg.MinLength); err != nil {
		return err
	}
	if req.NewPassword != req.ConfirmPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "passwords do not match").
			WithDetails(map[string]string{"confirm_password": "must match new_password"})
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update password")
	}

	if actor.AccessID != "" {
		if err := s.sessions.Revoke(ctx, actor.AccessID); err != nil && s.logg != nil {
			s.logg.Error(ctx, "revoke session after password change", err)
		}
	}
	return nil
}

func (s *service) GrantStaff(ctx context.Context, actor pkgAuth.Actor, req GrantStaffRequest) (*GrantStaffResult, error) {
	if !actor.IsSuperuser() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only superusers can grant staff access")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "no user with that email")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	if user.CanManageOrders() {
		return &GrantStaffResult{User: FromModel(user), AlreadyStaff: true}, nil
	}

	if err := s.repo.SetStaff(ctx, user.ID, true); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "grant staff")
	}
	user.IsStaff = true
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{"granted_user_id": user.ID.String()})
		s.logg.Info(logCtx, "staff access granted")
	}
	return &GrantStaffResult{User: FromModel(user)}, nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

// ValidateNewPassword enforces the minimum length shared by registration and password changes.
func ValidateNewPassword(password string, minLength int) error {
	if minLength <= 0 {
		minLength = 8
	}
	if len(password) < minLength {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "password must be at least %d characters", minLength).
			WithDetails(map[string]string{"password": fmt.Sprintf("min=%d", minLength)})
	}
	return nil
}
