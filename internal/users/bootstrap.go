package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/security"
	"gorm.io/gorm"
)

// BootstrapOutcome says what EnsureSuperuser did.
type BootstrapOutcome string

const (
	BootstrapSkipped  BootstrapOutcome = "skipped"
	BootstrapExists   BootstrapOutcome = "exists"
	BootstrapPromoted BootstrapOutcome = "promoted"
	BootstrapCreated  BootstrapOutcome = "created"
)

type bootstrapRepository interface {
	HasSuperuser(ctx context.Context) (bool, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto CreateUserDTO) (*models.User, error)
	Promote(ctx context.Context, id uuid.UUID) error
}

// EnsureSuperuser creates the configured superuser unless one already exists.
// An existing account with the configured email is promoted and keeps its password.
func EnsureSuperuser(ctx context.Context, repo bootstrapRepository, cfg config.BootstrapConfig, passwordCfg config.PasswordConfig, logg *logger.Logger) (BootstrapOutcome, error) {
	if !cfg.Enabled() {
		return BootstrapSkipped, nil
	}
	exists, err := repo.HasSuperuser(ctx)
	if err != nil {
		return "", fmt.Errorf("check superuser: %w", err)
	}
	if exists {
		return BootstrapExists, nil
	}

	email := strings.ToLower(strings.TrimSpace(cfg.SuperuserEmail))
	user, err := repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if err := repo.Promote(ctx, user.ID); err != nil {
			return "", fmt.Errorf("promote %s: %w", email, err)
		}
		logBootstrap(ctx, logg, user.ID, BootstrapPromoted)
		return BootstrapPromoted, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", fmt.Errorf("lookup %s: %w", email, err)
	}

	if err := ValidateNewPassword(cfg.SuperuserPassword, passwordCfg.MinLength); err != nil {
		return "", err
	}
	hash, err := security.HashPassword(cfg.SuperuserPassword, passwordCfg)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	user, err = repo.Create(ctx, CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Admin",
		IsSuperuser:  true,
	})
	if err != nil {
		return "", fmt.Errorf("create superuser: %w", err)
	}
	logBootstrap(ctx, logg, user.ID, BootstrapCreated)
	return BootstrapCreated, nil
}

func logBootstrap(ctx context.Context, logg *logger.Logger, id uuid.UUID, outcome BootstrapOutcome) {
	if logg == nil {
		return
	}
	logg.Info(logg.WithFields(ctx, map[string]any{"user_id": id.String(), "outcome": string(outcome)}), "bootstrap superuser")
}
