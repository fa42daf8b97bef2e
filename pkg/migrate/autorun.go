package migrate

import (
	"context"
	"fmt"

	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/db"
	"github.com/muxdry/storefront-backend/pkg/db/models"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

// MaybeRunDev migrates the schema on boot in dev when the auto-migrate flag is on.
// Postgres runs the embedded goose migrations; sqlite falls back to gorm AutoMigrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": client.Dialect()})

	if client.Dialect() == db.DriverSQLite {
		logg.Info(ctx, "running gorm auto-migrate (dev sqlite)")
		if err := client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	migrator, err := Open(sqlDB, "")
	if err != nil {
		return err
	}
	applied, err := migrator.Apply(ctx, "up")
	if err != nil {
		return err
	}
	logg.Info(logg.WithField(ctx, "applied", len(applied)), "goose migrations completed")
	return nil
}
