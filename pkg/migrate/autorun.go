package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/db"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

// ShouldAutoRun reports whether a binary may migrate on boot. Only dev
// environments with BAZAAR_AUTO_MIGRATE set qualify; everywhere else the
// migrate binary is run explicitly.
func ShouldAutoRun(app config.AppConfig) bool {
	return app.IsDev() && app.AutoMigrate
}

// MaybeRunDev brings the schema up to date when ShouldAutoRun allows it and
// logs the version change.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !ShouldAutoRun(cfg.App) {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	before, err := Version(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	if err := Run(ctx, sqlDB, "", "up"); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	after, err := Version(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"from_version": before,
		"to_version":   after,
	}), "schema migrated")
	return nil
}
