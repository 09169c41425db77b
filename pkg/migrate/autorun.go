package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/kiko-social-backend/pkg/config"
	"github.com/angelmondragon/kiko-social-backend/pkg/db"
	"github.com/angelmondragon/kiko-social-backend/pkg/logger"
)

// MaybeRun applies pending migrations on boot for the SQL store. An embedded
// sqlite database always starts empty, so it is migrated unconditionally;
// postgres only when running in dev with auto-migrate enabled.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client, dir string) error {
	if cfg.Store.Backend != config.StoreBackendSQL {
		return nil
	}
	if !cfg.DB.IsSQLite() && !(cfg.App.IsDev() && cfg.DB.AutoMigrate) {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "dir": dir, "driver": cfg.DB.Driver}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "running goose migrations on boot")

	if err := Run(ctx, sqlDB, Dialect(cfg.DB.Driver), dir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
