package migrate

import (
	"context"
	"fmt"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on API startup in dev when the
// auto-migrate flag is on. Sqlite runs use AutoMigrate instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if cfg.DB.Driver == db.DriverSQLite {
		logg.Warn(ctx, "auto-migrate skipped: goose migrations target postgres")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	fsys, err := Source("")
	if err != nil {
		return err
	}
	runner, err := NewRunner(sqlDB, fsys, logg)
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "dev auto-migrate starting")
	return runner.Apply(ctx, CmdUp, 0)
}
