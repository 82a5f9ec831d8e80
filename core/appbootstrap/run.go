package appbootstrap

import (
	"context"
	"fmt"

	"dms-server/api"
	"dms-server/config"
	"dms-server/core/store"
	"dms-server/core/utils"
)

// Run serves until ctx is cancelled.
func Run(ctx context.Context, cfg *config.AppConfig, logger *utils.Logger) error {
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		return err
	}
	rc, err := composeRuntime(cfg, db, logger)
	if err != nil {
		return err
	}
	if cfg.Seed.Enabled {
		if err := seed(ctx, cfg.Seed, rc, logger); err != nil {
			return err
		}
	}
	srv := api.NewServer(rc.serverDeps)
	return srv.ListenAndServe(ctx)
}
