package migrate

import (
	"context"
	"fmt"

	"github.com/movielex/movielex-backend/pkg/config"
	"github.com/movielex/movielex-backend/pkg/db"
	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/logger"
)

// Tables lists every model the schema migration manages.
func Tables() []any {
	return []any{
		&models.Account{},
		&models.ContentItem{},
		&models.DeliveryRecord{},
		&models.Subscription{},
		&models.BlockStatus{},
		&models.PaymentSubmission{},
	}
}

// Run applies the GORM auto-migration for every managed table.
func Run(ctx context.Context, client *db.Client) error {
	if client == nil {
		return fmt.Errorf("db client required")
	}
	if err := client.DB().WithContext(ctx).AutoMigrate(Tables()...); err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}
	return nil
}

// MaybeRunDev executes migrations automatically when the app is running in
// dev mode and the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "running schema migration (dev auto-run)")

	if err := Run(ctx, client); err != nil {
		return err
	}

	logg.Info(ctx, "schema migration completed")
	return nil
}
