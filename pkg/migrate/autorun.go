package migrate

import (
	"context"
	"fmt"

	"github.com/yln-platform/mentorship-backend/pkg/config"
	"github.com/yln-platform/mentorship-backend/pkg/db"
	"github.com/yln-platform/mentorship-backend/pkg/db/models"
	"github.com/yln-platform/mentorship-backend/pkg/logger"
)

// MaybeRun applies the schema on boot when the feature flag is enabled.
// SQLite runs the goose migrations; Postgres deployments use the model
// definitions directly since the SQL files are written for sqlite.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": client.Driver()})

	if client.Driver() == config.DriverPostgres {
		logg.Info(ctx, "applying schema from model definitions")
		return client.DB().WithContext(ctx).AutoMigrate(AllModels()...)
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "running goose migrations")
	if err := Run(ctx, sqlDB, client.Driver(), DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "goose migrations completed")
	return nil
}

// AllModels lists every table the application owns.
func AllModels() []any {
	return []any{
		&models.User{},
		&models.VerificationToken{},
		&models.PasswordResetToken{},
		&models.Mentor{},
		&models.Mentee{},
		&models.Mentorship{},
		&models.Session{},
		&models.PendingWrite{},
	}
}
