package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"sstcompliance/internal/bootstrap/config"
	"sstcompliance/internal/bootstrap/logging"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/infrastructure/metrics"
	"sstcompliance/internal/infrastructure/persistence/schema"
	"sstcompliance/internal/infrastructure/persistence/sqlite/model"
)

type App struct {
	Config  config.Config
	DB      *gorm.DB
	Metrics *metrics.Recorder
}

func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Info(logCtx, "start schema migration")

	models := append(model.All(), &schema.Meta{})
	if err := a.DB.WithContext(ctx).AutoMigrate(models...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}
	if err := schema.Stamp(ctx, a.DB, time.Now()); err != nil {
		return err
	}

	logging.Info(logCtx, "schema migration completed", slog.Int("schema_version", schema.Version))
	return nil
}
