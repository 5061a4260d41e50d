package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"sstcompliance/internal/bootstrap/config"
	"sstcompliance/internal/bootstrap/database"
	"sstcompliance/internal/bootstrap/logging"
	"sstcompliance/internal/errs"
	cacheinfra "sstcompliance/internal/infrastructure/cache"
	"sstcompliance/internal/infrastructure/catalog"
	"sstcompliance/internal/infrastructure/evidence"
	"sstcompliance/internal/infrastructure/metrics"
	"sstcompliance/internal/infrastructure/notify"
	sqliterepo "sstcompliance/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "sstcompliance/internal/infrastructure/persistence/sqlite/uow"
	"sstcompliance/internal/ports"
	"sstcompliance/internal/usecase/compliance"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewComplianceRepository,
			fx.As(new(ports.ComplianceRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewSQLiteCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(metrics.NewRecorder),
	fx.Provide(provideNotifier),
	fx.Provide(provideEvidenceStore),
	fx.Provide(provideCatalog),
	fx.Provide(provideComplianceService),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB, rec *metrics.Recorder) *App {
	return &App{
		Config:  cfg,
		DB:      db,
		Metrics: rec,
	}
}

// provideNotifier fans out to every configured channel. With no channel
// configured events are dropped.
func provideNotifier(lc fx.Lifecycle, ctx context.Context, cfg config.Config, rec *metrics.Recorder) (ports.Notifier, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	var channels []notify.Channel
	if url := strings.TrimSpace(cfg.Notify.WebhookURL); url != "" {
		hook, err := notify.NewWebhook(notify.WebhookConfig{
			BaseURL: url,
			Timeout: cfg.Notify.WebhookTimeout,
			Secret:  cfg.Notify.WebhookSecret,
		})
		if err != nil {
			return nil, errs.Wrap(err, "create webhook notifier")
		}
		channels = append(channels, hook)
	}
	if url := strings.TrimSpace(cfg.Notify.NATSURL); url != "" {
		pub, err := notify.NewNATSPublisher(logCtx, notify.NATSConfig{
			URL:           url,
			SubjectPrefix: cfg.Notify.NATSSubjectPrefix,
			Name:          cfg.App.Name,
		})
		if err != nil {
			return nil, errs.Wrap(err, "create nats notifier")
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return pub.Close()
			},
		})
		channels = append(channels, pub)
	}

	if len(channels) == 0 {
		logging.Info(logCtx, "no notification channel configured")
		return notify.Discard{}, nil
	}
	logging.Info(logCtx, "notification channels ready", slog.Int("channels", len(channels)))
	return notify.NewFanOut(rec, channels...), nil
}

func provideEvidenceStore(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.EvidenceStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Evidence.Backend)) {
	case "gcs":
		store, err := evidence.NewGCSStore(ctx, evidence.GCSConfig{
			Bucket:          cfg.Evidence.GCSBucket,
			CredentialsFile: cfg.Evidence.GCSCredentialsFile,
		})
		if err != nil {
			return nil, errs.Wrap(err, "create gcs evidence store")
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return store.Close()
			},
		})
		return store, nil
	default:
		store, err := evidence.NewFSStore(cfg.Evidence.Root)
		if err != nil {
			return nil, errs.Wrap(err, "create fs evidence store")
		}
		return store, nil
	}
}

// provideCatalog loads the reference catalog when its file exists. A missing
// file disables catalog checks rather than failing startup.
func provideCatalog(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.ReferenceCatalog, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	path := strings.TrimSpace(cfg.Catalog.File)
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Warn(logCtx, "catalog file not found, reference checks disabled", slog.String("path", path))
			return nil, nil
		}
		return nil, errs.Wrapf(err, "stat catalog %q", path)
	}

	cat, err := catalog.NewTOMLCatalog(logCtx, path)
	if err != nil {
		return nil, errs.Wrap(err, "load catalog")
	}
	if cfg.Catalog.Watch {
		watchCtx, cancel := context.WithCancel(context.WithoutCancel(logCtx))
		done := make(chan struct{})
		lc.Append(fx.Hook{
			OnStart: func(_ context.Context) error {
				go func() {
					defer close(done)
					if err := cat.Watch(watchCtx); err != nil {
						logging.Warn(logCtx, "catalog watch stopped", slog.Any("err", errs.Loggable(err)))
					}
				}()
				return nil
			},
			OnStop: func(stopCtx context.Context) error {
				cancel()
				select {
				case <-done:
				case <-stopCtx.Done():
				}
				return nil
			},
		})
	}
	return cat, nil
}

type serviceParams struct {
	fx.In

	Config   config.Config
	Repo     ports.ComplianceRepository
	UOW      ports.UnitOfWork
	Cache    ports.Cache
	Notifier ports.Notifier
	Evidence ports.EvidenceStore
	Catalog  ports.ReferenceCatalog
	Metrics  *metrics.Recorder
}

func provideComplianceService(p serviceParams) *compliance.Service {
	opts := []compliance.Option{
		compliance.WithNotifier(p.Notifier),
		compliance.WithEvidenceStore(p.Evidence),
		compliance.WithRecorder(p.Metrics),
		compliance.WithRules(compliance.Rules{
			MaxRepeats:                     p.Config.Rules.MaxRepeats,
			FindingDueDays:                 p.Config.Rules.FindingDueDays,
			ActionDueDays:                  p.Config.Rules.ActionDueDays,
			RequireClosureEvidence:         p.Config.Rules.RequireClosureEvidence,
			PlaceholderLostDaysPerAccident: p.Config.Rules.PlaceholderLostDaysPerAccident,
		}),
	}
	if p.Catalog != nil {
		opts = append(opts, compliance.WithCatalog(p.Catalog))
	}
	return compliance.NewService(p.Repo, p.UOW, p.Cache, opts...)
}
