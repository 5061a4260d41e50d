package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"sstcompliance/internal/bootstrap/logging"
	"sstcompliance/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Rules    RulesConfig    `mapstructure:"rules"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Evidence EvidenceConfig `mapstructure:"evidence"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	HTTP     HTTPConfig     `mapstructure:"http"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type RulesConfig struct {
	MaxRepeats                     int  `mapstructure:"max_repeats"`
	FindingDueDays                 int  `mapstructure:"finding_due_days"`
	ActionDueDays                  int  `mapstructure:"action_due_days"`
	RequireClosureEvidence         bool `mapstructure:"require_closure_evidence"`
	PlaceholderLostDaysPerAccident int  `mapstructure:"placeholder_lost_days_per_accident"`
}

// NotifyConfig enables a channel when its address is set. With none set,
// events are dropped.
type NotifyConfig struct {
	WebhookURL        string        `mapstructure:"webhook_url"`
	WebhookTimeout    time.Duration `mapstructure:"webhook_timeout"`
	WebhookSecret     string        `mapstructure:"webhook_secret"`
	NATSURL           string        `mapstructure:"nats_url"`
	NATSSubjectPrefix string        `mapstructure:"nats_subject_prefix"`
}

type EvidenceConfig struct {
	Backend            string `mapstructure:"backend"`
	Root               string `mapstructure:"root"`
	GCSBucket          string `mapstructure:"gcs_bucket"`
	GCSCredentialsFile string `mapstructure:"gcs_credentials_file"`
}

type CatalogConfig struct {
	File  string `mapstructure:"file"`
	Watch bool   `mapstructure:"watch"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(logCtx, v)

	v.SetEnvPrefix("SST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("evidence_backend", cfg.Evidence.Backend),
		slog.Bool("webhook", cfg.Notify.WebhookURL != ""),
		slog.Bool("nats", cfg.Notify.NATSURL != ""),
	)

	return cfg, nil
}

func (c Config) validate() error {
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Rules.MaxRepeats < 0 || c.Rules.FindingDueDays < 0 || c.Rules.ActionDueDays < 0 {
		return errors.New("rules values must not be negative")
	}
	switch strings.ToLower(c.Evidence.Backend) {
	case "fs", "":
		if strings.TrimSpace(c.Evidence.Root) == "" {
			return errors.New("evidence.root is required for the fs backend")
		}
	case "gcs":
		if strings.TrimSpace(c.Evidence.GCSBucket) == "" {
			return errors.New("evidence.gcs_bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unsupported evidence backend %q", c.Evidence.Backend)
	}
	return nil
}

func setDefaults(ctx context.Context, v *viper.Viper) {
	if ctx == nil {
		return
	}

	v.SetDefault("app.name", "sstcompliance")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".sst/state/compliance.sqlite")

	v.SetDefault("rules.max_repeats", 52)
	v.SetDefault("rules.finding_due_days", 7)
	v.SetDefault("rules.action_due_days", 7)
	v.SetDefault("rules.require_closure_evidence", true)
	v.SetDefault("rules.placeholder_lost_days_per_accident", 15)

	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.webhook_timeout", 5*time.Second)
	v.SetDefault("notify.webhook_secret", "")
	v.SetDefault("notify.nats_url", "")
	v.SetDefault("notify.nats_subject_prefix", "sst.events")

	v.SetDefault("evidence.backend", "fs")
	v.SetDefault("evidence.root", ".sst/evidence")
	v.SetDefault("evidence.gcs_bucket", "")
	v.SetDefault("evidence.gcs_credentials_file", "")

	v.SetDefault("catalog.file", "configs/catalog.toml")
	v.SetDefault("catalog.watch", false)

	v.SetDefault("http.addr", ":8080")
}
