package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"sstcompliance/internal/bootstrap/config"
	"sstcompliance/internal/bootstrap/logging"
	"sstcompliance/internal/errs"
)

// Every connection of the pool gets these. WAL lets the HTTP API read while
// a CLI command writes; busy_timeout covers the remaining lock contention.
var sqlitePragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
}

// Open connects to the compliance store. Only sqlite is supported.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.database"))

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite", "sqlite3":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	path, err := sqlitePath(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errs.Wrapf(err, "create sqlite directory %q", dir)
			}
		}
	}

	db, err := gorm.Open(gormsqlite.Open(withPragmas(cfg.DSN)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errs.Wrap(errs.WithStack(err), "open sqlite db")
	}
	logging.Info(logCtx, "database opened", slog.String("driver", "sqlite"), slog.String("path", orMemory(path)))
	return db, nil
}

// sqlitePath extracts the file path of dsn. In-memory databases return "".
func sqlitePath(dsn string) (string, error) {
	candidate := strings.TrimSpace(dsn)
	if candidate == "" {
		return "", errors.New("database dsn is required")
	}
	candidate = strings.TrimPrefix(candidate, "file:")
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}
	if candidate == "" || candidate == ":memory:" {
		return "", nil
	}
	return candidate, nil
}

// withPragmas appends the default pragmas unless the dsn sets its own.
func withPragmas(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	params := make([]string, 0, len(sqlitePragmas))
	for _, p := range sqlitePragmas {
		params = append(params, "_pragma="+p)
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func orMemory(path string) string {
	if path == "" {
		return ":memory:"
	}
	return path
}
