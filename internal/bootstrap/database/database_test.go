package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"sstcompliance/internal/bootstrap/config"
)

func TestOpenCreatesDirectoryAndAppliesPragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "nested", "compliance.sqlite")

	db, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite", DSN: path})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("sqlite directory not created: %v", err)
	}

	var foreignKeys, busyTimeout int
	if err := db.Raw("PRAGMA foreign_keys").Scan(&foreignKeys).Error; err != nil {
		t.Fatalf("PRAGMA foreign_keys error = %v", err)
	}
	if err := db.Raw("PRAGMA busy_timeout").Scan(&busyTimeout).Error; err != nil {
		t.Fatalf("PRAGMA busy_timeout error = %v", err)
	}
	if foreignKeys != 1 || busyTimeout != 5000 {
		t.Fatalf("pragmas foreign_keys=%d busy_timeout=%d", foreignKeys, busyTimeout)
	}
}

func TestOpenRejectsUnknownDriverAndEmptyDSN(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "postgres", DSN: "x"}); err == nil {
		t.Fatalf("Open(postgres) expected error")
	}
	if _, err := Open(context.Background(), config.DatabaseConfig{Driver: "sqlite"}); err == nil {
		t.Fatalf("Open(empty dsn) expected error")
	}
}

func TestWithPragmas(t *testing.T) {
	cases := map[string]string{
		"a.sqlite":                           "a.sqlite?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		"file:a.sqlite?cache=shared":         "file:a.sqlite?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		"a.sqlite?_pragma=busy_timeout(100)": "a.sqlite?_pragma=busy_timeout(100)",
	}
	for in, want := range cases {
		if got := withPragmas(in); got != want {
			t.Fatalf("withPragmas(%q) = %q, want %q", in, got, want)
		}
	}
}
