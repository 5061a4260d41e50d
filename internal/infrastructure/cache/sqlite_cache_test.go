package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"sstcompliance/internal/infrastructure/persistence/sqlite/model"
)

func setupSQLiteCache(t *testing.T) *SQLiteCache {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "cache.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrate(&model.KVEntry{}); err != nil {
		t.Fatalf("auto migrate compliance_kv: %v", err)
	}

	return NewSQLiteCache(db)
}

func TestSQLiteCacheSetGetDelete(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "finding_status:f-1", "open", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Set(ctx, "finding_status:f-1", "closed", 0); err != nil {
		t.Fatalf("Set(update) error = %v", err)
	}

	value, found, err := cache.Get(ctx, "finding_status:f-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "closed" {
		t.Fatalf("Get() = %q, found=%v", value, found)
	}

	if err := cache.Delete(ctx, "finding_status:f-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, found, err := cache.Get(ctx, "finding_status:f-1"); err != nil || found {
		t.Fatalf("Get() after delete found=%v err=%v", found, err)
	}
}

func TestSQLiteCacheExpiresEntries(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if err := cache.Set(ctx, "indicators:last", `{"frequency_rate":0}`, time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, found, err := cache.Get(ctx, "indicators:last"); err != nil || !found {
		t.Fatalf("Get() before expiry found=%v err=%v", found, err)
	}

	now = now.Add(2 * time.Hour)
	if _, found, err := cache.Get(ctx, "indicators:last"); err != nil || found {
		t.Fatalf("Get() after expiry found=%v err=%v", found, err)
	}

	if err := cache.Set(ctx, "indicators:last", "v2", 0); err != nil {
		t.Fatalf("Set(no ttl) error = %v", err)
	}
	now = now.Add(1000 * time.Hour)
	if v, found, err := cache.Get(ctx, "indicators:last"); err != nil || !found || v != "v2" {
		t.Fatalf("Get(no ttl) = %q found=%v err=%v", v, found, err)
	}
}

func TestSQLiteCacheRejectsEmptyKey(t *testing.T) {
	cache := setupSQLiteCache(t)
	ctx := context.Background()

	if err := cache.Set(ctx, "", "v", 0); err == nil {
		t.Fatalf("Set() expected error for empty key")
	}
	if _, _, err := cache.Get(ctx, " "); err == nil {
		t.Fatalf("Get() expected error for empty key")
	}
	if err := cache.Delete(ctx, ""); err == nil {
		t.Fatalf("Delete() expected error for empty key")
	}
}
