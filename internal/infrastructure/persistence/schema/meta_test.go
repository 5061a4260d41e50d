package schema

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func TestStampAndStoredVersion(t *testing.T) {
	t.Parallel()

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(t.TempDir(), "meta.sqlite")), &gorm.Config{})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	if err := db.AutoMigrate(&Meta{}); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	ctx := context.Background()

	got, err := StoredVersion(ctx, db)
	if err != nil {
		t.Fatalf("StoredVersion() error = %v", err)
	}
	if got != 0 {
		t.Fatalf("StoredVersion() before stamp = %d, want 0", got)
	}

	at := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	if err := Stamp(ctx, db, at); err != nil {
		t.Fatalf("Stamp() error = %v", err)
	}
	if err := Stamp(ctx, db, at.Add(time.Hour)); err != nil {
		t.Fatalf("Stamp() again error = %v", err)
	}

	got, err = StoredVersion(ctx, db)
	if err != nil {
		t.Fatalf("StoredVersion() error = %v", err)
	}
	if got != Version {
		t.Fatalf("StoredVersion() = %d, want %d", got, Version)
	}

	var count int64
	if err := db.Model(&Meta{}).Count(&count).Error; err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("meta rows = %d, want 2", count)
	}
	var migrated Meta
	if err := db.Where("key = ?", keyMigratedAt).Take(&migrated).Error; err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if migrated.Value != "2024-03-10T10:00:00Z" {
		t.Fatalf("migrated_at = %q, want the latest stamp", migrated.Value)
	}
}
