package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sstcompliance/internal/domain/compliance"
)

const sampleCatalog = `
version = 1

[[equipment]]
id = "helmet"
name = "Safety helmet"
category = "head"
validity_months = 24

[[equipment]]
id = "gloves"
name = "Nitrile gloves"
category = "hands"
validity_months = 3

[[parties]]
id = "w-1"
name = "Ana Ruiz"
position = "Operator"
area = "Warehouse"
`

func writeCatalog(t *testing.T, dir string, body string) string {
	t.Helper()
	path := filepath.Join(dir, "catalog.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestTOMLCatalogLookups(t *testing.T) {
	ctx := context.Background()
	path := writeCatalog(t, t.TempDir(), sampleCatalog)

	c, err := NewTOMLCatalog(ctx, path)
	if err != nil {
		t.Fatalf("NewTOMLCatalog() error = %v", err)
	}

	item, err := c.EquipmentItem(ctx, "helmet")
	if err != nil {
		t.Fatalf("EquipmentItem() error = %v", err)
	}
	if item.ValidityMonths != 24 || item.Name != "Safety helmet" {
		t.Fatalf("EquipmentItem() = %+v", item)
	}

	party, err := c.Party(ctx, "w-1")
	if err != nil {
		t.Fatalf("Party() error = %v", err)
	}
	if party.Area != "Warehouse" {
		t.Fatalf("Party() = %+v", party)
	}

	if _, err := c.EquipmentItem(ctx, "boots"); !errors.Is(err, compliance.ErrNotFound) {
		t.Fatalf("EquipmentItem(missing) error = %v, want ErrNotFound", err)
	}
}

func TestTOMLCatalogRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	bad := writeCatalog(t, dir, "[[equipment]]\nid = \"x\"\nvalidity_months = 0\n")
	if _, err := NewTOMLCatalog(ctx, bad); err == nil {
		t.Fatalf("NewTOMLCatalog() expected validation error")
	}
}

func TestTOMLCatalogReloadKeepsPreviousOnError(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeCatalog(t, dir, sampleCatalog)

	c, err := NewTOMLCatalog(ctx, path)
	if err != nil {
		t.Fatalf("NewTOMLCatalog() error = %v", err)
	}

	writeCatalog(t, dir, "not = [valid")
	if err := c.Reload(ctx); err == nil {
		t.Fatalf("Reload() expected parse error")
	}
	if _, err := c.EquipmentItem(ctx, "gloves"); err != nil {
		t.Fatalf("EquipmentItem() after failed reload error = %v", err)
	}
}

func TestTOMLCatalogWatchPicksUpEdits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := t.TempDir()
	path := writeCatalog(t, dir, sampleCatalog)

	c, err := NewTOMLCatalog(ctx, path)
	if err != nil {
		t.Fatalf("NewTOMLCatalog() error = %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Watch(ctx) }()
	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)

	writeCatalog(t, dir, sampleCatalog+"\n[[equipment]]\nid = \"boots\"\nname = \"Boots\"\nvalidity_months = 12\n")

	deadline := time.Now().Add(3 * time.Second)
	for {
		if _, err := c.EquipmentItem(ctx, "boots"); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("catalog was not reloaded after edit")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
}
