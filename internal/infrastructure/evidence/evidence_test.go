package evidence

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"sstcompliance/internal/ports"
)

func TestObjectKeyLayout(t *testing.T) {
	id := uuid.MustParse("6f1c2a9e-3b1d-4c55-9a0e-2f5d1b7c8e90")
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.FixedZone("COT", -5*3600))

	got, err := ObjectKey(ports.EvidenceObject{EntityType: "finding", EntityID: "f-1", Subfolder: "closure", Filename: "Photo.JPG"}, at, id)
	if err != nil {
		t.Fatalf("ObjectKey() error = %v", err)
	}
	want := "finding/f-1/closure/20240309_190507_6f1c2a9e-3b1d-4c55-9a0e-2f5d1b7c8e90.jpg"
	if got != want {
		t.Fatalf("ObjectKey() = %q, want %q", got, want)
	}

	got, err = ObjectKey(ports.EvidenceObject{EntityType: "incident", EntityID: "../etc", Filename: "noext"}, at, id)
	if err != nil {
		t.Fatalf("ObjectKey() error = %v", err)
	}
	if strings.Contains(got, "..") || !strings.HasSuffix(got, ".bin") {
		t.Fatalf("ObjectKey(unsafe) = %q", got)
	}

	if _, err := ObjectKey(ports.EvidenceObject{EntityID: "x"}, at, id); err == nil {
		t.Fatalf("ObjectKey() expected error without entity type")
	}
}

func TestFSStorePutWritesFile(t *testing.T) {
	root := t.TempDir()
	store, err := NewFSStore(root)
	if err != nil {
		t.Fatalf("NewFSStore() error = %v", err)
	}
	store.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	ref, err := store.Put(context.Background(), ports.EvidenceObject{
		EntityType: "document",
		EntityID:   "doc-7",
		Filename:   "policy.pdf",
		Data:       []byte("%PDF-1.4"),
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if !strings.HasPrefix(ref, "document/doc-7/20240102_030405_") || !strings.HasSuffix(ref, ".pdf") {
		t.Fatalf("Put() ref = %q", ref)
	}

	raw, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(ref)))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(raw) != "%PDF-1.4" {
		t.Fatalf("stored bytes = %q", raw)
	}
}

func TestNewFSStoreRequiresRoot(t *testing.T) {
	if _, err := NewFSStore(" "); err == nil {
		t.Fatalf("NewFSStore() expected error")
	}
}
