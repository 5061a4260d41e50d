package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/infrastructure/persistence/sqlite/model"
	"sstcompliance/internal/infrastructure/persistence/sqlite/uow"
	"sstcompliance/internal/ports"
)

func setupComplianceRepository(t *testing.T) (*ComplianceRepository, *gorm.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "compliance.sqlite")
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
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
	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return NewComplianceRepository(db), db
}

func TestSaveIncidentRoundTrip(t *testing.T) {
	repo, _ := setupComplianceRepository(t)
	ctx := context.Background()
	occurred := time.Date(2024, 4, 2, 8, 30, 0, 0, time.UTC)

	saved, err := repo.SaveIncident(ctx, compliance.Incident{
		ID:            "inc-1",
		Code:          "INC-20240402-083000",
		Type:          compliance.IncidentTypeAccident,
		OccurredAt:    occurred,
		Area:          "Warehouse",
		Injury:        compliance.InjurySevere,
		Damage:        compliance.DamageMinor,
		SeverityScore: 5,
		Priority:      compliance.PriorityHigh,
		Notify:        true,
		Witnesses:     []string{"w-2"},
		State:         compliance.IncidentReported,
	})
	if err != nil {
		t.Fatalf("SaveIncident() error = %v", err)
	}
	if saved.Revision != 1 || saved.CreatedAt.IsZero() {
		t.Fatalf("SaveIncident() revision=%d created=%s", saved.Revision, saved.CreatedAt)
	}

	saved.State = compliance.IncidentAnalyzed
	saved.Investigation = &compliance.Investigation{Method: compliance.MethodFiveWhys, RootCause: "no guard", FiveWhys: []string{"a", "b"}}
	updated, err := repo.SaveIncident(ctx, saved)
	if err != nil {
		t.Fatalf("SaveIncident(update) error = %v", err)
	}
	if updated.Revision != 2 {
		t.Fatalf("SaveIncident(update) revision = %d", updated.Revision)
	}

	got, err := repo.GetIncident(ctx, "inc-1")
	if err != nil {
		t.Fatalf("GetIncident() error = %v", err)
	}
	if got.State != compliance.IncidentAnalyzed || got.Investigation == nil || got.Investigation.RootCause != "no guard" {
		t.Fatalf("GetIncident() = %+v", got)
	}
	if !got.OccurredAt.Equal(occurred) || len(got.Witnesses) != 1 {
		t.Fatalf("GetIncident() occurred=%s witnesses=%v", got.OccurredAt, got.Witnesses)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Fatalf("GetIncident() created_at changed: %s vs %s", got.CreatedAt, saved.CreatedAt)
	}
}

func TestSaveRejectsStaleRevision(t *testing.T) {
	repo, _ := setupComplianceRepository(t)
	ctx := context.Background()

	first, err := repo.SaveFinding(ctx, compliance.Finding{ID: "f-1", Description: "d", Category: "General", State: compliance.FindingOpen})
	if err != nil {
		t.Fatalf("SaveFinding() error = %v", err)
	}

	a := first
	a.State = compliance.FindingInCorrection
	if _, err := repo.SaveFinding(ctx, a); err != nil {
		t.Fatalf("SaveFinding(a) error = %v", err)
	}

	b := first
	b.State = compliance.FindingClosed
	if _, err := repo.SaveFinding(ctx, b); !errors.Is(err, ports.ErrStaleRevision) {
		t.Fatalf("SaveFinding(b) error = %v, want ErrStaleRevision", err)
	}

	dup := compliance.Finding{ID: "f-1", State: compliance.FindingOpen}
	if _, err := repo.SaveFinding(ctx, dup); !errors.Is(err, ports.ErrStaleRevision) {
		t.Fatalf("SaveFinding(duplicate insert) error = %v, want ErrStaleRevision", err)
	}

	ghost := compliance.Finding{ID: "f-404", Revision: 3, State: compliance.FindingOpen}
	if _, err := repo.SaveFinding(ctx, ghost); !errors.Is(err, compliance.ErrNotFound) {
		t.Fatalf("SaveFinding(missing) error = %v, want ErrNotFound", err)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	repo, _ := setupComplianceRepository(t)
	_, err := repo.GetAssignment(context.Background(), "nope")
	var nf *compliance.NotFoundError
	if !errors.As(err, &nf) || nf.Kind != "equipment assignment" {
		t.Fatalf("GetAssignment() error = %v", err)
	}
}

func TestListIncidentsByPeriod(t *testing.T) {
	repo, _ := setupComplianceRepository(t)
	ctx := context.Background()

	for i, day := range []int{1, 15, 28} {
		_, err := repo.SaveIncident(ctx, compliance.Incident{
			ID:         "inc-" + string(rune('a'+i)),
			Type:       compliance.IncidentTypeNearMiss,
			OccurredAt: time.Date(2024, 2, day, 12, 0, 0, 0, time.UTC),
			State:      compliance.IncidentReported,
		})
		if err != nil {
			t.Fatalf("SaveIncident(%d) error = %v", day, err)
		}
	}

	items, err := repo.ListIncidents(ctx, ports.Period{
		From: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("ListIncidents() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != "inc-b" {
		t.Fatalf("ListIncidents() = %#v", items)
	}
}

func TestChecklistItemsNormalizedOnRead(t *testing.T) {
	repo, db := setupComplianceRepository(t)
	ctx := context.Background()
	now := formatTime(time.Now())

	legacy := model.Checklist{
		ID:        "cl-legacy",
		Name:      "Legacy",
		Area:      "Plant",
		ItemsJSON: `[{"pregunta_id":"p1","pregunta":"Extinguisher?","tipo":"si_no"},{"texto":"Order","tipo_respuesta":"escala"},{"question":"Odd","type":"matrix","categoria":"Fire"}]`,
		Revision:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.Create(&legacy).Error; err != nil {
		t.Fatalf("insert legacy checklist: %v", err)
	}

	def, err := repo.GetChecklist(ctx, "cl-legacy")
	if err != nil {
		t.Fatalf("GetChecklist() error = %v", err)
	}
	want := []compliance.ChecklistItem{
		{ID: "p1", Text: "Extinguisher?", AnswerType: compliance.AnswerYesNo, Category: "General"},
		{ID: "item-2", Text: "Order", AnswerType: compliance.AnswerScale, Category: "General"},
		{ID: "item-3", Text: "Odd", AnswerType: compliance.AnswerYesNo, Category: "Fire"},
	}
	if len(def.Items) != len(want) {
		t.Fatalf("GetChecklist() items = %#v", def.Items)
	}
	for i := range want {
		if def.Items[i] != want[i] {
			t.Fatalf("GetChecklist() item %d = %+v, want %+v", i, def.Items[i], want[i])
		}
	}
}

func TestDocumentHistoryIsAppendOnly(t *testing.T) {
	repo, _ := setupComplianceRepository(t)
	ctx := context.Background()

	doc, err := repo.SaveDocument(ctx, compliance.ControlledDocument{
		ID: "doc-1", Code: "PRO-01", Title: "Lockout", Version: "1.0", FileRef: "v1.pdf", State: compliance.DocumentApproved, Approved: true,
	})
	if err != nil {
		t.Fatalf("SaveDocument() error = %v", err)
	}
	if err := repo.AppendDocumentVersion(ctx, doc.ID, compliance.DocumentVersion{Version: "1.0", FileRef: "v1.pdf", ReplacedAt: time.Now()}); err != nil {
		t.Fatalf("AppendDocumentVersion() error = %v", err)
	}
	doc.Version, doc.FileRef, doc.State, doc.Approved = "1.1", "v2.pdf", compliance.DocumentDraft, false
	if _, err := repo.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument(revise) error = %v", err)
	}

	got, err := repo.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if got.Version != "1.1" || len(got.History) != 1 || got.History[0].FileRef != "v1.pdf" {
		t.Fatalf("GetDocument() = %+v", got)
	}
}

func TestUnitOfWorkRollsBack(t *testing.T) {
	repo, db := setupComplianceRepository(t)
	ctx := context.Background()
	work := uow.NewUnitOfWork(db)

	boom := errors.New("boom")
	err := work.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := repo.SaveTraining(txCtx, compliance.Training{ID: "t-1", Topic: "Fire", State: compliance.TrainingScheduled}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v", err)
	}
	if _, err := repo.GetTraining(ctx, "t-1"); !errors.Is(err, compliance.ErrNotFound) {
		t.Fatalf("GetTraining() after rollback error = %v", err)
	}
}

func TestUnitOfWorkNestedCallJoinsOuter(t *testing.T) {
	repo, db := setupComplianceRepository(t)
	ctx := context.Background()
	work := uow.NewUnitOfWork(db)

	if ports.InTx(ctx) {
		t.Fatalf("InTx(background) = true")
	}
	boom := errors.New("boom")
	err := work.WithTx(ctx, func(outer context.Context) error {
		if !ports.InTx(outer) {
			t.Fatalf("InTx(outer) = false")
		}
		if err := work.WithTx(outer, func(inner context.Context) error {
			_, err := repo.SaveTraining(inner, compliance.Training{ID: "t-2", Topic: "Ladders", State: compliance.TrainingScheduled})
			return err
		}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx() error = %v", err)
	}
	if _, err := repo.GetTraining(ctx, "t-2"); !errors.Is(err, compliance.ErrNotFound) {
		t.Fatalf("inner save survived outer rollback: %v", err)
	}
}
