package ports

import (
	"context"
	"errors"
	"time"

	"sstcompliance/internal/domain/compliance"
)

// ErrStaleRevision is returned when an upsert carries a revision that no
// longer matches the stored record. Callers reload and recompute.
var ErrStaleRevision = errors.New("stale revision")

// Period bounds a listing by the entity's reference date. Zero values are open.
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) Contains(t time.Time) bool {
	if !p.From.IsZero() && t.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && !t.Before(p.To) {
		return false
	}
	return true
}

type FindingFilter struct {
	InspectionID string
	States       []compliance.FindingState
	Period       Period
}

type ActionFilter struct {
	IncidentID string
	FindingID  string
	States     []compliance.ActionState
	Period     Period
}

type AssignmentFilter struct {
	WorkerID string
	States   []compliance.EquipmentState
}

type InspectionFilter struct {
	ChecklistID string
	States      []compliance.InspectionState
	Period      Period
}

// ComplianceRepository stores full entity snapshots. Every Save is an upsert
// guarded by the entity's Revision: zero inserts, anything else must match the
// stored revision. The returned value carries the new revision.
type ComplianceRepository interface {
	SaveRisk(ctx context.Context, risk compliance.RiskAssessment) (compliance.RiskAssessment, error)
	GetRisk(ctx context.Context, id string) (compliance.RiskAssessment, error)
	ListRisks(ctx context.Context, states []compliance.RiskState) ([]compliance.RiskAssessment, error)

	SaveIncident(ctx context.Context, incident compliance.Incident) (compliance.Incident, error)
	GetIncident(ctx context.Context, id string) (compliance.Incident, error)
	ListIncidents(ctx context.Context, period Period) ([]compliance.Incident, error)

	SaveFinding(ctx context.Context, finding compliance.Finding) (compliance.Finding, error)
	GetFinding(ctx context.Context, id string) (compliance.Finding, error)
	ListFindings(ctx context.Context, filter FindingFilter) ([]compliance.Finding, error)

	SaveCorrectiveAction(ctx context.Context, action compliance.CorrectiveAction) (compliance.CorrectiveAction, error)
	GetCorrectiveAction(ctx context.Context, id string) (compliance.CorrectiveAction, error)
	ListCorrectiveActions(ctx context.Context, filter ActionFilter) ([]compliance.CorrectiveAction, error)

	SaveDocument(ctx context.Context, doc compliance.ControlledDocument) (compliance.ControlledDocument, error)
	GetDocument(ctx context.Context, id string) (compliance.ControlledDocument, error)
	ListDocuments(ctx context.Context, states []compliance.DocumentState) ([]compliance.ControlledDocument, error)
	AppendDocumentVersion(ctx context.Context, documentID string, version compliance.DocumentVersion) error
	AppendDocumentReview(ctx context.Context, review compliance.DocumentReview) error
	ListDocumentReviews(ctx context.Context, documentID string) ([]compliance.DocumentReview, error)

	SaveAssignment(ctx context.Context, asg compliance.EquipmentAssignment) (compliance.EquipmentAssignment, error)
	GetAssignment(ctx context.Context, id string) (compliance.EquipmentAssignment, error)
	ListAssignments(ctx context.Context, filter AssignmentFilter) ([]compliance.EquipmentAssignment, error)

	SaveChecklist(ctx context.Context, def compliance.ChecklistDefinition) (compliance.ChecklistDefinition, error)
	GetChecklist(ctx context.Context, id string) (compliance.ChecklistDefinition, error)
	ListChecklists(ctx context.Context) ([]compliance.ChecklistDefinition, error)

	SaveInspection(ctx context.Context, insp compliance.Inspection) (compliance.Inspection, error)
	GetInspection(ctx context.Context, id string) (compliance.Inspection, error)
	ListInspections(ctx context.Context, filter InspectionFilter) ([]compliance.Inspection, error)

	SaveTraining(ctx context.Context, training compliance.Training) (compliance.Training, error)
	GetTraining(ctx context.Context, id string) (compliance.Training, error)
	ListTrainings(ctx context.Context, period Period) ([]compliance.Training, error)
}
