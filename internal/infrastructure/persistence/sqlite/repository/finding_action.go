package repository

import (
	"context"

	"sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/infrastructure/persistence/sqlite/model"
	"sstcompliance/internal/ports"
)

func (r *ComplianceRepository) SaveFinding(ctx context.Context, f compliance.Finding) (compliance.Finding, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.Finding{}, err
	}

	now := r.now().UTC()
	next, createdAt, err := stampRevision(f.ID, f.Revision, f.CreatedAt, now)
	if err != nil {
		return compliance.Finding{}, err
	}
	evidence, err := encodeJSON(stringList(f.Evidence))
	if err != nil {
		return compliance.Finding{}, err
	}
	closure, err := encodeJSON(stringList(f.ClosureEvidence))
	if err != nil {
		return compliance.Finding{}, err
	}

	row := model.Finding{
		ID:                  f.ID,
		InspectionID:        f.InspectionID,
		ItemID:              f.ItemID,
		Description:         f.Description,
		Category:            f.Category,
		ResponsibleID:       f.ResponsibleID,
		DueDate:             formatTime(f.DueDate),
		EvidenceJSON:        evidence,
		ClosureEvidenceJSON: closure,
		ClosureDate:         formatTimePtr(f.ClosureDate),
		Comments:            f.Comments,
		State:               string(f.State),
		Revision:            next,
		CreatedAt:           formatTime(createdAt),
		UpdatedAt:           formatTime(now),
	}
	if err := saveVersioned(db, "finding", f.ID, f.Revision, &row); err != nil {
		return compliance.Finding{}, err
	}
	return mapFinding(row)
}

func (r *ComplianceRepository) GetFinding(ctx context.Context, id string) (compliance.Finding, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.Finding{}, err
	}
	row, err := takeByID[model.Finding](db, "finding", id)
	if err != nil {
		return compliance.Finding{}, err
	}
	return mapFinding(row)
}

func (r *ComplianceRepository) ListFindings(ctx context.Context, filter ports.FindingFilter) ([]compliance.Finding, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := withPeriod(db.Model(&model.Finding{}), "created_at", filter.Period)
	if filter.InspectionID != "" {
		query = query.Where("inspection_id = ?", filter.InspectionID)
	}
	if len(filter.States) > 0 {
		query = query.Where("state IN ?", statesOf(filter.States))
	}
	var rows []model.Finding
	if err := query.Order("due_date asc, created_at asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.WithStack(err), "query findings")
	}

	items := make([]compliance.Finding, 0, len(rows))
	for _, row := range rows {
		item, err := mapFinding(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func mapFinding(row model.Finding) (compliance.Finding, error) {
	f := compliance.Finding{
		ID:            row.ID,
		InspectionID:  row.InspectionID,
		ItemID:        row.ItemID,
		Description:   row.Description,
		Category:      row.Category,
		ResponsibleID: row.ResponsibleID,
		Comments:      row.Comments,
		State:         compliance.FindingState(row.State),
		Revision:      row.Revision,
	}

	var err error
	if f.DueDate, err = parseTime(row.DueDate); err != nil {
		return compliance.Finding{}, err
	}
	if f.ClosureDate, err = parseTimePtr(row.ClosureDate); err != nil {
		return compliance.Finding{}, err
	}
	if f.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return compliance.Finding{}, err
	}
	if f.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return compliance.Finding{}, err
	}
	if err := decodeJSON(row.EvidenceJSON, &f.Evidence); err != nil {
		return compliance.Finding{}, err
	}
	if err := decodeJSON(row.ClosureEvidenceJSON, &f.ClosureEvidence); err != nil {
		return compliance.Finding{}, err
	}
	return f, nil
}

func (r *ComplianceRepository) SaveCorrectiveAction(ctx context.Context, a compliance.CorrectiveAction) (compliance.CorrectiveAction, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.CorrectiveAction{}, err
	}

	now := r.now().UTC()
	next, createdAt, err := stampRevision(a.ID, a.Revision, a.CreatedAt, now)
	if err != nil {
		return compliance.CorrectiveAction{}, err
	}
	evidence, err := encodeJSON(stringList(a.Evidence))
	if err != nil {
		return compliance.CorrectiveAction{}, err
	}

	row := model.CorrectiveAction{
		ID:            a.ID,
		IncidentID:    a.IncidentID,
		FindingID:     a.FindingID,
		Description:   a.Description,
		ResponsibleID: a.ResponsibleID,
		DueDate:       formatTime(a.DueDate),
		Progress:      a.Progress,
		Comments:      a.Comments,
		EvidenceJSON:  evidence,
		State:         string(a.State),
		Revision:      next,
		CreatedAt:     formatTime(createdAt),
		UpdatedAt:     formatTime(now),
	}
	if err := saveVersioned(db, "corrective action", a.ID, a.Revision, &row); err != nil {
		return compliance.CorrectiveAction{}, err
	}
	return mapCorrectiveAction(row)
}

func (r *ComplianceRepository) GetCorrectiveAction(ctx context.Context, id string) (compliance.CorrectiveAction, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.CorrectiveAction{}, err
	}
	row, err := takeByID[model.CorrectiveAction](db, "corrective action", id)
	if err != nil {
		return compliance.CorrectiveAction{}, err
	}
	return mapCorrectiveAction(row)
}

func (r *ComplianceRepository) ListCorrectiveActions(ctx context.Context, filter ports.ActionFilter) ([]compliance.CorrectiveAction, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := withPeriod(db.Model(&model.CorrectiveAction{}), "created_at", filter.Period)
	if filter.IncidentID != "" {
		query = query.Where("incident_id = ?", filter.IncidentID)
	}
	if filter.FindingID != "" {
		query = query.Where("finding_id = ?", filter.FindingID)
	}
	if len(filter.States) > 0 {
		query = query.Where("state IN ?", statesOf(filter.States))
	}
	var rows []model.CorrectiveAction
	if err := query.Order("due_date asc, created_at asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.WithStack(err), "query corrective actions")
	}

	items := make([]compliance.CorrectiveAction, 0, len(rows))
	for _, row := range rows {
		item, err := mapCorrectiveAction(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func mapCorrectiveAction(row model.CorrectiveAction) (compliance.CorrectiveAction, error) {
	a := compliance.CorrectiveAction{
		ID:            row.ID,
		IncidentID:    row.IncidentID,
		FindingID:     row.FindingID,
		Description:   row.Description,
		ResponsibleID: row.ResponsibleID,
		Progress:      row.Progress,
		Comments:      row.Comments,
		State:         compliance.ActionState(row.State),
		Revision:      row.Revision,
	}

	var err error
	if a.DueDate, err = parseTime(row.DueDate); err != nil {
		return compliance.CorrectiveAction{}, err
	}
	if a.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return compliance.CorrectiveAction{}, err
	}
	if a.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return compliance.CorrectiveAction{}, err
	}
	if err := decodeJSON(row.EvidenceJSON, &a.Evidence); err != nil {
		return compliance.CorrectiveAction{}, err
	}
	return a, nil
}
