package repository

import (
	"context"

	"sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/infrastructure/persistence/sqlite/model"
	"sstcompliance/internal/ports"
)

func (r *ComplianceRepository) SaveAssignment(ctx context.Context, asg compliance.EquipmentAssignment) (compliance.EquipmentAssignment, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.EquipmentAssignment{}, err
	}

	now := r.now().UTC()
	next, createdAt, err := stampRevision(asg.ID, asg.Revision, asg.CreatedAt, now)
	if err != nil {
		return compliance.EquipmentAssignment{}, err
	}
	row := model.EquipmentAssignment{
		ID:             asg.ID,
		WorkerID:       asg.WorkerID,
		CatalogItemID:  asg.CatalogItemID,
		IssueDate:      formatTime(asg.IssueDate),
		ValidityMonths: asg.ValidityMonths,
		ExpiryDate:     formatTime(asg.ExpiryDate),
		Condition:      asg.Condition,
		RenewedFrom:    asg.RenewedFrom,
		State:          string(asg.State),
		Revision:       next,
		CreatedAt:      formatTime(createdAt),
		UpdatedAt:      formatTime(now),
	}
	if err := saveVersioned(db, "equipment assignment", asg.ID, asg.Revision, &row); err != nil {
		return compliance.EquipmentAssignment{}, err
	}
	return mapAssignment(row)
}

func (r *ComplianceRepository) GetAssignment(ctx context.Context, id string) (compliance.EquipmentAssignment, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.EquipmentAssignment{}, err
	}
	row, err := takeByID[model.EquipmentAssignment](db, "equipment assignment", id)
	if err != nil {
		return compliance.EquipmentAssignment{}, err
	}
	return mapAssignment(row)
}

func (r *ComplianceRepository) ListAssignments(ctx context.Context, filter ports.AssignmentFilter) ([]compliance.EquipmentAssignment, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.EquipmentAssignment{})
	if filter.WorkerID != "" {
		query = query.Where("worker_id = ?", filter.WorkerID)
	}
	if len(filter.States) > 0 {
		query = query.Where("state IN ?", statesOf(filter.States))
	}
	var rows []model.EquipmentAssignment
	if err := query.Order("expiry_date asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.WithStack(err), "query equipment assignments")
	}

	items := make([]compliance.EquipmentAssignment, 0, len(rows))
	for _, row := range rows {
		item, err := mapAssignment(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func mapAssignment(row model.EquipmentAssignment) (compliance.EquipmentAssignment, error) {
	asg := compliance.EquipmentAssignment{
		ID:             row.ID,
		WorkerID:       row.WorkerID,
		CatalogItemID:  row.CatalogItemID,
		ValidityMonths: row.ValidityMonths,
		Condition:      row.Condition,
		RenewedFrom:    row.RenewedFrom,
		State:          compliance.EquipmentState(row.State),
		Revision:       row.Revision,
	}

	var err error
	if asg.IssueDate, err = parseTime(row.IssueDate); err != nil {
		return compliance.EquipmentAssignment{}, err
	}
	if asg.ExpiryDate, err = parseTime(row.ExpiryDate); err != nil {
		return compliance.EquipmentAssignment{}, err
	}
	if asg.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return compliance.EquipmentAssignment{}, err
	}
	if asg.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return compliance.EquipmentAssignment{}, err
	}
	return asg, nil
}
