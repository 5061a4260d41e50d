package repository

import (
	"context"

	"sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/infrastructure/persistence/sqlite/model"
	"sstcompliance/internal/ports"
)

func (r *ComplianceRepository) SaveChecklist(ctx context.Context, def compliance.ChecklistDefinition) (compliance.ChecklistDefinition, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.ChecklistDefinition{}, err
	}

	now := r.now().UTC()
	next, createdAt, err := stampRevision(def.ID, def.Revision, def.CreatedAt, now)
	if err != nil {
		return compliance.ChecklistDefinition{}, err
	}
	items, err := encodeJSON(def.Items)
	if err != nil {
		return compliance.ChecklistDefinition{}, err
	}

	row := model.Checklist{
		ID:        def.ID,
		Name:      def.Name,
		Area:      def.Area,
		ItemsJSON: items,
		Revision:  next,
		CreatedAt: formatTime(createdAt),
		UpdatedAt: formatTime(now),
	}
	if err := saveVersioned(db, "checklist", def.ID, def.Revision, &row); err != nil {
		return compliance.ChecklistDefinition{}, err
	}
	return mapChecklist(row)
}

func (r *ComplianceRepository) GetChecklist(ctx context.Context, id string) (compliance.ChecklistDefinition, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.ChecklistDefinition{}, err
	}
	row, err := takeByID[model.Checklist](db, "checklist", id)
	if err != nil {
		return compliance.ChecklistDefinition{}, err
	}
	return mapChecklist(row)
}

func (r *ComplianceRepository) ListChecklists(ctx context.Context) ([]compliance.ChecklistDefinition, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Checklist
	if err := db.Order("name asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.WithStack(err), "query checklists")
	}

	items := make([]compliance.ChecklistDefinition, 0, len(rows))
	for _, row := range rows {
		item, err := mapChecklist(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func mapChecklist(row model.Checklist) (compliance.ChecklistDefinition, error) {
	def := compliance.ChecklistDefinition{
		ID:       row.ID,
		Name:     row.Name,
		Area:     row.Area,
		Revision: row.Revision,
	}

	var raw []map[string]any
	if err := decodeJSON(row.ItemsJSON, &raw); err != nil {
		return compliance.ChecklistDefinition{}, err
	}
	def.Items = normalizeChecklistItems(raw)

	var err error
	if def.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return compliance.ChecklistDefinition{}, err
	}
	if def.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return compliance.ChecklistDefinition{}, err
	}
	return def, nil
}

func (r *ComplianceRepository) SaveInspection(ctx context.Context, insp compliance.Inspection) (compliance.Inspection, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.Inspection{}, err
	}

	now := r.now().UTC()
	next, createdAt, err := stampRevision(insp.ID, insp.Revision, insp.CreatedAt, now)
	if err != nil {
		return compliance.Inspection{}, err
	}
	answers := insp.Answers
	if answers == nil {
		answers = []compliance.AnswerRecord{}
	}
	answersJSON, err := encodeJSON(answers)
	if err != nil {
		return compliance.Inspection{}, err
	}

	row := model.Inspection{
		ID:            insp.ID,
		ChecklistID:   insp.ChecklistID,
		Area:          insp.Area,
		ScheduledDate: formatTime(insp.ScheduledDate),
		InspectorID:   insp.InspectorID,
		State:         string(insp.State),
		CompletedAt:   formatTimePtr(insp.CompletedAt),
		AnswersJSON:   answersJSON,
		Observations:  insp.Observations,
		Revision:      next,
		CreatedAt:     formatTime(createdAt),
		UpdatedAt:     formatTime(now),
	}
	if err := saveVersioned(db, "inspection", insp.ID, insp.Revision, &row); err != nil {
		return compliance.Inspection{}, err
	}
	return mapInspection(row)
}

func (r *ComplianceRepository) GetInspection(ctx context.Context, id string) (compliance.Inspection, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.Inspection{}, err
	}
	row, err := takeByID[model.Inspection](db, "inspection", id)
	if err != nil {
		return compliance.Inspection{}, err
	}
	return mapInspection(row)
}

func (r *ComplianceRepository) ListInspections(ctx context.Context, filter ports.InspectionFilter) ([]compliance.Inspection, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := withPeriod(db.Model(&model.Inspection{}), "scheduled_date", filter.Period)
	if filter.ChecklistID != "" {
		query = query.Where("checklist_id = ?", filter.ChecklistID)
	}
	if len(filter.States) > 0 {
		query = query.Where("state IN ?", statesOf(filter.States))
	}
	var rows []model.Inspection
	if err := query.Order("scheduled_date asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.WithStack(err), "query inspections")
	}

	items := make([]compliance.Inspection, 0, len(rows))
	for _, row := range rows {
		item, err := mapInspection(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func mapInspection(row model.Inspection) (compliance.Inspection, error) {
	insp := compliance.Inspection{
		ID:           row.ID,
		ChecklistID:  row.ChecklistID,
		Area:         row.Area,
		InspectorID:  row.InspectorID,
		State:        compliance.InspectionState(row.State),
		Observations: row.Observations,
		Revision:     row.Revision,
	}

	var err error
	if insp.ScheduledDate, err = parseTime(row.ScheduledDate); err != nil {
		return compliance.Inspection{}, err
	}
	if insp.CompletedAt, err = parseTimePtr(row.CompletedAt); err != nil {
		return compliance.Inspection{}, err
	}
	if insp.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return compliance.Inspection{}, err
	}
	if insp.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return compliance.Inspection{}, err
	}
	if err := decodeJSON(row.AnswersJSON, &insp.Answers); err != nil {
		return compliance.Inspection{}, err
	}
	return insp, nil
}

func (r *ComplianceRepository) SaveTraining(ctx context.Context, t compliance.Training) (compliance.Training, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.Training{}, err
	}

	now := r.now().UTC()
	next, createdAt, err := stampRevision(t.ID, t.Revision, t.CreatedAt, now)
	if err != nil {
		return compliance.Training{}, err
	}
	attendees := t.Attendees
	if attendees == nil {
		attendees = []compliance.Attendance{}
	}
	attendeesJSON, err := encodeJSON(attendees)
	if err != nil {
		return compliance.Training{}, err
	}

	row := model.Training{
		ID:            t.ID,
		Topic:         t.Topic,
		TrainerID:     t.TrainerID,
		ScheduledDate: formatTime(t.ScheduledDate),
		DurationHours: t.DurationHours,
		AttendeesJSON: attendeesJSON,
		State:         string(t.State),
		Revision:      next,
		CreatedAt:     formatTime(createdAt),
		UpdatedAt:     formatTime(now),
	}
	if err := saveVersioned(db, "training", t.ID, t.Revision, &row); err != nil {
		return compliance.Training{}, err
	}
	return mapTraining(row)
}

func (r *ComplianceRepository) GetTraining(ctx context.Context, id string) (compliance.Training, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.Training{}, err
	}
	row, err := takeByID[model.Training](db, "training", id)
	if err != nil {
		return compliance.Training{}, err
	}
	return mapTraining(row)
}

func (r *ComplianceRepository) ListTrainings(ctx context.Context, period ports.Period) ([]compliance.Training, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Training
	query := withPeriod(db.Model(&model.Training{}), "scheduled_date", period)
	if err := query.Order("scheduled_date asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.WithStack(err), "query trainings")
	}

	items := make([]compliance.Training, 0, len(rows))
	for _, row := range rows {
		item, err := mapTraining(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func mapTraining(row model.Training) (compliance.Training, error) {
	t := compliance.Training{
		ID:            row.ID,
		Topic:         row.Topic,
		TrainerID:     row.TrainerID,
		DurationHours: row.DurationHours,
		State:         compliance.TrainingState(row.State),
		Revision:      row.Revision,
	}

	var err error
	if t.ScheduledDate, err = parseTime(row.ScheduledDate); err != nil {
		return compliance.Training{}, err
	}
	if t.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return compliance.Training{}, err
	}
	if t.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return compliance.Training{}, err
	}
	if err := decodeJSON(row.AttendeesJSON, &t.Attendees); err != nil {
		return compliance.Training{}, err
	}
	return t, nil
}
