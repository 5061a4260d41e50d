package repository

import (
	"context"

	"sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/infrastructure/persistence/sqlite/model"
	"sstcompliance/internal/ports"
)

func (r *ComplianceRepository) SaveRisk(ctx context.Context, risk compliance.RiskAssessment) (compliance.RiskAssessment, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.RiskAssessment{}, err
	}

	now := r.now().UTC()
	next, createdAt, err := stampRevision(risk.ID, risk.Revision, risk.CreatedAt, now)
	if err != nil {
		return compliance.RiskAssessment{}, err
	}
	row := model.RiskAssessment{
		ID:             risk.ID,
		Code:           risk.Code,
		Area:           risk.Area,
		Position:       risk.Position,
		Activity:       risk.Activity,
		Hazard:         risk.Hazard,
		HazardCategory: risk.HazardCategory,
		Probability:    risk.Probability,
		Severity:       risk.Severity,
		RiskLevel:      risk.Level,
		Classification: string(risk.Classification),
		Controls:       risk.Controls,
		ResponsibleID:  risk.ResponsibleID,
		State:          string(risk.State),
		Revision:       next,
		CreatedAt:      formatTime(createdAt),
		UpdatedAt:      formatTime(now),
	}
	if err := saveVersioned(db, "risk assessment", risk.ID, risk.Revision, &row); err != nil {
		return compliance.RiskAssessment{}, err
	}
	return mapRisk(row)
}

func (r *ComplianceRepository) GetRisk(ctx context.Context, id string) (compliance.RiskAssessment, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.RiskAssessment{}, err
	}
	row, err := takeByID[model.RiskAssessment](db, "risk assessment", id)
	if err != nil {
		return compliance.RiskAssessment{}, err
	}
	return mapRisk(row)
}

func (r *ComplianceRepository) ListRisks(ctx context.Context, states []compliance.RiskState) ([]compliance.RiskAssessment, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.RiskAssessment{})
	if len(states) > 0 {
		query = query.Where("state IN ?", statesOf(states))
	}
	var rows []model.RiskAssessment
	if err := query.Order("risk_level desc, created_at asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.WithStack(err), "query risk assessments")
	}

	items := make([]compliance.RiskAssessment, 0, len(rows))
	for _, row := range rows {
		item, err := mapRisk(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func mapRisk(row model.RiskAssessment) (compliance.RiskAssessment, error) {
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return compliance.RiskAssessment{}, err
	}
	updatedAt, err := parseTime(row.UpdatedAt)
	if err != nil {
		return compliance.RiskAssessment{}, err
	}
	return compliance.RiskAssessment{
		ID:             row.ID,
		Code:           row.Code,
		Area:           row.Area,
		Position:       row.Position,
		Activity:       row.Activity,
		Hazard:         row.Hazard,
		HazardCategory: row.HazardCategory,
		Probability:    row.Probability,
		Severity:       row.Severity,
		Level:          row.RiskLevel,
		Classification: compliance.RiskClass(row.Classification),
		Controls:       row.Controls,
		ResponsibleID:  row.ResponsibleID,
		State:          compliance.RiskState(row.State),
		Revision:       row.Revision,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

func (r *ComplianceRepository) SaveIncident(ctx context.Context, inc compliance.Incident) (compliance.Incident, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.Incident{}, err
	}

	now := r.now().UTC()
	next, createdAt, err := stampRevision(inc.ID, inc.Revision, inc.CreatedAt, now)
	if err != nil {
		return compliance.Incident{}, err
	}
	evidence, err := encodeJSON(stringList(inc.Evidence))
	if err != nil {
		return compliance.Incident{}, err
	}
	witnesses, err := encodeJSON(stringList(inc.Witnesses))
	if err != nil {
		return compliance.Incident{}, err
	}
	var investigation *string
	if inc.Investigation != nil {
		raw, err := encodeJSON(inc.Investigation)
		if err != nil {
			return compliance.Incident{}, err
		}
		investigation = &raw
	}

	row := model.Incident{
		ID:                inc.ID,
		Code:              inc.Code,
		Type:              string(inc.Type),
		OccurredAt:        formatTime(inc.OccurredAt),
		Area:              inc.Area,
		Position:          inc.Position,
		Description:       inc.Description,
		AffectedWorkerID:  inc.AffectedWorkerID,
		InjurySeverity:    string(inc.Injury),
		DamageSeverity:    string(inc.Damage),
		SeverityScore:     inc.SeverityScore,
		PriorityTier:      string(inc.Priority),
		Notify:            inc.Notify,
		EvidenceJSON:      evidence,
		WitnessesJSON:     witnesses,
		State:             string(inc.State),
		InvestigationJSON: investigation,
		ClosedAt:          formatTimePtr(inc.ClosedAt),
		Revision:          next,
		CreatedAt:         formatTime(createdAt),
		UpdatedAt:         formatTime(now),
	}
	if err := saveVersioned(db, "incident", inc.ID, inc.Revision, &row); err != nil {
		return compliance.Incident{}, err
	}
	return mapIncident(row)
}

func (r *ComplianceRepository) GetIncident(ctx context.Context, id string) (compliance.Incident, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.Incident{}, err
	}
	row, err := takeByID[model.Incident](db, "incident", id)
	if err != nil {
		return compliance.Incident{}, err
	}
	return mapIncident(row)
}

func (r *ComplianceRepository) ListIncidents(ctx context.Context, period ports.Period) ([]compliance.Incident, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.Incident
	query := withPeriod(db.Model(&model.Incident{}), "occurred_at", period)
	if err := query.Order("occurred_at asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.WithStack(err), "query incidents")
	}

	items := make([]compliance.Incident, 0, len(rows))
	for _, row := range rows {
		item, err := mapIncident(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func mapIncident(row model.Incident) (compliance.Incident, error) {
	inc := compliance.Incident{
		ID:               row.ID,
		Code:             row.Code,
		Type:             compliance.IncidentType(row.Type),
		Area:             row.Area,
		Position:         row.Position,
		Description:      row.Description,
		AffectedWorkerID: row.AffectedWorkerID,
		Injury:           compliance.InjurySeverity(row.InjurySeverity),
		Damage:           compliance.DamageSeverity(row.DamageSeverity),
		SeverityScore:    row.SeverityScore,
		Priority:         compliance.PriorityTier(row.PriorityTier),
		Notify:           row.Notify,
		State:            compliance.IncidentState(row.State),
		Revision:         row.Revision,
	}

	var err error
	if inc.OccurredAt, err = parseTime(row.OccurredAt); err != nil {
		return compliance.Incident{}, err
	}
	if inc.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return compliance.Incident{}, err
	}
	if inc.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return compliance.Incident{}, err
	}
	if inc.ClosedAt, err = parseTimePtr(row.ClosedAt); err != nil {
		return compliance.Incident{}, err
	}
	if err := decodeJSON(row.EvidenceJSON, &inc.Evidence); err != nil {
		return compliance.Incident{}, err
	}
	if err := decodeJSON(row.WitnessesJSON, &inc.Witnesses); err != nil {
		return compliance.Incident{}, err
	}
	if row.InvestigationJSON != nil {
		var inv compliance.Investigation
		if err := decodeJSON(*row.InvestigationJSON, &inv); err != nil {
			return compliance.Incident{}, err
		}
		inc.Investigation = &inv
	}
	return inc, nil
}
