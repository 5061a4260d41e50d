package compliance

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"sstcompliance/internal/bootstrap/logging"
	domain "sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/ports"
)

// CreateChecklist stores a definition produced by a ChecklistBuilder or an
// import file. Items without an id get one; blank categories become the
// default category.
func (s *Service) CreateChecklist(ctx context.Context, def domain.ChecklistDefinition) (domain.ChecklistDefinition, error) {
	logCtx, err := s.begin(ctx, "create_checklist")
	if err != nil {
		return domain.ChecklistDefinition{}, err
	}

	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return domain.ChecklistDefinition{}, &domain.ValidationError{Field: "name", Reason: "checklist name is required"}
	}
	items, err := s.prepareItems(def.Items)
	if err != nil {
		return domain.ChecklistDefinition{}, err
	}

	def.ID = s.newID()
	def.Area = strings.TrimSpace(def.Area)
	def.Items = items
	def.Revision = 0

	var saved domain.ChecklistDefinition
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		saved, err = s.repo.SaveChecklist(txCtx, def)
		return err
	}); err != nil {
		return domain.ChecklistDefinition{}, errs.Wrap(err, "save checklist")
	}

	logging.Info(logCtx, "checklist created", slog.String("checklist_id", saved.ID), slog.Int("items", len(saved.Items)))
	return saved, nil
}

// ReplaceChecklistItems swaps the item list. Checklists become read-only once
// any inspection against them has executed.
func (s *Service) ReplaceChecklistItems(ctx context.Context, checklistID string, items []domain.ChecklistItem) (domain.ChecklistDefinition, error) {
	logCtx, err := s.begin(ctx, "replace_checklist_items")
	if err != nil {
		return domain.ChecklistDefinition{}, err
	}
	prepared, err := s.prepareItems(items)
	if err != nil {
		return domain.ChecklistDefinition{}, err
	}

	var saved domain.ChecklistDefinition
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		def, err := s.repo.GetChecklist(txCtx, checklistID)
		if err != nil {
			return err
		}
		executed, err := s.repo.ListInspections(txCtx, ports.InspectionFilter{
			ChecklistID: def.ID,
			States:      []domain.InspectionState{domain.InspectionInProgress, domain.InspectionCompleted},
		})
		if err != nil {
			return err
		}
		if len(executed) > 0 {
			return &domain.ValidationError{
				Field:  "checklist",
				Reason: "checklist is locked: an inspection has already executed against it",
			}
		}
		def.Items = prepared
		saved, err = s.repo.SaveChecklist(txCtx, def)
		return err
	}); err != nil {
		return domain.ChecklistDefinition{}, err
	}

	logging.Info(logCtx, "checklist items replaced", slog.String("checklist_id", saved.ID), slog.Int("items", len(saved.Items)))
	return saved, nil
}

func (s *Service) prepareItems(items []domain.ChecklistItem) ([]domain.ChecklistItem, error) {
	if len(items) == 0 {
		return nil, &domain.ValidationError{Field: "items", Reason: "checklist needs at least one item"}
	}
	out := make([]domain.ChecklistItem, 0, len(items))
	for _, it := range items {
		it.ID = strings.TrimSpace(it.ID)
		if it.ID == "" {
			it.ID = s.newID()
		}
		it.Text = strings.TrimSpace(it.Text)
		t, err := domain.ParseAnswerType(string(it.AnswerType))
		if err != nil {
			return nil, err
		}
		it.AnswerType = t
		if it.Category = strings.TrimSpace(it.Category); it.Category == "" {
			it.Category = domain.DefaultCategory
		}
		out = append(out, it)
	}
	if err := domain.ValidateChecklistItems(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetChecklist(ctx context.Context, id string) (domain.ChecklistDefinition, error) {
	if _, err := s.begin(ctx, "get_checklist"); err != nil {
		return domain.ChecklistDefinition{}, err
	}
	return s.repo.GetChecklist(ctx, strings.TrimSpace(id))
}

type ScheduleInspectionsInput struct {
	ChecklistID string    `validate:"required"`
	Start       time.Time `validate:"required"`
	Frequency   string    `validate:"required"`
	Count       int       `validate:"gte=1"`
	InspectorID string    `validate:"required"`
	// Area defaults to the checklist's area.
	Area string
}

// ScheduleInspections expands one request into Count persisted inspections.
func (s *Service) ScheduleInspections(ctx context.Context, input ScheduleInspectionsInput) ([]domain.Inspection, error) {
	logCtx, err := s.begin(ctx, "schedule_inspections")
	if err != nil {
		return nil, err
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	freq, err := domain.ParseFrequency(input.Frequency)
	if err != nil {
		return nil, err
	}
	dates, err := domain.Schedule(input.Start, freq, input.Count, s.rules.MaxRepeats)
	if err != nil {
		return nil, err
	}
	if err := s.checkParty(ctx, input.InspectorID); err != nil {
		return nil, err
	}

	var out []domain.Inspection
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		def, err := s.repo.GetChecklist(txCtx, input.ChecklistID)
		if err != nil {
			return err
		}
		area := strings.TrimSpace(input.Area)
		if area == "" {
			area = def.Area
		}
		out = make([]domain.Inspection, 0, len(dates))
		for _, d := range dates {
			saved, err := s.repo.SaveInspection(txCtx, domain.Inspection{
				ID:            s.newID(),
				ChecklistID:   def.ID,
				Area:          area,
				ScheduledDate: d,
				InspectorID:   strings.TrimSpace(input.InspectorID),
				State:         domain.InspectionScheduled,
			})
			if err != nil {
				return err
			}
			out = append(out, saved)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	logging.Info(logCtx, "inspections scheduled",
		slog.String("checklist_id", input.ChecklistID),
		slog.String("frequency", string(freq)),
		slog.Int("count", len(out)),
	)
	for _, insp := range out {
		s.setCacheBestEffort(ctx, statusKey("inspection", insp.ID), string(insp.State))
	}
	return out, nil
}

func (s *Service) StartInspection(ctx context.Context, inspectionID string, actor string) (domain.Inspection, error) {
	logCtx, err := s.begin(ctx, "start_inspection")
	if err != nil {
		return domain.Inspection{}, err
	}

	t := domain.Transition{Action: domain.ActionStart, Actor: actorOrSystem(actor), At: s.clock()}
	var saved domain.Inspection
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		insp, err := s.repo.GetInspection(txCtx, strings.TrimSpace(inspectionID))
		if err != nil {
			return err
		}
		out, err := domain.ApplyInspection(insp, t)
		if err != nil {
			return err
		}
		insp.State = out.State
		saved, err = s.repo.SaveInspection(txCtx, insp)
		return err
	})
	s.observe(domain.InspectionMachine.Family(), t.Action, err)
	if err != nil {
		return domain.Inspection{}, err
	}

	logging.Info(logCtx, "inspection started", slog.String("inspection_id", saved.ID))
	s.setCacheBestEffort(ctx, statusKey("inspection", saved.ID), string(saved.State))
	return saved, nil
}

type ExecuteInspectionInput struct {
	InspectionID string            `validate:"required"`
	Answers      map[string]string `validate:"required"`
	Observations string
	Actor        string
	// Complete moves the inspection to completed after recording answers.
	Complete bool
}

type ExecuteInspectionResult struct {
	Inspection domain.Inspection
	Findings   []domain.Finding
	Answers    []domain.AnswerRecord
}

// ExecuteInspection evaluates the answers against the inspection's checklist
// and persists one open finding per non-conforming item. A scheduled
// inspection is started implicitly. Re-executing an open inspection replaces
// its answers; items that already carry a finding do not get a second one.
func (s *Service) ExecuteInspection(ctx context.Context, input ExecuteInspectionInput) (ExecuteInspectionResult, error) {
	logCtx, err := s.begin(ctx, "execute_inspection")
	if err != nil {
		return ExecuteInspectionResult{}, err
	}
	if err := validateInput(input); err != nil {
		return ExecuteInspectionResult{}, err
	}

	now := s.clock()
	actor := actorOrSystem(input.Actor)
	evaluator := domain.NewChecklistEvaluator(s.rules.FindingDueDays)

	var result ExecuteInspectionResult
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		insp, err := s.repo.GetInspection(txCtx, input.InspectionID)
		if err != nil {
			return err
		}
		if insp.State == domain.InspectionScheduled {
			out, err := domain.ApplyInspection(insp, domain.Transition{Action: domain.ActionStart, Actor: actor, At: now})
			if err != nil {
				return err
			}
			insp.State = out.State
		}
		if insp.State != domain.InspectionInProgress {
			return &domain.InvalidTransitionError{
				Family: domain.InspectionMachine.Family(),
				From:   string(insp.State),
				Action: "execute",
				Reason: "answers can only be recorded on an open inspection",
			}
		}

		def, err := s.repo.GetChecklist(txCtx, insp.ChecklistID)
		if err != nil {
			return err
		}
		eval, err := evaluator.Evaluate(def.Items, input.Answers, now)
		if err != nil {
			return err
		}

		insp.Answers = eval.Answers
		insp.Observations = strings.TrimSpace(input.Observations)
		if input.Complete {
			out, err := domain.ApplyInspection(insp, domain.Transition{Action: domain.ActionComplete, Actor: actor, At: now})
			if err != nil {
				return err
			}
			insp.State = out.State
			for _, e := range out.Effects {
				if c, ok := e.(domain.RecordClosureEffect); ok {
					at := c.At
					insp.CompletedAt = &at
				}
			}
		}

		result.Inspection, err = s.repo.SaveInspection(txCtx, insp)
		if err != nil {
			return err
		}
		existing, err := s.repo.ListFindings(txCtx, ports.FindingFilter{InspectionID: insp.ID})
		if err != nil {
			return err
		}
		flagged := make(map[string]struct{}, len(existing))
		for _, f := range existing {
			flagged[f.ItemID] = struct{}{}
		}
		for _, draft := range eval.Drafts {
			if _, ok := flagged[draft.ItemID]; ok {
				continue
			}
			f, err := s.repo.SaveFinding(txCtx, domain.Finding{
				ID:            s.newID(),
				InspectionID:  insp.ID,
				ItemID:        draft.ItemID,
				Description:   draft.Description,
				Category:      draft.Category,
				ResponsibleID: insp.InspectorID,
				DueDate:       draft.DueDate,
				State:         draft.State,
			})
			if err != nil {
				return errs.Wrap(err, "save detected finding")
			}
			result.Findings = append(result.Findings, f)
		}
		result.Answers = eval.Answers
		return nil
	})
	if err != nil {
		return ExecuteInspectionResult{}, err
	}

	logging.Info(logCtx, "inspection executed",
		slog.String("inspection_id", result.Inspection.ID),
		slog.String("state", string(result.Inspection.State)),
		slog.Int("findings", len(result.Findings)),
	)
	if s.recorder != nil {
		s.recorder.RecordFindings(len(result.Findings))
	}
	s.setCacheBestEffort(ctx, statusKey("inspection", result.Inspection.ID), string(result.Inspection.State))
	for _, f := range result.Findings {
		s.setCacheBestEffort(ctx, statusKey("finding", f.ID), string(f.State))
	}
	if len(result.Findings) > 0 {
		ids := make([]string, 0, len(result.Findings))
		for _, f := range result.Findings {
			ids = append(ids, f.ID)
		}
		s.notifyBestEffort(logCtx, result.Inspection.ID, []domain.NotifyEffect{{
			EventType: domain.EventFindingsDetected,
			Fields: map[string]any{
				"area":          result.Inspection.Area,
				"checklist_id":  result.Inspection.ChecklistID,
				"finding_count": len(result.Findings),
				"finding_ids":   ids,
			},
		}})
	}
	return result, nil
}

func (s *Service) ListInspections(ctx context.Context, filter ports.InspectionFilter) ([]domain.Inspection, error) {
	if _, err := s.begin(ctx, "list_inspections"); err != nil {
		return nil, err
	}
	return s.repo.ListInspections(ctx, filter)
}
