package compliance

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"sstcompliance/internal/bootstrap/logging"
	domain "sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
)

type ReportIncidentInput struct {
	Type             string    `validate:"required"`
	OccurredAt       time.Time `validate:"required"`
	Area             string    `validate:"required"`
	Position         string
	Description      string `validate:"required"`
	AffectedWorkerID string
	Injury           string `validate:"required"`
	Damage           string `validate:"required"`
	Witnesses        []string
	Evidence         []string
	// NotifyOverride replaces the triage default when set.
	NotifyOverride *bool
}

// ReportIncident triages and stores a new incident. When the notify flag is
// set an incident_reported event is sent after commit.
func (s *Service) ReportIncident(ctx context.Context, input ReportIncidentInput) (domain.Incident, error) {
	logCtx, err := s.begin(ctx, "report_incident")
	if err != nil {
		return domain.Incident{}, err
	}
	if err := validateInput(input); err != nil {
		return domain.Incident{}, err
	}

	incidentType, err := domain.ParseIncidentType(strings.ToLower(strings.TrimSpace(input.Type)))
	if err != nil {
		return domain.Incident{}, err
	}
	triage, err := domain.Triage(input.Injury, input.Damage)
	if err != nil {
		return domain.Incident{}, err
	}
	if input.NotifyOverride != nil {
		triage = triage.WithNotifyOverride(*input.NotifyOverride)
	}
	injury, _ := domain.ParseInjurySeverity(input.Injury)
	damage, _ := domain.ParseDamageSeverity(input.Damage)
	if err := s.checkParty(ctx, input.AffectedWorkerID); err != nil {
		return domain.Incident{}, err
	}

	now := s.clock()
	incident := domain.Incident{
		ID:               s.newID(),
		Code:             domain.IncidentCode(now),
		Type:             incidentType,
		OccurredAt:       input.OccurredAt.UTC(),
		Area:             strings.TrimSpace(input.Area),
		Position:         strings.TrimSpace(input.Position),
		Description:      strings.TrimSpace(input.Description),
		AffectedWorkerID: strings.TrimSpace(input.AffectedWorkerID),
		Injury:           injury,
		Damage:           damage,
		SeverityScore:    triage.SeverityScore,
		Priority:         triage.Priority,
		Notify:           triage.Notify,
		Evidence:         cleanList(input.Evidence),
		Witnesses:        cleanList(input.Witnesses),
		State:            domain.IncidentReported,
	}

	var saved domain.Incident
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		saved, err = s.repo.SaveIncident(txCtx, incident)
		return err
	}); err != nil {
		return domain.Incident{}, errs.Wrap(err, "save incident")
	}

	logging.Info(logCtx, "incident reported",
		slog.String("incident_id", saved.ID),
		slog.String("code", saved.Code),
		slog.String("priority", string(saved.Priority)),
	)
	s.setCacheBestEffort(ctx, statusKey("incident", saved.ID), string(saved.State))
	if saved.Notify {
		s.notifyBestEffort(logCtx, saved.ID, []domain.NotifyEffect{{
			EventType: domain.EventIncidentReported,
			Fields: map[string]any{
				"code":            saved.Code,
				"type":            string(saved.Type),
				"area":            saved.Area,
				"priority_tier":   string(saved.Priority),
				"severity_score":  saved.SeverityScore,
				"response_target": triage.ResponseTarget.String(),
			},
		}})
	}
	return saved, nil
}

// IncidentResult is an incident after a transition, plus any corrective
// actions spawned by it.
type IncidentResult struct {
	Incident domain.Incident
	Actions  []domain.CorrectiveAction
}

type IncidentTransitionInput struct {
	IncidentID string `validate:"required"`
	Actor      string
}

func (s *Service) StartInvestigation(ctx context.Context, input IncidentTransitionInput) (IncidentResult, error) {
	return s.transitionIncident(ctx, "start_investigation", input, domain.IncidentTransition{
		Transition: domain.Transition{Action: domain.ActionInvestigate, Actor: input.Actor},
	})
}

type RecordAnalysisInput struct {
	IncidentID      string `validate:"required"`
	Actor           string
	Method          string
	FiveWhys        []string
	Factors         domain.CausalFactors
	RootCause       string
	Recommendations string
}

// RecordIncidentAnalysis attaches the investigation. Each non-blank
// recommendation line becomes an open corrective action in the same
// transaction.
func (s *Service) RecordIncidentAnalysis(ctx context.Context, input RecordAnalysisInput) (IncidentResult, error) {
	method := domain.InvestigationMethod(strings.ToLower(strings.TrimSpace(input.Method)))
	analysis := &domain.Investigation{
		Method:          method,
		FiveWhys:        cleanList(input.FiveWhys),
		Factors:         input.Factors,
		RootCause:       strings.TrimSpace(input.RootCause),
		Recommendations: input.Recommendations,
		InvestigatorID:  strings.TrimSpace(input.Actor),
	}
	return s.transitionIncident(ctx, "record_incident_analysis", IncidentTransitionInput{
		IncidentID: input.IncidentID,
		Actor:      input.Actor,
	}, domain.IncidentTransition{
		Transition:    domain.Transition{Action: domain.ActionRecordAnalysis, Actor: input.Actor},
		Analysis:      analysis,
		ActionDueDays: s.rules.ActionDueDays,
	})
}

func (s *Service) CloseIncident(ctx context.Context, input IncidentTransitionInput) (IncidentResult, error) {
	return s.transitionIncident(ctx, "close_incident", input, domain.IncidentTransition{
		Transition: domain.Transition{Action: domain.ActionClose, Actor: input.Actor},
	})
}

func (s *Service) transitionIncident(ctx context.Context, operation string, input IncidentTransitionInput, t domain.IncidentTransition) (IncidentResult, error) {
	logCtx, err := s.begin(ctx, operation)
	if err != nil {
		return IncidentResult{}, err
	}
	if err := validateInput(input); err != nil {
		return IncidentResult{}, err
	}

	t.At = s.clock()
	t.Actor = actorOrSystem(t.Actor)

	var (
		result  IncidentResult
		notices []domain.NotifyEffect
	)
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		incident, err := s.repo.GetIncident(txCtx, input.IncidentID)
		if err != nil {
			return err
		}
		out, err := domain.ApplyIncident(incident, t)
		if err != nil {
			return err
		}

		incident.State = out.State
		if t.Analysis != nil {
			analysis := *t.Analysis
			analysis.InvestigatedAt = t.At
			incident.Investigation = &analysis
		}

		var spawn *domain.SpawnCorrectiveActionsEffect
		for _, e := range out.Effects {
			switch eff := e.(type) {
			case domain.RecordClosureEffect:
				at := eff.At
				incident.ClosedAt = &at
			case domain.SpawnCorrectiveActionsEffect:
				spawn = &eff
			}
		}

		result.Incident, err = s.repo.SaveIncident(txCtx, incident)
		if err != nil {
			return err
		}
		if spawn != nil {
			for _, desc := range spawn.Descriptions {
				action, err := s.repo.SaveCorrectiveAction(txCtx, domain.CorrectiveAction{
					ID:          s.newID(),
					IncidentID:  incident.ID,
					Description: desc,
					DueDate:     spawn.DueDate,
					State:       domain.ActionOpen,
				})
				if err != nil {
					return errs.Wrap(err, "save spawned corrective action")
				}
				result.Actions = append(result.Actions, action)
			}
		}
		notices = out.Notifications()
		return nil
	})
	s.observe(domain.IncidentMachine.Family(), t.Action, err)
	if err != nil {
		return IncidentResult{}, err
	}

	logging.Info(logCtx, "incident transitioned",
		slog.String("incident_id", result.Incident.ID),
		slog.String("action", string(t.Action)),
		slog.String("state", string(result.Incident.State)),
		slog.Int("actions_created", len(result.Actions)),
	)
	s.setCacheBestEffort(ctx, statusKey("incident", result.Incident.ID), string(result.Incident.State))
	for _, a := range result.Actions {
		s.setCacheBestEffort(ctx, statusKey("action", a.ID), string(a.State))
	}
	s.notifyBestEffort(logCtx, result.Incident.ID, notices)
	return result, nil
}

func (s *Service) GetIncident(ctx context.Context, id string) (domain.Incident, error) {
	if _, err := s.begin(ctx, "get_incident"); err != nil {
		return domain.Incident{}, err
	}
	return s.repo.GetIncident(ctx, strings.TrimSpace(id))
}
