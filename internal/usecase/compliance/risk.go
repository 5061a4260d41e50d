package compliance

import (
	"context"
	"log/slog"
	"strings"

	"sstcompliance/internal/bootstrap/logging"
	domain "sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
)

type RegisterRiskInput struct {
	Area           string `validate:"required"`
	Position       string
	Activity       string `validate:"required"`
	Hazard         string `validate:"required"`
	HazardCategory string
	Probability    int
	Severity       int
	Controls       string
	ResponsibleID  string
}

// RegisterRisk scores and stores a new hazard in pending state. The
// responsible party, when given, must exist in the reference catalog.
func (s *Service) RegisterRisk(ctx context.Context, input RegisterRiskInput) (domain.RiskAssessment, error) {
	logCtx, err := s.begin(ctx, "register_risk")
	if err != nil {
		return domain.RiskAssessment{}, err
	}
	if err := validateInput(input); err != nil {
		return domain.RiskAssessment{}, err
	}
	if err := s.checkParty(ctx, input.ResponsibleID); err != nil {
		return domain.RiskAssessment{}, err
	}

	now := s.clock()
	risk := domain.RiskAssessment{
		ID:             s.newID(),
		Code:           domain.RiskCode(now, input.Hazard),
		Area:           strings.TrimSpace(input.Area),
		Position:       strings.TrimSpace(input.Position),
		Activity:       strings.TrimSpace(input.Activity),
		Hazard:         strings.TrimSpace(input.Hazard),
		HazardCategory: strings.TrimSpace(input.HazardCategory),
		Controls:       strings.TrimSpace(input.Controls),
		ResponsibleID:  strings.TrimSpace(input.ResponsibleID),
		State:          domain.RiskPending,
	}
	if err := risk.Rescore(input.Probability, input.Severity); err != nil {
		return domain.RiskAssessment{}, err
	}

	var saved domain.RiskAssessment
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		saved, err = s.repo.SaveRisk(txCtx, risk)
		return err
	}); err != nil {
		return domain.RiskAssessment{}, errs.Wrap(err, "save risk assessment")
	}

	logging.Info(logCtx, "risk registered",
		slog.String("risk_id", saved.ID),
		slog.Int("risk_level", saved.Level),
		slog.String("classification", string(saved.Classification)),
	)
	s.setCacheBestEffort(ctx, statusKey("risk", saved.ID), string(saved.State))
	return saved, nil
}

type TransitionRiskInput struct {
	RiskID string `validate:"required"`
	Action domain.Action
	Actor  string
}

func (s *Service) TransitionRisk(ctx context.Context, input TransitionRiskInput) (domain.RiskAssessment, error) {
	logCtx, err := s.begin(ctx, "transition_risk")
	if err != nil {
		return domain.RiskAssessment{}, err
	}
	if err := validateInput(input); err != nil {
		return domain.RiskAssessment{}, err
	}

	var saved domain.RiskAssessment
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		risk, err := s.repo.GetRisk(txCtx, input.RiskID)
		if err != nil {
			return err
		}
		out, err := domain.ApplyRisk(risk, domain.Transition{Action: input.Action, Actor: input.Actor, At: s.clock()})
		if err != nil {
			return err
		}
		risk.State = out.State
		saved, err = s.repo.SaveRisk(txCtx, risk)
		return err
	})
	s.observe(domain.RiskMachine.Family(), input.Action, err)
	if err != nil {
		return domain.RiskAssessment{}, err
	}

	logging.Info(logCtx, "risk transitioned", slog.String("risk_id", saved.ID), slog.String("state", string(saved.State)))
	s.setCacheBestEffort(ctx, statusKey("risk", saved.ID), string(saved.State))
	return saved, nil
}

type UpdateRiskControlsInput struct {
	RiskID string `validate:"required"`
	// Controls replaces the stored text when not blank.
	Controls string
	// Setting either factor rescores the risk; both must then be 1..5.
	Probability int
	Severity    int
}

// UpdateRiskControls replaces the control text, rescores, or both. A
// controlled risk is frozen.
func (s *Service) UpdateRiskControls(ctx context.Context, input UpdateRiskControlsInput) (domain.RiskAssessment, error) {
	logCtx, err := s.begin(ctx, "update_risk_controls")
	if err != nil {
		return domain.RiskAssessment{}, err
	}
	if err := validateInput(input); err != nil {
		return domain.RiskAssessment{}, err
	}
	controls := strings.TrimSpace(input.Controls)
	rescore := input.Probability != 0 || input.Severity != 0
	if controls == "" && !rescore {
		return domain.RiskAssessment{}, &domain.ValidationError{Field: "controls", Reason: "controls or a new probability/severity pair is required"}
	}

	var saved domain.RiskAssessment
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		risk, err := s.repo.GetRisk(txCtx, input.RiskID)
		if err != nil {
			return err
		}
		if domain.RiskMachine.IsTerminal(risk.State) {
			return &domain.InvalidTransitionError{
				Family: domain.RiskMachine.Family(),
				From:   string(risk.State),
				Action: "update_controls",
				Reason: "state is terminal",
			}
		}
		if controls != "" {
			risk.Controls = controls
		}
		if rescore {
			if err := risk.Rescore(input.Probability, input.Severity); err != nil {
				return err
			}
		}
		saved, err = s.repo.SaveRisk(txCtx, risk)
		return err
	}); err != nil {
		return domain.RiskAssessment{}, err
	}

	logging.Info(logCtx, "risk controls updated", slog.String("risk_id", saved.ID), slog.Int("risk_level", saved.Level))
	return saved, nil
}

func (s *Service) GetRisk(ctx context.Context, id string) (domain.RiskAssessment, error) {
	if _, err := s.begin(ctx, "get_risk"); err != nil {
		return domain.RiskAssessment{}, err
	}
	return s.repo.GetRisk(ctx, strings.TrimSpace(id))
}

func (s *Service) ListRisks(ctx context.Context, states ...domain.RiskState) ([]domain.RiskAssessment, error) {
	if _, err := s.begin(ctx, "list_risks"); err != nil {
		return nil, err
	}
	return s.repo.ListRisks(ctx, states)
}

// checkParty resolves id in the catalog when both are present.
func (s *Service) checkParty(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" || s.catalog == nil {
		return nil
	}
	_, err := s.catalog.Party(ctx, id)
	return err
}
