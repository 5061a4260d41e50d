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

type CreateFindingInput struct {
	Description   string `validate:"required"`
	Category      string
	ResponsibleID string
	InspectionID  string
	// DueDate defaults to now plus the configured finding due days.
	DueDate  time.Time
	Evidence []string
}

// CreateFinding records a manually reported non-conformance.
func (s *Service) CreateFinding(ctx context.Context, input CreateFindingInput) (domain.Finding, error) {
	logCtx, err := s.begin(ctx, "create_finding")
	if err != nil {
		return domain.Finding{}, err
	}
	if err := validateInput(input); err != nil {
		return domain.Finding{}, err
	}
	if err := s.checkParty(ctx, input.ResponsibleID); err != nil {
		return domain.Finding{}, err
	}

	now := s.clock()
	due := input.DueDate
	if due.IsZero() {
		due = now.AddDate(0, 0, s.rules.FindingDueDays)
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = domain.DefaultCategory
	}

	var saved domain.Finding
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if id := strings.TrimSpace(input.InspectionID); id != "" {
			if _, err := s.repo.GetInspection(txCtx, id); err != nil {
				return err
			}
		}
		var err error
		saved, err = s.repo.SaveFinding(txCtx, domain.Finding{
			ID:            s.newID(),
			InspectionID:  strings.TrimSpace(input.InspectionID),
			Description:   strings.TrimSpace(input.Description),
			Category:      category,
			ResponsibleID: strings.TrimSpace(input.ResponsibleID),
			DueDate:       due.UTC(),
			Evidence:      cleanList(input.Evidence),
			State:         domain.FindingOpen,
		})
		return err
	}); err != nil {
		return domain.Finding{}, errs.Wrap(err, "save finding")
	}

	logging.Info(logCtx, "finding created", slog.String("finding_id", saved.ID))
	s.setCacheBestEffort(ctx, statusKey("finding", saved.ID), string(saved.State))
	return saved, nil
}

func (s *Service) StartFindingCorrection(ctx context.Context, findingID string, actor string) (domain.Finding, error) {
	return s.transitionFinding(ctx, "start_finding_correction", findingID, domain.FindingTransition{
		Transition: domain.Transition{Action: domain.ActionStartCorrection, Actor: actor},
	}, "")
}

type CloseFindingInput struct {
	FindingID string `validate:"required"`
	Actor     string
	// ClosureDate defaults to now.
	ClosureDate     time.Time
	ClosureEvidence []string
	Comments        string
}

func (s *Service) CloseFinding(ctx context.Context, input CloseFindingInput) (domain.Finding, error) {
	if err := validateInput(input); err != nil {
		return domain.Finding{}, err
	}
	closure := input.ClosureDate
	if closure.IsZero() {
		closure = s.clock()
	}
	closure = closure.UTC()
	return s.transitionFinding(ctx, "close_finding", input.FindingID, domain.FindingTransition{
		Transition:      domain.Transition{Action: domain.ActionClose, Actor: input.Actor},
		ClosureDate:     &closure,
		ClosureEvidence: cleanList(input.ClosureEvidence),
	}, input.Comments)
}

func (s *Service) transitionFinding(ctx context.Context, operation string, findingID string, t domain.FindingTransition, comments string) (domain.Finding, error) {
	logCtx, err := s.begin(ctx, operation)
	if err != nil {
		return domain.Finding{}, err
	}
	findingID = strings.TrimSpace(findingID)
	if findingID == "" {
		return domain.Finding{}, &domain.ValidationError{Field: "finding_id", Reason: "is required"}
	}

	t.At = s.clock()
	t.Actor = actorOrSystem(t.Actor)
	policy := domain.FindingPolicy{RequireClosureEvidence: s.rules.RequireClosureEvidence}

	var (
		saved   domain.Finding
		notices []domain.NotifyEffect
	)
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		finding, err := s.repo.GetFinding(txCtx, findingID)
		if err != nil {
			return err
		}
		out, err := domain.ApplyFinding(finding, t, policy)
		if err != nil {
			return err
		}
		finding.State = out.State
		for _, e := range out.Effects {
			if c, ok := e.(domain.RecordClosureEffect); ok {
				at := c.At
				finding.ClosureDate = &at
			}
		}
		if len(t.ClosureEvidence) > 0 {
			finding.ClosureEvidence = append(finding.ClosureEvidence, t.ClosureEvidence...)
		}
		if c := strings.TrimSpace(comments); c != "" {
			finding.Comments = c
		}
		saved, err = s.repo.SaveFinding(txCtx, finding)
		notices = out.Notifications()
		return err
	})
	s.observe(domain.FindingMachine.Family(), t.Action, err)
	if err != nil {
		return domain.Finding{}, err
	}

	logging.Info(logCtx, "finding transitioned",
		slog.String("finding_id", saved.ID),
		slog.String("state", string(saved.State)),
	)
	s.setCacheBestEffort(ctx, statusKey("finding", saved.ID), string(saved.State))
	s.notifyBestEffort(logCtx, saved.ID, notices)
	return saved, nil
}

func (s *Service) ListFindings(ctx context.Context, filter ports.FindingFilter) ([]domain.Finding, error) {
	if _, err := s.begin(ctx, "list_findings"); err != nil {
		return nil, err
	}
	return s.repo.ListFindings(ctx, filter)
}
