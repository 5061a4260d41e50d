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

type AssignEquipmentInput struct {
	WorkerID      string `validate:"required"`
	CatalogItemID string `validate:"required"`
	// IssueDate defaults to now.
	IssueDate time.Time
	Condition string
	// ValidityMonths overrides the catalog value when positive.
	ValidityMonths int `validate:"gte=0"`
}

// AssignEquipment issues protective equipment to a worker. The expiry date is
// computed from the catalog item's validity months.
func (s *Service) AssignEquipment(ctx context.Context, input AssignEquipmentInput) (domain.EquipmentAssignment, error) {
	logCtx, err := s.begin(ctx, "assign_equipment")
	if err != nil {
		return domain.EquipmentAssignment{}, err
	}
	if err := validateInput(input); err != nil {
		return domain.EquipmentAssignment{}, err
	}
	if err := s.checkParty(ctx, input.WorkerID); err != nil {
		return domain.EquipmentAssignment{}, err
	}
	months, err := s.validityMonths(ctx, input.CatalogItemID, input.ValidityMonths, 0)
	if err != nil {
		return domain.EquipmentAssignment{}, err
	}

	issue := input.IssueDate
	if issue.IsZero() {
		issue = s.clock()
	}
	issue = issue.UTC()
	expiry, err := domain.ExpiryDate(issue, months)
	if err != nil {
		return domain.EquipmentAssignment{}, err
	}

	var saved domain.EquipmentAssignment
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		saved, err = s.repo.SaveAssignment(txCtx, domain.EquipmentAssignment{
			ID:             s.newID(),
			WorkerID:       strings.TrimSpace(input.WorkerID),
			CatalogItemID:  strings.TrimSpace(input.CatalogItemID),
			IssueDate:      issue,
			ValidityMonths: months,
			ExpiryDate:     expiry,
			Condition:      strings.TrimSpace(input.Condition),
			State:          domain.EquipmentActive,
		})
		return err
	}); err != nil {
		return domain.EquipmentAssignment{}, errs.Wrap(err, "save equipment assignment")
	}

	logging.Info(logCtx, "equipment assigned",
		slog.String("assignment_id", saved.ID),
		slog.String("worker_id", saved.WorkerID),
		slog.String("expiry_date", saved.ExpiryDate.Format(time.DateOnly)),
	)
	s.setCacheBestEffort(ctx, statusKey("assignment", saved.ID), string(saved.State))
	return saved, nil
}

// validityMonths prefers an explicit override, then the catalog, then the
// fallback. A catalog miss is reported as NotFound.
func (s *Service) validityMonths(ctx context.Context, itemID string, override int, fallback int) (int, error) {
	if override > 0 {
		return override, nil
	}
	if s.catalog != nil {
		item, err := s.catalog.EquipmentItem(ctx, strings.TrimSpace(itemID))
		if err != nil {
			return 0, err
		}
		return item.ValidityMonths, nil
	}
	if fallback > 0 {
		return fallback, nil
	}
	return 0, &domain.ValidationError{Field: "validity_months", Reason: "no catalog configured; validity months must be given"}
}

type RenewAssignmentInput struct {
	AssignmentID string `validate:"required"`
	Actor        string
	Condition    string
}

type RenewalResult struct {
	Previous domain.EquipmentAssignment
	Current  domain.EquipmentAssignment
}

// RenewAssignment marks the assignment renewed and appends a new active one
// linked back to it. The previous record's dates are left untouched.
func (s *Service) RenewAssignment(ctx context.Context, input RenewAssignmentInput) (RenewalResult, error) {
	logCtx, err := s.begin(ctx, "renew_assignment")
	if err != nil {
		return RenewalResult{}, err
	}
	if err := validateInput(input); err != nil {
		return RenewalResult{}, err
	}

	t := domain.EquipmentTransition{Transition: domain.Transition{
		Action: domain.ActionRenew,
		Actor:  actorOrSystem(input.Actor),
		At:     s.clock(),
	}}

	var (
		result  RenewalResult
		notices []domain.NotifyEffect
	)
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetAssignment(txCtx, input.AssignmentID)
		if err != nil {
			return err
		}
		t.ValidityMonths, err = s.validityMonths(ctx, current.CatalogItemID, 0, current.ValidityMonths)
		if err != nil {
			return err
		}
		out, err := domain.ApplyEquipment(current, t)
		if err != nil {
			return err
		}

		current.State = out.State
		result.Previous, err = s.repo.SaveAssignment(txCtx, current)
		if err != nil {
			return err
		}
		for _, e := range out.Effects {
			renewal, ok := e.(domain.RenewalEffect)
			if !ok {
				continue
			}
			condition := strings.TrimSpace(input.Condition)
			if condition == "" {
				condition = "new"
			}
			result.Current, err = s.repo.SaveAssignment(txCtx, domain.EquipmentAssignment{
				ID:             s.newID(),
				WorkerID:       current.WorkerID,
				CatalogItemID:  current.CatalogItemID,
				IssueDate:      renewal.IssueDate,
				ValidityMonths: t.ValidityMonths,
				ExpiryDate:     renewal.ExpiryDate,
				Condition:      condition,
				RenewedFrom:    renewal.RenewedFrom,
				State:          domain.EquipmentActive,
			})
			if err != nil {
				return errs.Wrap(err, "save renewed assignment")
			}
		}
		notices = out.Notifications()
		return nil
	})
	s.observe(domain.EquipmentMachine.Family(), t.Action, err)
	if err != nil {
		return RenewalResult{}, err
	}

	logging.Info(logCtx, "equipment renewed",
		slog.String("previous_id", result.Previous.ID),
		slog.String("assignment_id", result.Current.ID),
	)
	s.setCacheBestEffort(ctx, statusKey("assignment", result.Previous.ID), string(result.Previous.State))
	s.setCacheBestEffort(ctx, statusKey("assignment", result.Current.ID), string(result.Current.State))
	s.notifyBestEffort(logCtx, result.Current.ID, notices)
	return result, nil
}

// ExpireOverdueAssignments moves every active assignment whose expiry date
// has passed to expired. Assignments still within validity are left alone.
func (s *Service) ExpireOverdueAssignments(ctx context.Context) ([]domain.EquipmentAssignment, error) {
	logCtx, err := s.begin(ctx, "expire_overdue_assignments")
	if err != nil {
		return nil, err
	}

	t := domain.EquipmentTransition{Transition: domain.Transition{Action: domain.ActionExpire, Actor: "system", At: s.clock()}}
	var expired []domain.EquipmentAssignment
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		active, err := s.repo.ListAssignments(txCtx, ports.AssignmentFilter{States: []domain.EquipmentState{domain.EquipmentActive}})
		if err != nil {
			return err
		}
		for _, asg := range active {
			if domain.ClassifyStanding(asg.ExpiryDate, t.At) != domain.StandingExpired {
				continue
			}
			out, err := domain.ApplyEquipment(asg, t)
			s.observe(domain.EquipmentMachine.Family(), t.Action, err)
			if err != nil {
				return err
			}
			asg.State = out.State
			saved, err := s.repo.SaveAssignment(txCtx, asg)
			if err != nil {
				return err
			}
			expired = append(expired, saved)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logging.Info(logCtx, "overdue assignments expired", slog.Int("count", len(expired)))
	for _, asg := range expired {
		s.setCacheBestEffort(ctx, statusKey("assignment", asg.ID), string(asg.State))
	}
	return expired, nil
}

// ExpireAssignment applies the expire action to one assignment. It fails
// with an InvalidTransitionError while the assignment is still valid.
func (s *Service) ExpireAssignment(ctx context.Context, assignmentID string) (domain.EquipmentAssignment, error) {
	logCtx, err := s.begin(ctx, "expire_assignment")
	if err != nil {
		return domain.EquipmentAssignment{}, err
	}

	t := domain.EquipmentTransition{Transition: domain.Transition{Action: domain.ActionExpire, Actor: "system", At: s.clock()}}
	var saved domain.EquipmentAssignment
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		asg, err := s.repo.GetAssignment(txCtx, strings.TrimSpace(assignmentID))
		if err != nil {
			return err
		}
		out, err := domain.ApplyEquipment(asg, t)
		if err != nil {
			return err
		}
		asg.State = out.State
		saved, err = s.repo.SaveAssignment(txCtx, asg)
		return err
	})
	s.observe(domain.EquipmentMachine.Family(), t.Action, err)
	if err != nil {
		return domain.EquipmentAssignment{}, err
	}
	logging.Info(logCtx, "assignment expired", slog.String("assignment_id", saved.ID))
	s.setCacheBestEffort(ctx, statusKey("assignment", saved.ID), string(saved.State))
	return saved, nil
}

type DueAssignment struct {
	Assignment domain.EquipmentAssignment `json:"assignment"`
	Standing   domain.ExpiryResult        `json:"standing"`
}

// EquipmentDue lists active assignments that are expiring soon or already
// expired at now. A zero now uses the service clock.
func (s *Service) EquipmentDue(ctx context.Context, now time.Time, workerID string) ([]DueAssignment, error) {
	if _, err := s.begin(ctx, "equipment_due"); err != nil {
		return nil, err
	}
	if now.IsZero() {
		now = s.clock()
	}

	active, err := s.repo.ListAssignments(ctx, ports.AssignmentFilter{
		WorkerID: strings.TrimSpace(workerID),
		States:   []domain.EquipmentState{domain.EquipmentActive},
	})
	if err != nil {
		return nil, err
	}
	out := make([]DueAssignment, 0, len(active))
	for _, asg := range active {
		st := domain.StandingOf(asg.ExpiryDate, now)
		if st.Standing == domain.StandingValid {
			continue
		}
		out = append(out, DueAssignment{Assignment: asg, Standing: st})
	}
	return out, nil
}
