package compliance

import (
	"context"
	"log/slog"
	"strings"

	"sstcompliance/internal/bootstrap/logging"
	domain "sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/ports"
)

type UpdateCorrectiveActionInput struct {
	ActionID string `validate:"required"`
	Actor    string
	// Progress is applied when non-nil.
	Progress *int
	Comments string
	Evidence []string
	// Transition is applied after the field updates when non-empty.
	Transition domain.Action
}

// UpdateCorrectiveAction records progress and optionally advances the action.
// Implementing an action sets progress to 100.
func (s *Service) UpdateCorrectiveAction(ctx context.Context, input UpdateCorrectiveActionInput) (domain.CorrectiveAction, error) {
	logCtx, err := s.begin(ctx, "update_corrective_action")
	if err != nil {
		return domain.CorrectiveAction{}, err
	}
	if err := validateInput(input); err != nil {
		return domain.CorrectiveAction{}, err
	}
	if input.Progress != nil {
		if err := domain.ValidateProgress(*input.Progress); err != nil {
			return domain.CorrectiveAction{}, err
		}
	}

	t := domain.Transition{Action: input.Transition, Actor: actorOrSystem(input.Actor), At: s.clock()}
	var (
		saved   domain.CorrectiveAction
		notices []domain.NotifyEffect
	)
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		action, err := s.repo.GetCorrectiveAction(txCtx, input.ActionID)
		if err != nil {
			return err
		}
		if domain.CorrectiveActionMachine.IsTerminal(action.State) {
			return &domain.InvalidTransitionError{
				Family: domain.CorrectiveActionMachine.Family(),
				From:   string(action.State),
				Action: actionOrUpdate(input.Transition),
				Reason: "state is terminal",
			}
		}
		if input.Progress != nil {
			action.Progress = *input.Progress
		}
		if c := strings.TrimSpace(input.Comments); c != "" {
			action.Comments = c
		}
		action.Evidence = append(action.Evidence, cleanList(input.Evidence)...)

		if input.Transition != "" {
			out, err := domain.ApplyCorrectiveAction(action, t)
			if err != nil {
				return err
			}
			action.State = out.State
			if action.State == domain.ActionImplemented {
				action.Progress = 100
			}
			notices = out.Notifications()
		}
		saved, err = s.repo.SaveCorrectiveAction(txCtx, action)
		return err
	})
	if input.Transition != "" {
		s.observe(domain.CorrectiveActionMachine.Family(), input.Transition, err)
	}
	if err != nil {
		return domain.CorrectiveAction{}, err
	}

	logging.Info(logCtx, "corrective action updated",
		slog.String("action_id", saved.ID),
		slog.String("state", string(saved.State)),
		slog.Int("progress", saved.Progress),
	)
	s.setCacheBestEffort(ctx, statusKey("action", saved.ID), string(saved.State))
	s.notifyBestEffort(logCtx, saved.ID, notices)
	return saved, nil
}

func actionOrUpdate(a domain.Action) string {
	if a == "" {
		return "update"
	}
	return string(a)
}

func (s *Service) ListCorrectiveActions(ctx context.Context, filter ports.ActionFilter) ([]domain.CorrectiveAction, error) {
	if _, err := s.begin(ctx, "list_corrective_actions"); err != nil {
		return nil, err
	}
	return s.repo.ListCorrectiveActions(ctx, filter)
}
