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

type ScheduleTrainingInput struct {
	Topic         string `validate:"required"`
	TrainerID     string
	ScheduledDate time.Time `validate:"required"`
	DurationHours float64   `validate:"gte=0"`
	Enrolled      []string
}

func (s *Service) ScheduleTraining(ctx context.Context, input ScheduleTrainingInput) (domain.Training, error) {
	logCtx, err := s.begin(ctx, "schedule_training")
	if err != nil {
		return domain.Training{}, err
	}
	if err := validateInput(input); err != nil {
		return domain.Training{}, err
	}
	if err := s.checkParty(ctx, input.TrainerID); err != nil {
		return domain.Training{}, err
	}

	var attendees []domain.Attendance
	seen := map[string]bool{}
	for _, w := range cleanList(input.Enrolled) {
		if seen[w] {
			continue
		}
		seen[w] = true
		attendees = append(attendees, domain.Attendance{WorkerID: w})
	}

	var saved domain.Training
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		saved, err = s.repo.SaveTraining(txCtx, domain.Training{
			ID:            s.newID(),
			Topic:         strings.TrimSpace(input.Topic),
			TrainerID:     strings.TrimSpace(input.TrainerID),
			ScheduledDate: input.ScheduledDate.UTC(),
			DurationHours: input.DurationHours,
			Attendees:     attendees,
			State:         domain.TrainingScheduled,
		})
		return err
	}); err != nil {
		return domain.Training{}, errs.Wrap(err, "save training")
	}

	logging.Info(logCtx, "training scheduled", slog.String("training_id", saved.ID), slog.Int("enrolled", len(saved.Attendees)))
	s.setCacheBestEffort(ctx, statusKey("training", saved.ID), string(saved.State))
	return saved, nil
}

type RecordAttendanceInput struct {
	TrainingID string `validate:"required"`
	WorkerID   string `validate:"required"`
	Attended   bool
	Rating     int `validate:"gte=0,lte=5"`
}

// RecordAttendance upserts one worker's attendance. Cancelled trainings are
// frozen.
func (s *Service) RecordAttendance(ctx context.Context, input RecordAttendanceInput) (domain.Training, error) {
	logCtx, err := s.begin(ctx, "record_attendance")
	if err != nil {
		return domain.Training{}, err
	}
	if err := validateInput(input); err != nil {
		return domain.Training{}, err
	}

	var saved domain.Training
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		training, err := s.repo.GetTraining(txCtx, input.TrainingID)
		if err != nil {
			return err
		}
		if training.State == domain.TrainingCancelled {
			return &domain.InvalidTransitionError{
				Family: domain.TrainingMachine.Family(),
				From:   string(training.State),
				Action: "record_attendance",
				Reason: "training was cancelled",
			}
		}
		worker := strings.TrimSpace(input.WorkerID)
		rec := domain.Attendance{WorkerID: worker, Attended: input.Attended, Rating: input.Rating}
		replaced := false
		for i := range training.Attendees {
			if training.Attendees[i].WorkerID == worker {
				training.Attendees[i] = rec
				replaced = true
			}
		}
		if !replaced {
			training.Attendees = append(training.Attendees, rec)
		}
		saved, err = s.repo.SaveTraining(txCtx, training)
		return err
	}); err != nil {
		return domain.Training{}, err
	}

	logging.Info(logCtx, "attendance recorded", slog.String("training_id", saved.ID), slog.String("worker_id", input.WorkerID))
	return saved, nil
}

func (s *Service) TransitionTraining(ctx context.Context, trainingID string, action domain.Action, actor string) (domain.Training, error) {
	logCtx, err := s.begin(ctx, "transition_training")
	if err != nil {
		return domain.Training{}, err
	}

	t := domain.Transition{Action: action, Actor: actorOrSystem(actor), At: s.clock()}
	var saved domain.Training
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		training, err := s.repo.GetTraining(txCtx, strings.TrimSpace(trainingID))
		if err != nil {
			return err
		}
		out, err := domain.ApplyTraining(training, t)
		if err != nil {
			return err
		}
		training.State = out.State
		saved, err = s.repo.SaveTraining(txCtx, training)
		return err
	})
	s.observe(domain.TrainingMachine.Family(), action, err)
	if err != nil {
		return domain.Training{}, err
	}

	logging.Info(logCtx, "training transitioned", slog.String("training_id", saved.ID), slog.String("state", string(saved.State)))
	s.setCacheBestEffort(ctx, statusKey("training", saved.ID), string(saved.State))
	return saved, nil
}

func (s *Service) ListTrainings(ctx context.Context, period ports.Period) ([]domain.Training, error) {
	if _, err := s.begin(ctx, "list_trainings"); err != nil {
		return nil, err
	}
	return s.repo.ListTrainings(ctx, period)
}
