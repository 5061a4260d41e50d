package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"sstcompliance/internal/bootstrap"
	"sstcompliance/internal/bootstrap/logging"
	domain "sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/usecase/compliance"
)

var trainingCmd = &cobra.Command{
	Use:   "training",
	Short: "Schedule trainings and record attendance",
}

var trainingScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule a training session",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		date, err := parseTimeFlag(cmd, "date")
		if err != nil {
			return err
		}
		input := compliance.ScheduleTrainingInput{ScheduledDate: date}
		input.Topic, _ = cmd.Flags().GetString("topic")
		input.TrainerID, _ = cmd.Flags().GetString("trainer")
		input.DurationHours, _ = cmd.Flags().GetFloat64("hours")
		input.Enrolled, _ = cmd.Flags().GetStringSlice("worker")

		training, err := svc.ScheduleTraining(ctx, input)
		if err != nil {
			logging.Error(ctx, "schedule training failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "schedule training")
		}
		return render(cmd, training, trainingTable(training))
	}),
}

var trainingAttendCmd = &cobra.Command{
	Use:   "attend",
	Short: "Record one worker's attendance",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		input := compliance.RecordAttendanceInput{TrainingID: id}
		input.WorkerID, _ = cmd.Flags().GetString("worker")
		input.Attended, _ = cmd.Flags().GetBool("attended")
		input.Rating, _ = cmd.Flags().GetInt("rating")

		training, err := svc.RecordAttendance(ctx, input)
		if err != nil {
			logging.Error(ctx, "record attendance failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "record attendance")
		}
		return render(cmd, training, trainingTable(training))
	}),
}

var trainingTransitionCmd = &cobra.Command{
	Use:   "transition",
	Short: "Mark a training as held or cancelled",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		action, _ := cmd.Flags().GetString("action")
		actor, _ := cmd.Flags().GetString("actor")

		training, err := svc.TransitionTraining(ctx, id, domain.Action(action), actor)
		if err != nil {
			logging.Error(ctx, "transition training failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "transition training")
		}
		return render(cmd, training, trainingTable(training))
	}),
}

var trainingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trainings scheduled in a period",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		period, err := periodFromFlags(cmd)
		if err != nil {
			return err
		}
		trainings, err := svc.ListTrainings(ctx, period)
		if err != nil {
			return errs.Wrap(err, "list trainings")
		}
		return render(cmd, trainings, func(w io.Writer) error {
			if _, err := fmt.Fprintln(w, "ID\tDATE\tTOPIC\tENROLLED\tSTATE"); err != nil {
				return err
			}
			for _, t := range trainings {
				if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", t.ID, formatDate(t.ScheduledDate), t.Topic, len(t.Attendees), t.State); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

func trainingTable(t domain.Training) func(w io.Writer) error {
	return func(w io.Writer) error {
		if err := headline(w, t.Topic, string(t.State)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "ID\tDATE\tHOURS\tTRAINER\n%s\t%s\t%.1f\t%s\n",
			t.ID, formatDate(t.ScheduledDate), t.DurationHours, orDash(t.TrainerID)); err != nil {
			return err
		}
		if len(t.Attendees) == 0 {
			return nil
		}
		if _, err := fmt.Fprintln(w, "\nWORKER\tATTENDED\tRATING"); err != nil {
			return err
		}
		for _, a := range t.Attendees {
			if _, err := fmt.Fprintf(w, "%s\t%t\t%d\n", a.WorkerID, a.Attended, a.Rating); err != nil {
				return err
			}
		}
		return nil
	}
}

func init() {
	rootCmd.AddCommand(trainingCmd)
	trainingCmd.AddCommand(trainingScheduleCmd, trainingAttendCmd, trainingTransitionCmd, trainingListCmd)

	trainingScheduleCmd.Flags().String("topic", "", "Training topic")
	trainingScheduleCmd.Flags().String("trainer", "", "Trainer id")
	trainingScheduleCmd.Flags().String("date", "", "Scheduled date (RFC3339 or YYYY-MM-DD)")
	trainingScheduleCmd.Flags().Float64("hours", 1, "Duration in hours")
	trainingScheduleCmd.Flags().StringSlice("worker", nil, "Enrolled worker ids")

	trainingAttendCmd.Flags().String("id", "", "Training id")
	trainingAttendCmd.Flags().String("worker", "", "Worker id")
	trainingAttendCmd.Flags().Bool("attended", true, "Whether the worker attended")
	trainingAttendCmd.Flags().Int("rating", 0, "Satisfaction rating 1-5 (0 for none)")

	trainingTransitionCmd.Flags().String("id", "", "Training id")
	trainingTransitionCmd.Flags().String("action", "", "hold or cancel")
	trainingTransitionCmd.Flags().String("actor", "", "Acting user")

	trainingListCmd.Flags().String("from", "", "Period start, inclusive (RFC3339 or YYYY-MM-DD)")
	trainingListCmd.Flags().String("to", "", "Period end, exclusive (RFC3339 or YYYY-MM-DD)")
}
