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
	"sstcompliance/internal/ports"
	"sstcompliance/internal/usecase/compliance"
)

var inspectionCmd = &cobra.Command{
	Use:   "inspection",
	Short: "Schedule and execute checklist inspections",
}

var inspectionScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Create a recurring series of inspections for a checklist",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		start, err := parseTimeFlag(cmd, "start")
		if err != nil {
			return err
		}
		input := compliance.ScheduleInspectionsInput{Start: start}
		input.ChecklistID, _ = cmd.Flags().GetString("checklist")
		input.Frequency, _ = cmd.Flags().GetString("frequency")
		input.Count, _ = cmd.Flags().GetInt("count")
		input.InspectorID, _ = cmd.Flags().GetString("inspector")
		input.Area, _ = cmd.Flags().GetString("area")

		inspections, err := svc.ScheduleInspections(ctx, input)
		if err != nil {
			logging.Error(ctx, "schedule inspections failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "schedule inspections")
		}
		return render(cmd, inspections, inspectionsTable(inspections))
	}),
}

var inspectionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Move a scheduled inspection to in_progress",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		actor, _ := cmd.Flags().GetString("actor")

		insp, err := svc.StartInspection(ctx, id, actor)
		if err != nil {
			logging.Error(ctx, "start inspection failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start inspection")
		}
		return render(cmd, insp, inspectionsTable([]domain.Inspection{insp}))
	}),
}

var inspectionExecuteCmd = &cobra.Command{
	Use:   "execute",
	Short: "Record checklist answers; non-conforming answers become findings",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		pairs, _ := cmd.Flags().GetStringArray("answer")
		answers, err := parseAnswers(pairs)
		if err != nil {
			return err
		}
		input := compliance.ExecuteInspectionInput{InspectionID: id, Answers: answers}
		input.Observations, _ = cmd.Flags().GetString("observations")
		input.Actor, _ = cmd.Flags().GetString("actor")
		input.Complete, _ = cmd.Flags().GetBool("complete")

		res, err := svc.ExecuteInspection(ctx, input)
		if err != nil {
			logging.Error(ctx, "execute inspection failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "execute inspection")
		}
		return render(cmd, res, func(w io.Writer) error {
			if err := inspectionsTable([]domain.Inspection{res.Inspection})(w); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "\n%s\n", labelStyle.Render(fmt.Sprintf("%d finding(s)", len(res.Findings)))); err != nil {
				return err
			}
			return findingsTable(res.Findings)(w)
		})
	}),
}

var inspectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inspections",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		filter := ports.InspectionFilter{}
		filter.ChecklistID, _ = cmd.Flags().GetString("checklist")
		rawStates, _ := cmd.Flags().GetStringSlice("state")
		for _, s := range rawStates {
			filter.States = append(filter.States, domain.InspectionState(s))
		}

		inspections, err := svc.ListInspections(ctx, filter)
		if err != nil {
			return errs.Wrap(err, "list inspections")
		}
		return render(cmd, inspections, inspectionsTable(inspections))
	}),
}

func inspectionsTable(inspections []domain.Inspection) func(w io.Writer) error {
	return func(w io.Writer) error {
		if _, err := fmt.Fprintln(w, "ID\tCHECKLIST\tAREA\tSCHEDULED\tINSPECTOR\tSTATE"); err != nil {
			return err
		}
		for _, insp := range inspections {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				insp.ID, insp.ChecklistID, orDash(insp.Area), formatDate(insp.ScheduledDate), insp.InspectorID, insp.State); err != nil {
				return err
			}
		}
		return nil
	}
}

func init() {
	rootCmd.AddCommand(inspectionCmd)
	inspectionCmd.AddCommand(inspectionScheduleCmd, inspectionStartCmd, inspectionExecuteCmd, inspectionListCmd)

	inspectionScheduleCmd.Flags().String("checklist", "", "Checklist id")
	inspectionScheduleCmd.Flags().String("start", "", "First date (RFC3339 or YYYY-MM-DD)")
	inspectionScheduleCmd.Flags().String("frequency", "monthly", "daily, weekly or monthly")
	inspectionScheduleCmd.Flags().Int("count", 1, "Number of occurrences")
	inspectionScheduleCmd.Flags().String("inspector", "", "Inspector id")
	inspectionScheduleCmd.Flags().String("area", "", "Area (default: checklist area)")

	inspectionStartCmd.Flags().String("id", "", "Inspection id")
	inspectionStartCmd.Flags().String("actor", "", "Acting user")

	inspectionExecuteCmd.Flags().String("id", "", "Inspection id")
	inspectionExecuteCmd.Flags().StringArray("answer", nil, "Answer as item-id=value, repeatable")
	inspectionExecuteCmd.Flags().String("observations", "", "General observations")
	inspectionExecuteCmd.Flags().String("actor", "", "Inspector")
	inspectionExecuteCmd.Flags().Bool("complete", true, "Complete the inspection after recording answers")

	inspectionListCmd.Flags().String("checklist", "", "Filter by checklist id")
	inspectionListCmd.Flags().StringSlice("state", nil, "Filter by state (scheduled, in_progress, completed)")
}
