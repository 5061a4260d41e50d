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

var findingCmd = &cobra.Command{
	Use:   "finding",
	Short: "Track non-conformances through correction and closure",
}

var findingCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record a manually reported finding",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		due, err := parseTimeFlag(cmd, "due")
		if err != nil {
			return err
		}
		description, err := resolveText(cmd, "description")
		if err != nil {
			return err
		}
		input := compliance.CreateFindingInput{Description: description, DueDate: due}
		input.Category, _ = cmd.Flags().GetString("category")
		input.ResponsibleID, _ = cmd.Flags().GetString("responsible")
		input.InspectionID, _ = cmd.Flags().GetString("inspection")
		input.Evidence, _ = cmd.Flags().GetStringSlice("evidence")

		finding, err := svc.CreateFinding(ctx, input)
		if err != nil {
			logging.Error(ctx, "create finding failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "create finding")
		}
		return render(cmd, finding, findingsTable([]domain.Finding{finding}))
	}),
}

var findingStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Move an open finding to in_correction",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		actor, _ := cmd.Flags().GetString("actor")

		finding, err := svc.StartFindingCorrection(ctx, id, actor)
		if err != nil {
			logging.Error(ctx, "start finding correction failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start finding correction")
		}
		return render(cmd, finding, findingsTable([]domain.Finding{finding}))
	}),
}

var findingCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Close a finding with closure evidence",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		closedAt, err := parseTimeFlag(cmd, "date")
		if err != nil {
			return err
		}
		input := compliance.CloseFindingInput{FindingID: id, ClosureDate: closedAt}
		input.Actor, _ = cmd.Flags().GetString("actor")
		input.ClosureEvidence, _ = cmd.Flags().GetStringSlice("evidence")
		input.Comments, _ = cmd.Flags().GetString("comments")

		finding, err := svc.CloseFinding(ctx, input)
		if err != nil {
			logging.Error(ctx, "close finding failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "close finding")
		}
		return render(cmd, finding, findingsTable([]domain.Finding{finding}))
	}),
}

var findingListCmd = &cobra.Command{
	Use:   "list",
	Short: "List findings",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		filter := ports.FindingFilter{}
		filter.InspectionID, _ = cmd.Flags().GetString("inspection")
		rawStates, _ := cmd.Flags().GetStringSlice("state")
		for _, s := range rawStates {
			filter.States = append(filter.States, domain.FindingState(s))
		}
		findings, err := svc.ListFindings(ctx, filter)
		if err != nil {
			return errs.Wrap(err, "list findings")
		}
		return render(cmd, findings, findingsTable(findings))
	}),
}

func findingsTable(findings []domain.Finding) func(w io.Writer) error {
	return func(w io.Writer) error {
		if _, err := fmt.Fprintln(w, "ID\tCATEGORY\tDUE\tSTATE\tCLOSED\tDESCRIPTION"); err != nil {
			return err
		}
		for _, f := range findings {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				f.ID, f.Category, formatDate(f.DueDate), f.State, formatOptionalDate(f.ClosureDate), f.Description); err != nil {
				return err
			}
		}
		return nil
	}
}

func init() {
	rootCmd.AddCommand(findingCmd)
	findingCmd.AddCommand(findingCreateCmd, findingStartCmd, findingCloseCmd, findingListCmd)

	findingCreateCmd.Flags().String("description", "", "Non-conformance description")
	findingCreateCmd.Flags().String("description-file", "", "Path to a description text file")
	findingCreateCmd.Flags().String("category", "", "Category")
	findingCreateCmd.Flags().String("responsible", "", "Responsible party id")
	findingCreateCmd.Flags().String("inspection", "", "Source inspection id")
	findingCreateCmd.Flags().String("due", "", "Due date (default: now plus the configured finding due days)")
	findingCreateCmd.Flags().StringSlice("evidence", nil, "Evidence references")

	findingStartCmd.Flags().String("id", "", "Finding id")
	findingStartCmd.Flags().String("actor", "", "Acting user")

	findingCloseCmd.Flags().String("id", "", "Finding id")
	findingCloseCmd.Flags().String("actor", "", "Acting user")
	findingCloseCmd.Flags().String("date", "", "Closure date (default: now)")
	findingCloseCmd.Flags().StringSlice("evidence", nil, "Closure evidence references")
	findingCloseCmd.Flags().String("comments", "", "Closure comments")

	findingListCmd.Flags().String("inspection", "", "Filter by inspection id")
	findingListCmd.Flags().StringSlice("state", nil, "Filter by state (open, in_correction, closed)")
}
