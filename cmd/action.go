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

var actionCmd = &cobra.Command{
	Use:   "action",
	Short: "Follow up corrective actions",
}

var actionUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Record progress on a corrective action and optionally advance it",
	Long: `Record progress, comments and evidence. With --transition the action is
then advanced: start, implement or verify. Implementing sets progress to 100.`,
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		input := compliance.UpdateCorrectiveActionInput{ActionID: id}
		input.Actor, _ = cmd.Flags().GetString("actor")
		input.Comments, _ = cmd.Flags().GetString("comments")
		input.Evidence, _ = cmd.Flags().GetStringSlice("evidence")
		if cmd.Flags().Changed("progress") {
			progress, _ := cmd.Flags().GetInt("progress")
			input.Progress = &progress
		}
		transition, _ := cmd.Flags().GetString("transition")
		input.Transition = domain.Action(transition)

		action, err := svc.UpdateCorrectiveAction(ctx, input)
		if err != nil {
			logging.Error(ctx, "update corrective action failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "update corrective action")
		}
		return render(cmd, action, actionsTable([]domain.CorrectiveAction{action}))
	}),
}

var actionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List corrective actions",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		filter := ports.ActionFilter{}
		filter.IncidentID, _ = cmd.Flags().GetString("incident")
		filter.FindingID, _ = cmd.Flags().GetString("finding")
		rawStates, _ := cmd.Flags().GetStringSlice("state")
		for _, s := range rawStates {
			filter.States = append(filter.States, domain.ActionState(s))
		}
		actions, err := svc.ListCorrectiveActions(ctx, filter)
		if err != nil {
			return errs.Wrap(err, "list corrective actions")
		}
		return render(cmd, actions, actionsTable(actions))
	}),
}

func actionsTable(actions []domain.CorrectiveAction) func(w io.Writer) error {
	return func(w io.Writer) error {
		if _, err := fmt.Fprintln(w, "ID\tSOURCE\tDUE\tPROGRESS\tSTATE\tDESCRIPTION"); err != nil {
			return err
		}
		for _, a := range actions {
			source := a.IncidentID
			if source == "" {
				source = a.FindingID
			}
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\t%s\n",
				a.ID, orDash(source), formatDate(a.DueDate), a.Progress, badge(string(a.State)), a.Description); err != nil {
				return err
			}
		}
		return nil
	}
}

func init() {
	rootCmd.AddCommand(actionCmd)
	actionCmd.AddCommand(actionUpdateCmd, actionListCmd)

	actionUpdateCmd.Flags().String("id", "", "Corrective action id")
	actionUpdateCmd.Flags().String("actor", "", "Acting user")
	actionUpdateCmd.Flags().Int("progress", 0, "Progress percentage 0-100")
	actionUpdateCmd.Flags().String("comments", "", "Progress comments")
	actionUpdateCmd.Flags().StringSlice("evidence", nil, "Evidence references")
	actionUpdateCmd.Flags().String("transition", "", "start, implement or verify")

	actionListCmd.Flags().String("incident", "", "Filter by incident id")
	actionListCmd.Flags().String("finding", "", "Filter by finding id")
	actionListCmd.Flags().StringSlice("state", nil, "Filter by state (open, in_progress, implemented, verified)")
}
