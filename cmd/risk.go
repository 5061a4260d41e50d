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

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Score and manage the risk register",
}

var riskScoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a probability/severity pair without storing it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		probability, _ := cmd.Flags().GetInt("probability")
		severity, _ := cmd.Flags().GetInt("severity")

		res, err := domain.ScoreRisk(probability, severity)
		if err != nil {
			return errs.Wrap(err, "score risk")
		}
		return render(cmd, res, func(w io.Writer) error {
			if err := headline(w, "Classification", badge(string(res.Classification))); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "LEVEL\tURGENCY\n%d\t%s\n", res.Level, res.Urgency)
			return err
		})
	},
}

var riskRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a hazard in the risk matrix",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		input := compliance.RegisterRiskInput{}
		input.Area, _ = cmd.Flags().GetString("area")
		input.Position, _ = cmd.Flags().GetString("position")
		input.Activity, _ = cmd.Flags().GetString("activity")
		input.Hazard, _ = cmd.Flags().GetString("hazard")
		input.HazardCategory, _ = cmd.Flags().GetString("category")
		input.Probability, _ = cmd.Flags().GetInt("probability")
		input.Severity, _ = cmd.Flags().GetInt("severity")
		input.Controls, _ = cmd.Flags().GetString("controls")
		input.ResponsibleID, _ = cmd.Flags().GetString("responsible")

		risk, err := svc.RegisterRisk(ctx, input)
		if err != nil {
			logging.Error(ctx, "register risk failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "register risk")
		}
		return render(cmd, risk, riskTable(risk))
	}),
}

var riskTransitionCmd = &cobra.Command{
	Use:   "transition",
	Short: "Apply mitigate or control to a registered risk",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		riskID, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		action, _ := cmd.Flags().GetString("action")
		actor, _ := cmd.Flags().GetString("actor")

		risk, err := svc.TransitionRisk(ctx, compliance.TransitionRiskInput{
			RiskID: riskID,
			Action: domain.Action(action),
			Actor:  actor,
		})
		if err != nil {
			logging.Error(ctx, "transition risk failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "transition risk")
		}
		return render(cmd, risk, riskTable(risk))
	}),
}

var riskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered risks",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		rawStates, _ := cmd.Flags().GetStringSlice("state")
		states := make([]domain.RiskState, 0, len(rawStates))
		for _, s := range rawStates {
			states = append(states, domain.RiskState(s))
		}
		risks, err := svc.ListRisks(ctx, states...)
		if err != nil {
			logging.Error(ctx, "list risks failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list risks")
		}
		return render(cmd, risks, func(w io.Writer) error {
			if _, err := fmt.Fprintln(w, "CODE\tAREA\tHAZARD\tLEVEL\tCLASS\tSTATE"); err != nil {
				return err
			}
			for _, r := range risks {
				if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", r.Code, r.Area, r.Hazard, r.Level, r.Classification, r.State); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

var riskControlsCmd = &cobra.Command{
	Use:   "controls",
	Short: "Replace the controls of a risk and optionally rescore it",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		riskID, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		input := compliance.UpdateRiskControlsInput{RiskID: riskID}
		input.Controls, _ = cmd.Flags().GetString("controls")
		input.Probability, _ = cmd.Flags().GetInt("probability")
		input.Severity, _ = cmd.Flags().GetInt("severity")

		risk, err := svc.UpdateRiskControls(ctx, input)
		if err != nil {
			logging.Error(ctx, "update risk controls failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "update risk controls")
		}
		return render(cmd, risk, riskTable(risk))
	}),
}

var riskShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show one risk",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		riskID, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		risk, err := svc.GetRisk(ctx, riskID)
		if err != nil {
			return errs.Wrap(err, "get risk")
		}
		return render(cmd, risk, riskTable(risk))
	}),
}

func riskTable(r domain.RiskAssessment) func(w io.Writer) error {
	return func(w io.Writer) error {
		if err := headline(w, r.Code, badge(string(r.Classification))); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "ID\tAREA\tHAZARD\tLEVEL\tSTATE\tREVISION\n%s\t%s\t%s\t%d\t%s\t%d\n",
			r.ID, r.Area, r.Hazard, r.Level, r.State, r.Revision)
		return err
	}
}

func init() {
	rootCmd.AddCommand(riskCmd)
	riskCmd.AddCommand(riskScoreCmd, riskRegisterCmd, riskTransitionCmd, riskControlsCmd, riskShowCmd, riskListCmd)

	riskScoreCmd.Flags().Int("probability", 0, "Probability factor 1-5")
	riskScoreCmd.Flags().Int("severity", 0, "Severity factor 1-5")

	riskRegisterCmd.Flags().String("area", "", "Work area")
	riskRegisterCmd.Flags().String("position", "", "Job position")
	riskRegisterCmd.Flags().String("activity", "", "Activity performed")
	riskRegisterCmd.Flags().String("hazard", "", "Hazard description")
	riskRegisterCmd.Flags().String("category", "", "Hazard category")
	riskRegisterCmd.Flags().Int("probability", 0, "Probability factor 1-5")
	riskRegisterCmd.Flags().Int("severity", 0, "Severity factor 1-5")
	riskRegisterCmd.Flags().String("controls", "", "Existing controls")
	riskRegisterCmd.Flags().String("responsible", "", "Responsible party id")

	riskTransitionCmd.Flags().String("id", "", "Risk id")
	riskTransitionCmd.Flags().String("action", "", "mitigate or control")
	riskTransitionCmd.Flags().String("actor", "", "Acting user")

	riskControlsCmd.Flags().String("id", "", "Risk id")
	riskControlsCmd.Flags().String("controls", "", "Control measures")
	riskControlsCmd.Flags().Int("probability", 0, "New probability factor (rescore when set with severity)")
	riskControlsCmd.Flags().Int("severity", 0, "New severity factor (rescore when set with probability)")

	riskShowCmd.Flags().String("id", "", "Risk id")

	riskListCmd.Flags().StringSlice("state", nil, "Filter by state (pending, mitigating, controlled)")
}
