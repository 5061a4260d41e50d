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

var incidentCmd = &cobra.Command{
	Use:   "incident",
	Short: "Report, triage and investigate incidents",
}

var incidentTriageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Compute severity score and priority tier without storing an incident",
	RunE: func(cmd *cobra.Command, _ []string) error {
		injury, _ := cmd.Flags().GetString("injury")
		damage, _ := cmd.Flags().GetString("damage")

		res, err := domain.Triage(injury, damage)
		if err != nil {
			return errs.Wrap(err, "triage incident")
		}
		return render(cmd, res, func(w io.Writer) error {
			if err := headline(w, "Priority", badge(string(res.Priority))); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "SCORE\tRESPONSE\tNOTIFY\n%d\t%s\t%t\n", res.SeverityScore, res.ResponseTarget, res.Notify)
			return err
		})
	},
}

var incidentReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report an incident and triage it",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		occurred, err := parseTimeFlag(cmd, "occurred")
		if err != nil {
			return err
		}
		description, err := resolveText(cmd, "description")
		if err != nil {
			return err
		}

		input := compliance.ReportIncidentInput{OccurredAt: occurred, Description: description}
		input.Type, _ = cmd.Flags().GetString("type")
		input.Area, _ = cmd.Flags().GetString("area")
		input.Position, _ = cmd.Flags().GetString("position")
		input.AffectedWorkerID, _ = cmd.Flags().GetString("worker")
		input.Injury, _ = cmd.Flags().GetString("injury")
		input.Damage, _ = cmd.Flags().GetString("damage")
		input.Witnesses, _ = cmd.Flags().GetStringSlice("witness")
		input.Evidence, _ = cmd.Flags().GetStringSlice("evidence")
		if cmd.Flags().Changed("notify") {
			notify, _ := cmd.Flags().GetBool("notify")
			input.NotifyOverride = &notify
		}

		inc, err := svc.ReportIncident(ctx, input)
		if err != nil {
			logging.Error(ctx, "report incident failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "report incident")
		}
		return render(cmd, inc, incidentTable(inc, nil))
	}),
}

var incidentInvestigateCmd = &cobra.Command{
	Use:   "investigate",
	Short: "Start the investigation of a reported incident",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		actor, _ := cmd.Flags().GetString("actor")

		res, err := svc.StartInvestigation(ctx, compliance.IncidentTransitionInput{IncidentID: id, Actor: actor})
		if err != nil {
			logging.Error(ctx, "start investigation failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start investigation")
		}
		return render(cmd, res, incidentTable(res.Incident, res.Actions))
	}),
}

var incidentAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Record the root cause analysis; each recommendation line becomes a corrective action",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		recommendations, err := resolveText(cmd, "recommendations")
		if err != nil {
			return err
		}

		input := compliance.RecordAnalysisInput{IncidentID: id, Recommendations: recommendations}
		input.Actor, _ = cmd.Flags().GetString("actor")
		input.Method, _ = cmd.Flags().GetString("method")
		input.FiveWhys, _ = cmd.Flags().GetStringArray("why")
		input.RootCause, _ = cmd.Flags().GetString("root-cause")
		input.Factors.Human, _ = cmd.Flags().GetString("human")
		input.Factors.Technical, _ = cmd.Flags().GetString("technical")
		input.Factors.Organizational, _ = cmd.Flags().GetString("organizational")
		input.Factors.Environmental, _ = cmd.Flags().GetString("environmental")

		res, err := svc.RecordIncidentAnalysis(ctx, input)
		if err != nil {
			logging.Error(ctx, "record analysis failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "record analysis")
		}
		return render(cmd, res, incidentTable(res.Incident, res.Actions))
	}),
}

var incidentCloseCmd = &cobra.Command{
	Use:   "close",
	Short: "Close an analyzed incident",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		actor, _ := cmd.Flags().GetString("actor")

		res, err := svc.CloseIncident(ctx, compliance.IncidentTransitionInput{IncidentID: id, Actor: actor})
		if err != nil {
			logging.Error(ctx, "close incident failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "close incident")
		}
		return render(cmd, res, incidentTable(res.Incident, res.Actions))
	}),
}

var incidentShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show one incident",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		inc, err := svc.GetIncident(ctx, id)
		if err != nil {
			return errs.Wrap(err, "get incident")
		}
		return render(cmd, inc, incidentTable(inc, nil))
	}),
}

func incidentTable(inc domain.Incident, actions []domain.CorrectiveAction) func(w io.Writer) error {
	return func(w io.Writer) error {
		if err := headline(w, inc.Code, badge(string(inc.Priority))); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "ID\tTYPE\tAREA\tSCORE\tSTATE\tNOTIFY\n%s\t%s\t%s\t%d\t%s\t%t\n",
			inc.ID, inc.Type, inc.Area, inc.SeverityScore, inc.State, inc.Notify); err != nil {
			return err
		}
		if len(actions) == 0 {
			return nil
		}
		if _, err := fmt.Fprintln(w, "\nACTION\tDUE\tDESCRIPTION"); err != nil {
			return err
		}
		for _, a := range actions {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, formatDate(a.DueDate), a.Description); err != nil {
				return err
			}
		}
		return nil
	}
}

func init() {
	rootCmd.AddCommand(incidentCmd)
	incidentCmd.AddCommand(incidentTriageCmd, incidentReportCmd, incidentInvestigateCmd, incidentAnalyzeCmd, incidentCloseCmd, incidentShowCmd)

	incidentTriageCmd.Flags().String("injury", "none", "Injury severity: none, mild, severe, critical")
	incidentTriageCmd.Flags().String("damage", "none", "Material damage: none, minor, moderate, major")

	incidentReportCmd.Flags().String("type", "incident", "incident, accident, occupational_illness or near_miss")
	incidentReportCmd.Flags().String("occurred", "", "When it happened (RFC3339 or YYYY-MM-DD)")
	incidentReportCmd.Flags().String("area", "", "Work area")
	incidentReportCmd.Flags().String("position", "", "Job position")
	incidentReportCmd.Flags().String("description", "", "What happened")
	incidentReportCmd.Flags().String("description-file", "", "Path to a description text file")
	incidentReportCmd.Flags().String("worker", "", "Affected worker id")
	incidentReportCmd.Flags().String("injury", "none", "Injury severity: none, mild, severe, critical")
	incidentReportCmd.Flags().String("damage", "none", "Material damage: none, minor, moderate, major")
	incidentReportCmd.Flags().StringSlice("witness", nil, "Witness names")
	incidentReportCmd.Flags().StringSlice("evidence", nil, "Evidence references")
	incidentReportCmd.Flags().Bool("notify", false, "Override the triage notification decision")

	incidentInvestigateCmd.Flags().String("id", "", "Incident id")
	incidentInvestigateCmd.Flags().String("actor", "", "Investigator")

	incidentAnalyzeCmd.Flags().String("id", "", "Incident id")
	incidentAnalyzeCmd.Flags().String("actor", "", "Investigator")
	incidentAnalyzeCmd.Flags().String("method", "five_whys", "five_whys, cause_tree, fmea or event_causality")
	incidentAnalyzeCmd.Flags().StringArray("why", nil, "One answer of the five whys, repeatable")
	incidentAnalyzeCmd.Flags().String("root-cause", "", "Root cause")
	incidentAnalyzeCmd.Flags().String("human", "", "Human factors")
	incidentAnalyzeCmd.Flags().String("technical", "", "Technical factors")
	incidentAnalyzeCmd.Flags().String("organizational", "", "Organizational factors")
	incidentAnalyzeCmd.Flags().String("environmental", "", "Environmental factors")
	incidentAnalyzeCmd.Flags().String("recommendations", "", "Recommendations, one per line")
	incidentAnalyzeCmd.Flags().String("recommendations-file", "", "Path to a recommendations file")

	incidentCloseCmd.Flags().String("id", "", "Incident id")
	incidentCloseCmd.Flags().String("actor", "", "Acting user")

	incidentShowCmd.Flags().String("id", "", "Incident id")
}
