package cmd

import (
	"errors"
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

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Statutory indicators and completion roll-ups",
}

var reportIndicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "Compute frequency rate, severity rate and incidence index for a period",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		period, err := periodFromFlags(cmd)
		if err != nil {
			return err
		}
		input := compliance.IndicatorsInput{Period: period}
		input.PersonHours, _ = cmd.Flags().GetFloat64("hours")
		input.AverageWorkers, _ = cmd.Flags().GetFloat64("workers")
		if cmd.Flags().Changed("lost-days") {
			lost, _ := cmd.Flags().GetInt("lost-days")
			input.LostDays = &lost
		}

		report, err := svc.ComputeIndicators(ctx, input)
		if err != nil {
			logging.Error(ctx, "compute indicators failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "compute indicators")
		}
		return render(cmd, report, indicatorsTable(report))
	}),
}

var reportCompletionCmd = &cobra.Command{
	Use:   "completion",
	Short: "Completion percentages for findings, actions, trainings and documents",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		period, err := periodFromFlags(cmd)
		if err != nil {
			return err
		}
		out, err := svc.CompletionReport(ctx, period)
		if err != nil {
			logging.Error(ctx, "completion report failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "completion report")
		}
		return render(cmd, out, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "FINDINGS CLOSED\tACTIONS VERIFIED\tTRAININGS HELD\tATTENDANCE\tDOCUMENTS APPROVED\n%.1f%%\t%.1f%%\t%.1f%%\t%.1f%%\t%.1f%%\n",
				out.FindingsClosedPct, out.ActionsVerifiedPct, out.TrainingsHeldPct, out.AttendancePct, out.DocumentsApprovedPct)
			return err
		})
	}),
}

var reportLastCmd = &cobra.Command{
	Use:   "last",
	Short: "Show the most recently computed indicator snapshot",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		report, found, err := svc.LastIndicators(ctx)
		if err != nil {
			return errs.Wrap(err, "load last indicators")
		}
		if !found {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "no indicators computed yet")
			return errs.Wrap(err, "write report output")
		}
		return render(cmd, report, indicatorsTable(report))
	}),
}

func periodFromFlags(cmd *cobra.Command) (ports.Period, error) {
	from, err := parseTimeFlag(cmd, "from")
	if err != nil {
		return ports.Period{}, err
	}
	to, err := parseTimeFlag(cmd, "to")
	if err != nil {
		return ports.Period{}, err
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return ports.Period{}, errors.New("--from must be before --to")
	}
	return ports.Period{From: from, To: to}, nil
}

func indicatorsTable(r compliance.IndicatorReport) func(w io.Writer) error {
	return func(w io.Writer) error {
		ind := r.Indicators
		if err := headline(w, "Period", fmt.Sprintf("%s .. %s", formatDate(r.From), formatDate(r.To))); err != nil {
			return err
		}
		lost := fmt.Sprintf("%d", ind.LostDays)
		if ind.LostDaysEstimated {
			lost += dimStyle.Render(" (estimated)")
		}
		if _, err := fmt.Fprintf(w, "INCIDENTS\tACCIDENTS\tLOST DAYS\n%d\t%d\t%s\n\n", ind.IncidentCount, ind.AccidentCount, lost); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "INDICATOR\tVALUE\tTARGET\tMET"); err != nil {
			return err
		}
		rows := []struct {
			name   string
			value  float64
			target float64
			met    bool
		}{
			{"frequency rate", ind.FrequencyRate, domain.TargetFrequencyRate, ind.Targets.FrequencyRate},
			{"severity rate", ind.SeverityRate, domain.TargetSeverityRate, ind.Targets.SeverityRate},
			{"incidence index", ind.IncidenceIndex, domain.TargetIncidenceIndex, ind.Targets.IncidenceIndex},
		}
		for _, row := range rows {
			if _, err := fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%s\n", row.name, row.value, row.target, metLabel(row.met)); err != nil {
				return err
			}
		}
		return nil
	}
}

func metLabel(met bool) string {
	if met {
		return okStyle.Render("yes")
	}
	return alertStyle.Render("no")
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportIndicatorsCmd, reportCompletionCmd, reportLastCmd)

	for _, c := range []*cobra.Command{reportIndicatorsCmd, reportCompletionCmd} {
		c.Flags().String("from", "", "Period start, inclusive (RFC3339 or YYYY-MM-DD)")
		c.Flags().String("to", "", "Period end, exclusive (RFC3339 or YYYY-MM-DD)")
	}
	reportIndicatorsCmd.Flags().Float64("hours", 0, "Person-hours worked in the period")
	reportIndicatorsCmd.Flags().Float64("workers", 0, "Average number of workers")
	reportIndicatorsCmd.Flags().Int("lost-days", 0, "Recorded lost days (default: estimated per accident)")
}
