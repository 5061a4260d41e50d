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

var ppeCmd = &cobra.Command{
	Use:   "ppe",
	Short: "Track protective equipment assignments and expiry",
}

var ppeAssignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Issue protective equipment to a worker",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		issued, err := parseTimeFlag(cmd, "issued")
		if err != nil {
			return err
		}
		input := compliance.AssignEquipmentInput{IssueDate: issued}
		input.WorkerID, _ = cmd.Flags().GetString("worker")
		input.CatalogItemID, _ = cmd.Flags().GetString("item")
		input.Condition, _ = cmd.Flags().GetString("condition")
		input.ValidityMonths, _ = cmd.Flags().GetInt("months")

		asg, err := svc.AssignEquipment(ctx, input)
		if err != nil {
			logging.Error(ctx, "assign equipment failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "assign equipment")
		}
		return render(cmd, asg, assignmentsTable([]domain.EquipmentAssignment{asg}))
	}),
}

var ppeRenewCmd = &cobra.Command{
	Use:   "renew",
	Short: "Renew an assignment; a new active assignment is linked to the old one",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		input := compliance.RenewAssignmentInput{AssignmentID: id}
		input.Actor, _ = cmd.Flags().GetString("actor")
		input.Condition, _ = cmd.Flags().GetString("condition")

		res, err := svc.RenewAssignment(ctx, input)
		if err != nil {
			logging.Error(ctx, "renew assignment failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "renew assignment")
		}
		return render(cmd, res, assignmentsTable([]domain.EquipmentAssignment{res.Previous, res.Current}))
	}),
}

var ppeExpireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Mark one assignment expired; refused while it is still within validity",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		asg, err := svc.ExpireAssignment(ctx, id)
		if err != nil {
			logging.Error(ctx, "expire assignment failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "expire assignment")
		}
		return render(cmd, asg, assignmentsTable([]domain.EquipmentAssignment{asg}))
	}),
}

var ppeSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Mark every active assignment past its expiry date as expired",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		expired, err := svc.ExpireOverdueAssignments(ctx)
		if err != nil {
			logging.Error(ctx, "expire overdue assignments failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "expire overdue assignments")
		}
		return render(cmd, expired, func(w io.Writer) error {
			if err := headline(w, "Expired", fmt.Sprintf("%d assignment(s)", len(expired))); err != nil {
				return err
			}
			return assignmentsTable(expired)(w)
		})
	}),
}

var ppeDueCmd = &cobra.Command{
	Use:   "due",
	Short: "List active assignments that are expiring soon or expired",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		at, err := parseTimeFlag(cmd, "at")
		if err != nil {
			return err
		}
		worker, _ := cmd.Flags().GetString("worker")

		due, err := svc.EquipmentDue(ctx, at, worker)
		if err != nil {
			logging.Error(ctx, "list equipment due failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "list equipment due")
		}
		return render(cmd, due, func(w io.Writer) error {
			if _, err := fmt.Fprintln(w, "ID\tWORKER\tITEM\tEXPIRES\tDAYS\tSTANDING"); err != nil {
				return err
			}
			for _, d := range due {
				a := d.Assignment
				if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					a.ID, a.WorkerID, a.CatalogItemID, formatDate(a.ExpiryDate), d.Standing.DaysRemaining, badge(string(d.Standing.Standing))); err != nil {
					return err
				}
			}
			return nil
		})
	}),
}

func assignmentsTable(assignments []domain.EquipmentAssignment) func(w io.Writer) error {
	return func(w io.Writer) error {
		if _, err := fmt.Fprintln(w, "ID\tWORKER\tITEM\tISSUED\tEXPIRES\tSTATE\tRENEWED FROM"); err != nil {
			return err
		}
		for _, a := range assignments {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				a.ID, a.WorkerID, a.CatalogItemID, formatDate(a.IssueDate), formatDate(a.ExpiryDate), a.State, orDash(a.RenewedFrom)); err != nil {
				return err
			}
		}
		return nil
	}
}

func init() {
	rootCmd.AddCommand(ppeCmd)
	ppeCmd.AddCommand(ppeAssignCmd, ppeRenewCmd, ppeExpireCmd, ppeSweepCmd, ppeDueCmd)

	ppeAssignCmd.Flags().String("worker", "", "Worker id")
	ppeAssignCmd.Flags().String("item", "", "Catalog item id")
	ppeAssignCmd.Flags().String("issued", "", "Issue date (default: now)")
	ppeAssignCmd.Flags().String("condition", "", "Condition at issue")
	ppeAssignCmd.Flags().Int("months", 0, "Validity months (default: catalog value)")

	ppeRenewCmd.Flags().String("id", "", "Assignment id")
	ppeRenewCmd.Flags().String("actor", "", "Acting user")
	ppeRenewCmd.Flags().String("condition", "", "Condition of the replacement")

	ppeExpireCmd.Flags().String("id", "", "Assignment id")

	ppeDueCmd.Flags().String("worker", "", "Filter by worker id")
	ppeDueCmd.Flags().String("at", "", "Evaluate standing at this date (default: now)")
}
