package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	domain "sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Recurrence calculations",
}

type schedulePreview struct {
	Frequency domain.Frequency `json:"frequency"`
	Dates     []time.Time      `json:"dates"`
}

var schedulePreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "List the dates a recurring inspection series would use",
	RunE: func(cmd *cobra.Command, _ []string) error {
		start, err := parseTimeFlag(cmd, "start")
		if err != nil {
			return err
		}
		if start.IsZero() {
			return errors.New("--start is required")
		}
		rawFreq, _ := cmd.Flags().GetString("frequency")
		count, _ := cmd.Flags().GetInt("count")
		maxRepeats, _ := cmd.Flags().GetInt("max-repeats")

		freq, err := domain.ParseFrequency(rawFreq)
		if err != nil {
			return errs.Wrap(err, "parse frequency")
		}
		dates, err := domain.Schedule(start, freq, count, maxRepeats)
		if err != nil {
			return errs.Wrap(err, "expand schedule")
		}
		return render(cmd, schedulePreview{Frequency: freq, Dates: dates}, func(w io.Writer) error {
			if _, err := fmt.Fprintln(w, "#\tDATE\tWEEKDAY"); err != nil {
				return err
			}
			for i, d := range dates {
				if _, err := fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, formatDate(d), d.Weekday()); err != nil {
					return err
				}
			}
			return nil
		})
	},
}

var expiryCmd = &cobra.Command{
	Use:   "expiry",
	Short: "Validity calculations",
}

var expiryCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Compute expiry date and standing for an issue date and validity months",
	RunE: func(cmd *cobra.Command, _ []string) error {
		issued, err := parseTimeFlag(cmd, "issued")
		if err != nil {
			return err
		}
		if issued.IsZero() {
			return errors.New("--issued is required")
		}
		now, err := parseTimeFlag(cmd, "at")
		if err != nil {
			return err
		}
		if now.IsZero() {
			now = time.Now().UTC()
		}
		months, _ := cmd.Flags().GetInt("months")

		res, err := domain.TrackExpiry(issued, months, now)
		if err != nil {
			return errs.Wrap(err, "track expiry")
		}
		return render(cmd, res, func(w io.Writer) error {
			if err := headline(w, "Standing", badge(string(res.Standing))); err != nil {
				return err
			}
			_, err := fmt.Fprintf(w, "EXPIRES\tDAYS REMAINING\n%s\t%d\n", formatDate(res.ExpiryDate), res.DaysRemaining)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd, expiryCmd)
	scheduleCmd.AddCommand(schedulePreviewCmd)
	expiryCmd.AddCommand(expiryCheckCmd)

	schedulePreviewCmd.Flags().String("start", "", "First date (RFC3339 or YYYY-MM-DD)")
	schedulePreviewCmd.Flags().String("frequency", "monthly", "daily, weekly or monthly")
	schedulePreviewCmd.Flags().Int("count", 12, "Number of occurrences")
	schedulePreviewCmd.Flags().Int("max-repeats", domain.DefaultMaxRepeats, "Upper bound on count")

	expiryCheckCmd.Flags().String("issued", "", "Issue date (RFC3339 or YYYY-MM-DD)")
	expiryCheckCmd.Flags().Int("months", 0, "Validity months (30-day months)")
	expiryCheckCmd.Flags().String("at", "", "Evaluate at this date (default: now)")
}
