package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sstcompliance/internal/errs"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	alertStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func parseOutput(raw string) (string, error) {
	switch mode := strings.ToLower(strings.TrimSpace(raw)); mode {
	case "", outputTable:
		return outputTable, nil
	case outputJSON, outputYAML:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want table, json or yaml)", raw)
	}
}

// render writes v as json or yaml. The table format is produced by table,
// which writes tab-separated rows.
func render(cmd *cobra.Command, v any, table func(w io.Writer) error) error {
	mode, err := parseOutput(outputFormat)
	if err != nil {
		return err
	}
	return renderTo(cmd.OutOrStdout(), mode, v, table)
}

func renderTo(out io.Writer, mode string, v any, table func(w io.Writer) error) error {
	switch mode {
	case outputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return errs.Wrap(enc.Encode(v), "write json output")
	case outputYAML:
		raw, err := toYAML(v)
		if err != nil {
			return err
		}
		_, err = out.Write(raw)
		return errs.Wrap(err, "write yaml output")
	default:
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		if err := table(tw); err != nil {
			return errs.Wrap(err, "write table output")
		}
		return errs.Wrap(tw.Flush(), "flush table output")
	}
}

// toYAML goes through JSON so keys match the json tags of domain types.
func toYAML(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errs.Wrap(err, "encode output")
	}
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, errs.Wrap(err, "convert output")
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return nil, errs.Wrap(err, "encode yaml output")
	}
	return out, nil
}

// badge colours a classification, tier, standing or state label.
func badge(label string) string {
	switch strings.ToLower(label) {
	case "critical", "expired":
		return alertStyle.Render(label)
	case "high", "medium", "expiring_soon":
		return warnStyle.Render(label)
	case "low", "valid", "closed", "verified", "controlled", "approved":
		return okStyle.Render(label)
	default:
		return label
	}
}

// headline writes a styled "label value" line above table output.
func headline(w io.Writer, label string, value string) error {
	_, err := fmt.Fprintf(w, "%s %s\n", labelStyle.Render(label), value)
	return err
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return dimStyle.Render("-")
	}
	return t.Format(time.DateOnly)
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return formatDate(time.Time{})
	}
	return formatDate(*t)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// parseTimeFlag accepts RFC3339 or YYYY-MM-DD. An empty value returns the
// zero time.
func parseTimeFlag(cmd *cobra.Command, name string) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: want RFC3339 or YYYY-MM-DD, got %q", name, raw)
	}
	return t, nil
}

// parseAnswers turns repeated id=value pairs into an answer map.
func parseAnswers(pairs []string) (map[string]string, error) {
	answers := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		id, value, ok := strings.Cut(pair, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid answer %q, want item-id=value", pair)
		}
		if _, dup := answers[id]; dup {
			return nil, fmt.Errorf("duplicate answer for item %q", id)
		}
		answers[id] = strings.TrimSpace(value)
	}
	return answers, nil
}

// resolveText reads flag or flag-file. The two are mutually exclusive.
func resolveText(cmd *cobra.Command, flag string) (string, error) {
	inline, _ := cmd.Flags().GetString(flag)
	file, _ := cmd.Flags().GetString(flag + "-file")

	if strings.TrimSpace(inline) != "" && strings.TrimSpace(file) != "" {
		return "", fmt.Errorf("%s and %s-file are mutually exclusive", flag, flag)
	}
	if strings.TrimSpace(file) != "" {
		raw, err := os.ReadFile(file)
		if err != nil {
			return "", errs.Wrapf(err, "read %s file %q", flag, file)
		}
		return string(raw), nil
	}
	return inline, nil
}

func requireFlag(cmd *cobra.Command, name string) (string, error) {
	v, _ := cmd.Flags().GetString(name)
	v = strings.TrimSpace(v)
	if v == "" {
		return "", errors.New("--" + name + " is required")
	}
	return v, nil
}
