package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sstcompliance/internal/bootstrap"
	"sstcompliance/internal/bootstrap/logging"
	domain "sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/usecase/compliance"
)

var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Author inspection checklists",
}

var checklistCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a checklist from a YAML file or --item flags",
	Long: `Create a checklist. Items come from --file (YAML with name, area and items)
or from repeated --item "text|answer_type|category" flags. Answer types are
yes_no, yes_no_na, scale and text.`,
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		def, err := checklistFromFlags(cmd, "")
		if err != nil {
			return err
		}
		saved, err := svc.CreateChecklist(ctx, def)
		if err != nil {
			logging.Error(ctx, "create checklist failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "create checklist")
		}
		return render(cmd, saved, checklistTable(saved))
	}),
}

var checklistReplaceCmd = &cobra.Command{
	Use:   "replace",
	Short: "Replace the items of a checklist that has not been executed yet",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		current, err := svc.GetChecklist(ctx, id)
		if err != nil {
			return errs.Wrap(err, "get checklist")
		}
		def, err := checklistFromFlags(cmd, current.Name)
		if err != nil {
			return err
		}
		saved, err := svc.ReplaceChecklistItems(ctx, id, def.Items)
		if err != nil {
			logging.Error(ctx, "replace checklist items failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "replace checklist items")
		}
		return render(cmd, saved, checklistTable(saved))
	}),
}

var checklistShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a checklist and its item ids",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		def, err := svc.GetChecklist(ctx, id)
		if err != nil {
			return errs.Wrap(err, "get checklist")
		}
		return render(cmd, def, checklistTable(def))
	}),
}

type checklistFile struct {
	Name  string                 `yaml:"name"`
	Area  string                 `yaml:"area"`
	Items []domain.ChecklistItem `yaml:"items"`
}

func checklistFromFlags(cmd *cobra.Command, fallbackName string) (domain.ChecklistDefinition, error) {
	name, _ := cmd.Flags().GetString("name")
	if strings.TrimSpace(name) == "" {
		name = fallbackName
	}
	area, _ := cmd.Flags().GetString("area")
	path, _ := cmd.Flags().GetString("file")
	items, _ := cmd.Flags().GetStringArray("item")

	var raw []byte
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return domain.ChecklistDefinition{}, errs.Wrapf(err, "read checklist file %q", path)
		}
		raw = data
	}
	return buildChecklist(name, area, raw, items)
}

// buildChecklist merges a YAML document with inline item specs. Flag values
// for name and area win over the file.
func buildChecklist(name string, area string, file []byte, itemSpecs []string) (domain.ChecklistDefinition, error) {
	var doc checklistFile
	if len(file) > 0 {
		if err := yaml.Unmarshal(file, &doc); err != nil {
			return domain.ChecklistDefinition{}, errs.Wrap(err, "parse checklist file")
		}
	}
	if strings.TrimSpace(name) == "" {
		name = doc.Name
	}
	if strings.TrimSpace(area) == "" {
		area = doc.Area
	}

	b := domain.NewChecklistBuilder()
	for _, it := range doc.Items {
		if _, err := b.AddItem(it.Text, string(it.AnswerType), it.Category); err != nil {
			return domain.ChecklistDefinition{}, err
		}
	}
	for _, raw := range itemSpecs {
		parts := strings.SplitN(raw, "|", 3)
		text := parts[0]
		answerType := string(domain.AnswerYesNo)
		category := ""
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			answerType = parts[1]
		}
		if len(parts) > 2 {
			category = parts[2]
		}
		if _, err := b.AddItem(text, answerType, category); err != nil {
			return domain.ChecklistDefinition{}, errs.Wrapf(err, "item %q", raw)
		}
	}
	return b.Commit(name, area)
}

func checklistTable(def domain.ChecklistDefinition) func(w io.Writer) error {
	return func(w io.Writer) error {
		if err := headline(w, def.Name, dimStyle.Render(def.ID)); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "ITEM\tTYPE\tCATEGORY\tTEXT"); err != nil {
			return err
		}
		for _, it := range def.Items {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", it.ID, it.AnswerType, it.Category, it.Text); err != nil {
				return err
			}
		}
		return nil
	}
}

func init() {
	rootCmd.AddCommand(checklistCmd)
	checklistCmd.AddCommand(checklistCreateCmd, checklistReplaceCmd, checklistShowCmd)

	for _, c := range []*cobra.Command{checklistCreateCmd, checklistReplaceCmd} {
		c.Flags().String("name", "", "Checklist name")
		c.Flags().String("area", "", "Work area")
		c.Flags().String("file", "", "Path to a checklist YAML file")
		c.Flags().StringArray("item", nil, `Item as "text|answer_type|category", repeatable`)
	}
	checklistReplaceCmd.Flags().String("id", "", "Checklist id")
	checklistShowCmd.Flags().String("id", "", "Checklist id")
}
