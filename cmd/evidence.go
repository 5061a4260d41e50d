package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"sstcompliance/internal/bootstrap"
	"sstcompliance/internal/bootstrap/logging"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/usecase/compliance"
)

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Upload evidence files",
}

var evidenceAttachCmd = &cobra.Command{
	Use:   "attach",
	Short: "Upload a file and link it to an incident, finding, corrective action or document",
	Long: `Upload a file to the configured evidence store. For findings, --subfolder closure
records the reference as closure evidence.`,
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		path, err := requireFlag(cmd, "file")
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errs.Wrapf(err, "read evidence file %q", path)
		}

		input := compliance.AttachEvidenceInput{
			Filename:    filepath.Base(path),
			ContentType: mime.TypeByExtension(filepath.Ext(path)),
			Data:        data,
		}
		input.EntityType, _ = cmd.Flags().GetString("entity")
		input.EntityID, _ = cmd.Flags().GetString("id")
		input.Subfolder, _ = cmd.Flags().GetString("subfolder")

		res, err := svc.AttachEvidence(ctx, input)
		if err != nil {
			logging.Error(ctx, "attach evidence failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "attach evidence")
		}
		return render(cmd, res, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "REF\tBYTES\n%s\t%d\n", res.Ref, len(data))
			return err
		})
	}),
}

func init() {
	rootCmd.AddCommand(evidenceCmd)
	evidenceCmd.AddCommand(evidenceAttachCmd)

	evidenceAttachCmd.Flags().String("entity", "", "incident, finding, corrective_action or document")
	evidenceAttachCmd.Flags().String("id", "", "Entity id")
	evidenceAttachCmd.Flags().String("file", "", "Path to the file to upload")
	evidenceAttachCmd.Flags().String("subfolder", "", "Store subfolder (closure for finding closure evidence)")
}
