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

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage controlled documents through review and approval",
}

var documentRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new draft document",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		validUntil, err := parseTimeFlag(cmd, "valid-until")
		if err != nil {
			return err
		}
		input := compliance.RegisterDocumentInput{}
		if !validUntil.IsZero() {
			input.ValidUntil = &validUntil
		}
		input.Code, _ = cmd.Flags().GetString("code")
		input.Title, _ = cmd.Flags().GetString("title")
		input.Type, _ = cmd.Flags().GetString("type")
		input.Version, _ = cmd.Flags().GetString("version")
		input.FileRef, _ = cmd.Flags().GetString("file-ref")
		input.Area, _ = cmd.Flags().GetString("area")
		input.ResponsibleID, _ = cmd.Flags().GetString("responsible")
		input.Keywords, _ = cmd.Flags().GetStringSlice("keyword")

		doc, err := svc.RegisterDocument(ctx, input)
		if err != nil {
			logging.Error(ctx, "register document failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "register document")
		}
		return render(cmd, doc, documentTable(doc, svc.DocumentStanding(doc)))
	}),
}

var documentReviseCmd = &cobra.Command{
	Use:   "revise",
	Short: "Publish a new version; the current one moves to history and the document returns to draft",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		input := compliance.ReviseDocumentInput{DocumentID: id}
		input.Version, _ = cmd.Flags().GetString("version")
		input.FileRef, _ = cmd.Flags().GetString("file-ref")
		input.Actor, _ = cmd.Flags().GetString("actor")
		input.Comments, _ = cmd.Flags().GetString("comments")

		doc, err := svc.ReviseDocument(ctx, input)
		if err != nil {
			logging.Error(ctx, "revise document failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "revise document")
		}
		return render(cmd, doc, documentTable(doc, svc.DocumentStanding(doc)))
	}),
}

var documentReviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Submit, approve, reject or retire a document",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		action, _ := cmd.Flags().GetString("action")
		input := compliance.ReviewDocumentInput{DocumentID: id, Action: domain.Action(action)}
		input.ReviewerID, _ = cmd.Flags().GetString("reviewer")
		input.Comments, _ = cmd.Flags().GetString("comments")

		doc, err := svc.ReviewDocument(ctx, input)
		if err != nil {
			logging.Error(ctx, "review document failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "review document")
		}
		return render(cmd, doc, documentTable(doc, svc.DocumentStanding(doc)))
	}),
}

type documentView struct {
	Document domain.ControlledDocument `json:"document"`
	Standing domain.Standing           `json:"standing"`
	Reviews  []domain.DocumentReview   `json:"reviews"`
}

var documentShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a document with its version history and review log",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *compliance.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		id, err := requireFlag(cmd, "id")
		if err != nil {
			return err
		}
		doc, err := svc.GetDocument(ctx, id)
		if err != nil {
			return errs.Wrap(err, "get document")
		}
		reviews, err := svc.ListDocumentReviews(ctx, id)
		if err != nil {
			return errs.Wrap(err, "list document reviews")
		}
		view := documentView{Document: doc, Standing: svc.DocumentStanding(doc), Reviews: reviews}
		return render(cmd, view, func(w io.Writer) error {
			if err := documentTable(doc, view.Standing)(w); err != nil {
				return err
			}
			if len(doc.History) > 0 {
				if _, err := fmt.Fprintln(w, "\nVERSION\tFILE\tREPLACED"); err != nil {
					return err
				}
				for _, v := range doc.History {
					if _, err := fmt.Fprintf(w, "%s\t%s\t%s\n", v.Version, orDash(v.FileRef), formatDate(v.ReplacedAt)); err != nil {
						return err
					}
				}
			}
			if len(reviews) > 0 {
				if _, err := fmt.Fprintln(w, "\nACTION\tREVIEWER\tAT\tCOMMENTS"); err != nil {
					return err
				}
				for _, r := range reviews {
					if _, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Action, orDash(r.ReviewerID), formatDate(r.At), r.Comments); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}),
}

func documentTable(doc domain.ControlledDocument, standing domain.Standing) func(w io.Writer) error {
	return func(w io.Writer) error {
		if err := headline(w, doc.Code, doc.Title); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "ID\tVERSION\tSTATE\tAPPROVED\tVALID UNTIL\tSTANDING\n%s\t%s\t%s\t%t\t%s\t%s\n",
			doc.ID, doc.Version, badge(string(doc.State)), doc.Approved, formatOptionalDate(doc.ValidUntil), badge(string(standing)))
		return err
	}
}

func init() {
	rootCmd.AddCommand(documentCmd)
	documentCmd.AddCommand(documentRegisterCmd, documentReviseCmd, documentReviewCmd, documentShowCmd)

	documentRegisterCmd.Flags().String("code", "", "Unique document code")
	documentRegisterCmd.Flags().String("title", "", "Title")
	documentRegisterCmd.Flags().String("type", "", "Document type (policy, procedure, format, ...)")
	documentRegisterCmd.Flags().String("version", "1.0", "Initial version")
	documentRegisterCmd.Flags().String("file-ref", "", "Stored file reference")
	documentRegisterCmd.Flags().String("valid-until", "", "Validity date (RFC3339 or YYYY-MM-DD)")
	documentRegisterCmd.Flags().String("area", "", "Owning area")
	documentRegisterCmd.Flags().String("responsible", "", "Responsible party id")
	documentRegisterCmd.Flags().StringSlice("keyword", nil, "Search keywords")

	documentReviseCmd.Flags().String("id", "", "Document id")
	documentReviseCmd.Flags().String("version", "", "New version")
	documentReviseCmd.Flags().String("file-ref", "", "New file reference (default: keep current)")
	documentReviseCmd.Flags().String("actor", "", "Acting user")
	documentReviseCmd.Flags().String("comments", "", "Revision comments")

	documentReviewCmd.Flags().String("id", "", "Document id")
	documentReviewCmd.Flags().String("action", "", "submit, approve, reject or retire")
	documentReviewCmd.Flags().String("reviewer", "", "Reviewer id")
	documentReviewCmd.Flags().String("comments", "", "Review comments")

	documentShowCmd.Flags().String("id", "", "Document id")
}
