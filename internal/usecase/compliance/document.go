package compliance

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"sstcompliance/internal/bootstrap/logging"
	domain "sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
)

type RegisterDocumentInput struct {
	Code          string `validate:"required"`
	Title         string `validate:"required"`
	Type          string `validate:"required"`
	Version       string `validate:"required"`
	FileRef       string
	ValidUntil    *time.Time
	Area          string
	ResponsibleID string
	Keywords      []string
}

// RegisterDocument creates a draft, unapproved document. Codes are unique.
func (s *Service) RegisterDocument(ctx context.Context, input RegisterDocumentInput) (domain.ControlledDocument, error) {
	logCtx, err := s.begin(ctx, "register_document")
	if err != nil {
		return domain.ControlledDocument{}, err
	}
	if err := validateInput(input); err != nil {
		return domain.ControlledDocument{}, err
	}
	if err := s.checkParty(ctx, input.ResponsibleID); err != nil {
		return domain.ControlledDocument{}, err
	}

	code := strings.TrimSpace(input.Code)
	doc := domain.ControlledDocument{
		ID:            s.newID(),
		Code:          code,
		Title:         strings.TrimSpace(input.Title),
		Type:          strings.TrimSpace(input.Type),
		Version:       strings.TrimSpace(input.Version),
		FileRef:       strings.TrimSpace(input.FileRef),
		Area:          strings.TrimSpace(input.Area),
		ResponsibleID: strings.TrimSpace(input.ResponsibleID),
		Keywords:      cleanList(input.Keywords),
		State:         domain.DocumentDraft,
	}
	if input.ValidUntil != nil && !input.ValidUntil.IsZero() {
		v := input.ValidUntil.UTC()
		doc.ValidUntil = &v
	}

	var saved domain.ControlledDocument
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		existing, err := s.repo.ListDocuments(txCtx, nil)
		if err != nil {
			return err
		}
		for _, d := range existing {
			if strings.EqualFold(d.Code, code) {
				return &domain.ValidationError{Field: "code", Reason: "document code " + code + " already exists"}
			}
		}
		saved, err = s.repo.SaveDocument(txCtx, doc)
		return err
	}); err != nil {
		return domain.ControlledDocument{}, errs.Wrap(err, "save controlled document")
	}

	logging.Info(logCtx, "document registered", slog.String("document_id", saved.ID), slog.String("code", saved.Code))
	s.setCacheBestEffort(ctx, statusKey("document", saved.ID), string(saved.State))
	return saved, nil
}

type ReviseDocumentInput struct {
	DocumentID string `validate:"required"`
	Version    string `validate:"required"`
	// FileRef keeps the current reference when blank.
	FileRef  string
	Actor    string
	Comments string
}

// ReviseDocument archives the live version into history, then replaces it
// and sends the document back to draft.
func (s *Service) ReviseDocument(ctx context.Context, input ReviseDocumentInput) (domain.ControlledDocument, error) {
	if err := validateInput(input); err != nil {
		return domain.ControlledDocument{}, err
	}
	return s.transitionDocument(ctx, "revise_document", input.DocumentID, domain.DocumentTransition{
		Transition: domain.Transition{Action: domain.ActionRevise, Actor: input.Actor},
		NewVersion: input.Version,
		NewFileRef: input.FileRef,
		Comments:   input.Comments,
	})
}

type ReviewDocumentInput struct {
	DocumentID string        `validate:"required"`
	Action     domain.Action `validate:"required,oneof=submit approve reject retire"`
	ReviewerID string
	Comments   string
}

func (s *Service) ReviewDocument(ctx context.Context, input ReviewDocumentInput) (domain.ControlledDocument, error) {
	if err := validateInput(input); err != nil {
		return domain.ControlledDocument{}, err
	}
	return s.transitionDocument(ctx, "review_document", input.DocumentID, domain.DocumentTransition{
		Transition: domain.Transition{Action: input.Action, Actor: input.ReviewerID},
		Comments:   input.Comments,
	})
}

func (s *Service) transitionDocument(ctx context.Context, operation string, documentID string, t domain.DocumentTransition) (domain.ControlledDocument, error) {
	logCtx, err := s.begin(ctx, operation)
	if err != nil {
		return domain.ControlledDocument{}, err
	}
	t.At = s.clock()
	t.Actor = actorOrSystem(t.Actor)

	var (
		saved   domain.ControlledDocument
		notices []domain.NotifyEffect
	)
	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		doc, err := s.repo.GetDocument(txCtx, strings.TrimSpace(documentID))
		if err != nil {
			return err
		}
		out, err := domain.ApplyDocument(doc, t)
		if err != nil {
			return err
		}

		// Effects run in order; the snapshot is written before the live
		// record changes.
		for _, e := range out.Effects {
			switch eff := e.(type) {
			case domain.SnapshotVersionEffect:
				if err := s.repo.AppendDocumentVersion(txCtx, doc.ID, eff.Version); err != nil {
					return err
				}
				doc.Version = strings.TrimSpace(t.NewVersion)
				if ref := strings.TrimSpace(t.NewFileRef); ref != "" {
					doc.FileRef = ref
				}
			case domain.SetApprovedEffect:
				doc.Approved = eff.Approved
			}
		}
		doc.State = out.State

		if err := s.repo.AppendDocumentReview(txCtx, domain.DocumentReview{
			DocumentID: doc.ID,
			Action:     t.Action,
			ReviewerID: t.Actor,
			Comments:   strings.TrimSpace(t.Comments),
			At:         t.At,
		}); err != nil {
			return err
		}
		saved, err = s.repo.SaveDocument(txCtx, doc)
		notices = out.Notifications()
		return err
	})
	s.observe(domain.DocumentMachine.Family(), t.Action, err)
	if err != nil {
		return domain.ControlledDocument{}, err
	}

	logging.Info(logCtx, "document transitioned",
		slog.String("document_id", saved.ID),
		slog.String("action", string(t.Action)),
		slog.String("state", string(saved.State)),
		slog.String("version", saved.Version),
	)
	s.setCacheBestEffort(ctx, statusKey("document", saved.ID), string(saved.State))
	s.notifyBestEffort(logCtx, saved.ID, notices)
	return saved, nil
}

func (s *Service) GetDocument(ctx context.Context, id string) (domain.ControlledDocument, error) {
	if _, err := s.begin(ctx, "get_document"); err != nil {
		return domain.ControlledDocument{}, err
	}
	return s.repo.GetDocument(ctx, strings.TrimSpace(id))
}

func (s *Service) ListDocumentReviews(ctx context.Context, id string) ([]domain.DocumentReview, error) {
	if _, err := s.begin(ctx, "list_document_reviews"); err != nil {
		return nil, err
	}
	return s.repo.ListDocumentReviews(ctx, strings.TrimSpace(id))
}

// DocumentStanding classifies a document's validity date at now. Documents
// without a validity date are always valid.
func (s *Service) DocumentStanding(doc domain.ControlledDocument) domain.Standing {
	if doc.ValidUntil == nil {
		return domain.StandingValid
	}
	return domain.ClassifyStanding(*doc.ValidUntil, s.clock())
}
