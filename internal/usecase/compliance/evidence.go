package compliance

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"sstcompliance/internal/bootstrap/logging"
	domain "sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/ports"
)

const (
	EvidenceIncident         = "incident"
	EvidenceFinding          = "finding"
	EvidenceCorrectiveAction = "corrective_action"
	EvidenceDocument         = "document"

	// ClosureSubfolder routes finding evidence to the closure evidence list.
	ClosureSubfolder = "closure"
)

type AttachEvidenceInput struct {
	EntityType  string `validate:"required,oneof=incident finding corrective_action document"`
	EntityID    string `validate:"required"`
	Subfolder   string
	Filename    string `validate:"required"`
	ContentType string
	Data        []byte `validate:"required"`
}

type AttachEvidenceResult struct {
	Ref string `json:"ref"`
}

// AttachEvidence uploads the bytes and records the returned reference on the
// owning entity. Documents only get the upload; their file reference changes
// through ReviseDocument.
func (s *Service) AttachEvidence(ctx context.Context, input AttachEvidenceInput) (AttachEvidenceResult, error) {
	logCtx, err := s.begin(ctx, "attach_evidence")
	if err != nil {
		return AttachEvidenceResult{}, err
	}
	if s.evidence == nil {
		return AttachEvidenceResult{}, errors.New("evidence store is required")
	}
	input.EntityType = strings.ToLower(strings.TrimSpace(input.EntityType))
	if err := validateInput(input); err != nil {
		return AttachEvidenceResult{}, err
	}
	if len(input.Data) == 0 {
		return AttachEvidenceResult{}, &domain.ValidationError{Field: "data", Reason: "evidence file is empty"}
	}
	if err := s.ensureEntity(ctx, input.EntityType, input.EntityID); err != nil {
		return AttachEvidenceResult{}, err
	}

	ref, err := s.evidence.Put(ctx, ports.EvidenceObject{
		EntityType:  input.EntityType,
		EntityID:    input.EntityID,
		Subfolder:   input.Subfolder,
		Filename:    input.Filename,
		ContentType: input.ContentType,
		Data:        input.Data,
	})
	if err != nil {
		return AttachEvidenceResult{}, errs.Wrap(err, "store evidence")
	}

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		return s.linkEvidence(txCtx, input.EntityType, input.EntityID, strings.TrimSpace(input.Subfolder), ref)
	}); err != nil {
		logging.Error(logCtx, "evidence stored but not linked", slog.String("ref", ref), slog.Any("err", errs.Loggable(err)))
		return AttachEvidenceResult{}, errs.Wrap(err, "link evidence")
	}

	logging.Info(logCtx, "evidence attached",
		slog.String("entity_type", input.EntityType),
		slog.String("entity_id", input.EntityID),
		slog.String("ref", ref),
	)
	return AttachEvidenceResult{Ref: ref}, nil
}

func (s *Service) ensureEntity(ctx context.Context, entityType string, id string) error {
	var err error
	switch entityType {
	case EvidenceIncident:
		_, err = s.repo.GetIncident(ctx, id)
	case EvidenceFinding:
		_, err = s.repo.GetFinding(ctx, id)
	case EvidenceCorrectiveAction:
		_, err = s.repo.GetCorrectiveAction(ctx, id)
	case EvidenceDocument:
		_, err = s.repo.GetDocument(ctx, id)
	}
	return err
}

func (s *Service) linkEvidence(ctx context.Context, entityType string, id string, subfolder string, ref string) error {
	switch entityType {
	case EvidenceIncident:
		incident, err := s.repo.GetIncident(ctx, id)
		if err != nil {
			return err
		}
		incident.Evidence = append(incident.Evidence, ref)
		_, err = s.repo.SaveIncident(ctx, incident)
		return err
	case EvidenceFinding:
		finding, err := s.repo.GetFinding(ctx, id)
		if err != nil {
			return err
		}
		if subfolder == ClosureSubfolder {
			finding.ClosureEvidence = append(finding.ClosureEvidence, ref)
		} else {
			finding.Evidence = append(finding.Evidence, ref)
		}
		_, err = s.repo.SaveFinding(ctx, finding)
		return err
	case EvidenceCorrectiveAction:
		action, err := s.repo.GetCorrectiveAction(ctx, id)
		if err != nil {
			return err
		}
		action.Evidence = append(action.Evidence, ref)
		_, err = s.repo.SaveCorrectiveAction(ctx, action)
		return err
	}
	return nil
}
