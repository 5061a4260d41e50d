package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/infrastructure/persistence/sqlite/model"
)

// SaveDocument writes the live record only. History rows are appended through
// AppendDocumentVersion and are never rewritten here.
func (r *ComplianceRepository) SaveDocument(ctx context.Context, doc compliance.ControlledDocument) (compliance.ControlledDocument, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.ControlledDocument{}, err
	}

	now := r.now().UTC()
	next, createdAt, err := stampRevision(doc.ID, doc.Revision, doc.CreatedAt, now)
	if err != nil {
		return compliance.ControlledDocument{}, err
	}
	keywords, err := encodeJSON(stringList(doc.Keywords))
	if err != nil {
		return compliance.ControlledDocument{}, err
	}

	row := model.ControlledDocument{
		ID:            doc.ID,
		Code:          doc.Code,
		Title:         doc.Title,
		Type:          doc.Type,
		Version:       doc.Version,
		FileRef:       doc.FileRef,
		ValidUntil:    formatTimePtr(doc.ValidUntil),
		Area:          doc.Area,
		ResponsibleID: doc.ResponsibleID,
		KeywordsJSON:  keywords,
		Approved:      doc.Approved,
		State:         string(doc.State),
		Revision:      next,
		CreatedAt:     formatTime(createdAt),
		UpdatedAt:     formatTime(now),
	}
	if err := saveVersioned(db, "controlled document", doc.ID, doc.Revision, &row); err != nil {
		return compliance.ControlledDocument{}, err
	}
	return r.loadDocument(db, row)
}

func (r *ComplianceRepository) GetDocument(ctx context.Context, id string) (compliance.ControlledDocument, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return compliance.ControlledDocument{}, err
	}
	row, err := takeByID[model.ControlledDocument](db, "controlled document", id)
	if err != nil {
		return compliance.ControlledDocument{}, err
	}
	return r.loadDocument(db, row)
}

func (r *ComplianceRepository) ListDocuments(ctx context.Context, states []compliance.DocumentState) ([]compliance.ControlledDocument, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.ControlledDocument{})
	if len(states) > 0 {
		query = query.Where("state IN ?", statesOf(states))
	}
	var rows []model.ControlledDocument
	if err := query.Order("code asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.WithStack(err), "query controlled documents")
	}

	items := make([]compliance.ControlledDocument, 0, len(rows))
	for _, row := range rows {
		item, err := r.loadDocument(db, row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *ComplianceRepository) AppendDocumentVersion(ctx context.Context, documentID string, version compliance.DocumentVersion) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(documentID) == "" {
		return errors.New("document id is required")
	}

	row := model.DocumentVersion{
		DocumentID: documentID,
		Version:    version.Version,
		FileRef:    version.FileRef,
		ReplacedAt: formatTime(version.ReplacedAt),
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert document version")
	}
	return nil
}

func (r *ComplianceRepository) AppendDocumentReview(ctx context.Context, review compliance.DocumentReview) error {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(review.DocumentID) == "" {
		return errors.New("document id is required")
	}

	row := model.DocumentReview{
		DocumentID: review.DocumentID,
		Action:     string(review.Action),
		ReviewerID: review.ReviewerID,
		Comments:   review.Comments,
		CreatedAt:  formatTime(review.At),
	}
	if err := db.Create(&row).Error; err != nil {
		return errs.Wrap(err, "insert document review")
	}
	return nil
}

func (r *ComplianceRepository) ListDocumentReviews(ctx context.Context, documentID string) ([]compliance.DocumentReview, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var rows []model.DocumentReview
	if err := db.Where("document_id = ?", documentID).Order("review_id asc").Find(&rows).Error; err != nil {
		return nil, errs.Wrap(errs.WithStack(err), "query document reviews")
	}

	items := make([]compliance.DocumentReview, 0, len(rows))
	for _, row := range rows {
		at, err := parseTime(row.CreatedAt)
		if err != nil {
			return nil, err
		}
		items = append(items, compliance.DocumentReview{
			DocumentID: row.DocumentID,
			Action:     compliance.Action(row.Action),
			ReviewerID: row.ReviewerID,
			Comments:   row.Comments,
			At:         at,
		})
	}
	return items, nil
}

func (r *ComplianceRepository) loadDocument(db *gorm.DB, row model.ControlledDocument) (compliance.ControlledDocument, error) {
	doc := compliance.ControlledDocument{
		ID:            row.ID,
		Code:          row.Code,
		Title:         row.Title,
		Type:          row.Type,
		Version:       row.Version,
		FileRef:       row.FileRef,
		Area:          row.Area,
		ResponsibleID: row.ResponsibleID,
		Approved:      row.Approved,
		State:         compliance.DocumentState(row.State),
		Revision:      row.Revision,
	}

	var err error
	if doc.ValidUntil, err = parseTimePtr(row.ValidUntil); err != nil {
		return compliance.ControlledDocument{}, err
	}
	if doc.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return compliance.ControlledDocument{}, err
	}
	if doc.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return compliance.ControlledDocument{}, err
	}
	if err := decodeJSON(row.KeywordsJSON, &doc.Keywords); err != nil {
		return compliance.ControlledDocument{}, err
	}

	var history []model.DocumentVersion
	if err := db.Where("document_id = ?", row.ID).Order("version_id asc").Find(&history).Error; err != nil {
		return compliance.ControlledDocument{}, errs.Wrap(errs.WithStack(err), "query document versions")
	}
	for _, h := range history {
		replacedAt, err := parseTime(h.ReplacedAt)
		if err != nil {
			return compliance.ControlledDocument{}, err
		}
		doc.History = append(doc.History, compliance.DocumentVersion{
			Version:    h.Version,
			FileRef:    h.FileRef,
			ReplacedAt: replacedAt,
		})
	}
	return doc, nil
}
