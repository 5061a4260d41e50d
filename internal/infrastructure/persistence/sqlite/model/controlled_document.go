package model

type ControlledDocument struct {
	ID            string  `gorm:"column:id;type:text;primaryKey"`
	Code          string  `gorm:"column:code;type:text;not null;uniqueIndex"`
	Title         string  `gorm:"column:title;type:text;not null"`
	Type          string  `gorm:"column:type;type:text;not null"`
	Version       string  `gorm:"column:version;type:text;not null"`
	FileRef       string  `gorm:"column:file_ref;type:text;not null"`
	ValidUntil    *string `gorm:"column:valid_until;type:text"`
	Area          string  `gorm:"column:area;type:text;not null"`
	ResponsibleID string  `gorm:"column:responsible_id;type:text;not null"`
	KeywordsJSON  string  `gorm:"column:keywords_json;type:text;not null"`
	Approved      bool    `gorm:"column:approved;not null;default:0"`
	State         string  `gorm:"column:state;type:text;not null;index"`
	Revision      int64   `gorm:"column:revision;not null"`
	CreatedAt     string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt     string  `gorm:"column:updated_at;type:text;not null"`
}

func (ControlledDocument) TableName() string {
	return "controlled_documents"
}

// DocumentVersion rows are append-only.
type DocumentVersion struct {
	VersionID  uint64 `gorm:"column:version_id;primaryKey;autoIncrement"`
	DocumentID string `gorm:"column:document_id;type:text;not null;index"`
	Version    string `gorm:"column:version;type:text;not null"`
	FileRef    string `gorm:"column:file_ref;type:text;not null"`
	ReplacedAt string `gorm:"column:replaced_at;type:text;not null"`
}

func (DocumentVersion) TableName() string {
	return "document_versions"
}

type DocumentReview struct {
	ReviewID   uint64 `gorm:"column:review_id;primaryKey;autoIncrement"`
	DocumentID string `gorm:"column:document_id;type:text;not null;index"`
	Action     string `gorm:"column:action;type:text;not null"`
	ReviewerID string `gorm:"column:reviewer_id;type:text;not null"`
	Comments   string `gorm:"column:comments;type:text;not null"`
	CreatedAt  string `gorm:"column:created_at;type:text;not null"`
}

func (DocumentReview) TableName() string {
	return "document_reviews"
}
