package model

type Finding struct {
	ID                  string  `gorm:"column:id;type:text;primaryKey"`
	InspectionID        string  `gorm:"column:inspection_id;type:text;not null;index"`
	ItemID              string  `gorm:"column:item_id;type:text;not null;default:''"`
	Description         string  `gorm:"column:description;type:text;not null"`
	Category            string  `gorm:"column:category;type:text;not null"`
	ResponsibleID       string  `gorm:"column:responsible_id;type:text;not null"`
	DueDate             string  `gorm:"column:due_date;type:text;not null"`
	EvidenceJSON        string  `gorm:"column:evidence_json;type:text;not null"`
	ClosureEvidenceJSON string  `gorm:"column:closure_evidence_json;type:text;not null"`
	ClosureDate         *string `gorm:"column:closure_date;type:text"`
	Comments            string  `gorm:"column:comments;type:text;not null"`
	State               string  `gorm:"column:state;type:text;not null;index"`
	Revision            int64   `gorm:"column:revision;not null"`
	CreatedAt           string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt           string  `gorm:"column:updated_at;type:text;not null"`
}

func (Finding) TableName() string {
	return "findings"
}
