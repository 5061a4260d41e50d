package model

type CorrectiveAction struct {
	ID            string `gorm:"column:id;type:text;primaryKey"`
	IncidentID    string `gorm:"column:incident_id;type:text;not null;index"`
	FindingID     string `gorm:"column:finding_id;type:text;not null;index"`
	Description   string `gorm:"column:description;type:text;not null"`
	ResponsibleID string `gorm:"column:responsible_id;type:text;not null"`
	DueDate       string `gorm:"column:due_date;type:text;not null"`
	Progress      int    `gorm:"column:progress;not null;default:0"`
	Comments      string `gorm:"column:comments;type:text;not null"`
	EvidenceJSON  string `gorm:"column:evidence_json;type:text;not null"`
	State         string `gorm:"column:state;type:text;not null;index"`
	Revision      int64  `gorm:"column:revision;not null"`
	CreatedAt     string `gorm:"column:created_at;type:text;not null"`
	UpdatedAt     string `gorm:"column:updated_at;type:text;not null"`
}

func (CorrectiveAction) TableName() string {
	return "corrective_actions"
}
