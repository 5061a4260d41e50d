package model

type Incident struct {
	ID                string  `gorm:"column:id;type:text;primaryKey"`
	Code              string  `gorm:"column:code;type:text;not null;index"`
	Type              string  `gorm:"column:type;type:text;not null"`
	OccurredAt        string  `gorm:"column:occurred_at;type:text;not null;index"`
	Area              string  `gorm:"column:area;type:text;not null"`
	Position          string  `gorm:"column:position;type:text;not null"`
	Description       string  `gorm:"column:description;type:text;not null"`
	AffectedWorkerID  string  `gorm:"column:affected_worker_id;type:text;not null"`
	InjurySeverity    string  `gorm:"column:injury_severity;type:text;not null"`
	DamageSeverity    string  `gorm:"column:damage_severity;type:text;not null"`
	SeverityScore     int     `gorm:"column:severity_score;not null"`
	PriorityTier      string  `gorm:"column:priority_tier;type:text;not null"`
	Notify            bool    `gorm:"column:notify;not null;default:0"`
	EvidenceJSON      string  `gorm:"column:evidence_json;type:text;not null"`
	WitnessesJSON     string  `gorm:"column:witnesses_json;type:text;not null"`
	State             string  `gorm:"column:state;type:text;not null;index"`
	InvestigationJSON *string `gorm:"column:investigation_json;type:text"`
	ClosedAt          *string `gorm:"column:closed_at;type:text"`
	Revision          int64   `gorm:"column:revision;not null"`
	CreatedAt         string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt         string  `gorm:"column:updated_at;type:text;not null"`
}

func (Incident) TableName() string {
	return "incidents"
}
