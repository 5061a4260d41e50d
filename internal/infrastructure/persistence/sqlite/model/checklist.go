package model

// Checklist keeps items as a JSON array. Older rows may use alternative key
// names; the repository normalizes them on read.
type Checklist struct {
	ID        string `gorm:"column:id;type:text;primaryKey"`
	Name      string `gorm:"column:name;type:text;not null"`
	Area      string `gorm:"column:area;type:text;not null"`
	ItemsJSON string `gorm:"column:items_json;type:text;not null"`
	Revision  int64  `gorm:"column:revision;not null"`
	CreatedAt string `gorm:"column:created_at;type:text;not null"`
	UpdatedAt string `gorm:"column:updated_at;type:text;not null"`
}

func (Checklist) TableName() string {
	return "checklists"
}

type Inspection struct {
	ID            string  `gorm:"column:id;type:text;primaryKey"`
	ChecklistID   string  `gorm:"column:checklist_id;type:text;not null;index"`
	Area          string  `gorm:"column:area;type:text;not null"`
	ScheduledDate string  `gorm:"column:scheduled_date;type:text;not null;index"`
	InspectorID   string  `gorm:"column:inspector_id;type:text;not null"`
	State         string  `gorm:"column:state;type:text;not null;index"`
	CompletedAt   *string `gorm:"column:completed_at;type:text"`
	AnswersJSON   string  `gorm:"column:answers_json;type:text;not null"`
	Observations  string  `gorm:"column:observations;type:text;not null"`
	Revision      int64   `gorm:"column:revision;not null"`
	CreatedAt     string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt     string  `gorm:"column:updated_at;type:text;not null"`
}

func (Inspection) TableName() string {
	return "inspections"
}
