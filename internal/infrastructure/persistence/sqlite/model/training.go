package model

type Training struct {
	ID            string  `gorm:"column:id;type:text;primaryKey"`
	Topic         string  `gorm:"column:topic;type:text;not null"`
	TrainerID     string  `gorm:"column:trainer_id;type:text;not null"`
	ScheduledDate string  `gorm:"column:scheduled_date;type:text;not null;index"`
	DurationHours float64 `gorm:"column:duration_hours;not null"`
	AttendeesJSON string  `gorm:"column:attendees_json;type:text;not null"`
	State         string  `gorm:"column:state;type:text;not null;index"`
	Revision      int64   `gorm:"column:revision;not null"`
	CreatedAt     string  `gorm:"column:created_at;type:text;not null"`
	UpdatedAt     string  `gorm:"column:updated_at;type:text;not null"`
}

func (Training) TableName() string {
	return "trainings"
}
