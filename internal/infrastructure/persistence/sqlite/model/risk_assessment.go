package model

type RiskAssessment struct {
	ID             string `gorm:"column:id;type:text;primaryKey"`
	Code           string `gorm:"column:code;type:text;not null;index"`
	Area           string `gorm:"column:area;type:text;not null"`
	Position       string `gorm:"column:position;type:text;not null"`
	Activity       string `gorm:"column:activity;type:text;not null"`
	Hazard         string `gorm:"column:hazard;type:text;not null"`
	HazardCategory string `gorm:"column:hazard_category;type:text;not null"`
	Probability    int    `gorm:"column:probability;not null"`
	Severity       int    `gorm:"column:severity;not null"`
	RiskLevel      int    `gorm:"column:risk_level;not null"`
	Classification string `gorm:"column:classification;type:text;not null"`
	Controls       string `gorm:"column:controls;type:text;not null"`
	ResponsibleID  string `gorm:"column:responsible_id;type:text;not null"`
	State          string `gorm:"column:state;type:text;not null;index"`
	Revision       int64  `gorm:"column:revision;not null"`
	CreatedAt      string `gorm:"column:created_at;type:text;not null"`
	UpdatedAt      string `gorm:"column:updated_at;type:text;not null"`
}

func (RiskAssessment) TableName() string {
	return "risk_assessments"
}
