package model

type EquipmentAssignment struct {
	ID             string `gorm:"column:id;type:text;primaryKey"`
	WorkerID       string `gorm:"column:worker_id;type:text;not null;index"`
	CatalogItemID  string `gorm:"column:catalog_item_id;type:text;not null"`
	IssueDate      string `gorm:"column:issue_date;type:text;not null"`
	ValidityMonths int    `gorm:"column:validity_months;not null"`
	ExpiryDate     string `gorm:"column:expiry_date;type:text;not null;index"`
	Condition      string `gorm:"column:condition;type:text;not null"`
	RenewedFrom    string `gorm:"column:renewed_from;type:text;not null"`
	State          string `gorm:"column:state;type:text;not null;index"`
	Revision       int64  `gorm:"column:revision;not null"`
	CreatedAt      string `gorm:"column:created_at;type:text;not null"`
	UpdatedAt      string `gorm:"column:updated_at;type:text;not null"`
}

func (EquipmentAssignment) TableName() string {
	return "equipment_assignments"
}
