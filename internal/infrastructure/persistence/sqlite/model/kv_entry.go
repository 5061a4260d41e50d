package model

// KVEntry backs the cache port. ExpiresAt is nil for entries without a TTL.
type KVEntry struct {
	Key       string  `gorm:"column:key;type:text;primaryKey"`
	Value     string  `gorm:"column:value;type:text;not null"`
	ExpiresAt *string `gorm:"column:expires_at;type:text"`
	UpdatedAt string  `gorm:"column:updated_at;type:text;not null"`
}

func (KVEntry) TableName() string {
	return "compliance_kv"
}
