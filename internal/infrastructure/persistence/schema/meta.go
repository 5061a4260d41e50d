package schema

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sstcompliance/internal/errs"
)

// Version is bumped whenever a model change needs more than AutoMigrate.
const Version = 1

const (
	keyVersion    = "schema_version"
	keyMigratedAt = "migrated_at"
)

// Meta holds installation metadata as key/value rows.
type Meta struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Key       string    `gorm:"column:key;type:text;uniqueIndex;not null"`
	Value     string    `gorm:"column:value;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null;autoUpdateTime"`
}

func (Meta) TableName() string {
	return "schema_meta"
}

// Stamp records the current schema version and migration time.
func Stamp(ctx context.Context, db *gorm.DB, at time.Time) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	rows := []Meta{
		{Key: keyVersion, Value: strconv.Itoa(Version)},
		{Key: keyMigratedAt, Value: at.UTC().Format(time.RFC3339)},
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
	return errs.Wrap(err, "stamp schema meta")
}

// StoredVersion returns the stamped version, or zero when the database was
// never initialized.
func StoredVersion(ctx context.Context, db *gorm.DB) (int, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	var row Meta
	err := db.WithContext(ctx).Where("key = ?", keyVersion).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, errs.Wrap(err, "read schema version")
	}
	v, err := strconv.Atoi(row.Value)
	if err != nil {
		return 0, errs.Wrapf(err, "parse schema version %q", row.Value)
	}
	return v, nil
}
