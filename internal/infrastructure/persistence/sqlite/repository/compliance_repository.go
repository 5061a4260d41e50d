package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sstcompliance/internal/domain/compliance"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/ports"
)

// Stored timestamps use a fixed-width UTC layout so text columns sort and
// compare in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type ComplianceRepository struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.ComplianceRepository = (*ComplianceRepository)(nil)

func NewComplianceRepository(db *gorm.DB) *ComplianceRepository {
	return &ComplianceRepository{db: db, now: time.Now}
}

func (r *ComplianceRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return r.db.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

// saveVersioned inserts row when expected is zero, otherwise overwrites the
// stored row only if its revision still equals expected. row must already
// carry the next revision.
func saveVersioned[M any](db *gorm.DB, kind string, id string, expected int64, row *M) error {
	if expected == 0 {
		res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return errs.Wrapf(errs.WithStack(res.Error), "insert %s", kind)
		}
		if res.RowsAffected == 0 {
			return errs.Wrapf(ports.ErrStaleRevision, "%s %q already exists", kind, id)
		}
		return nil
	}

	res := db.Model(row).Where("revision = ?", expected).Select("*").Updates(row)
	if res.Error != nil {
		return errs.Wrapf(errs.WithStack(res.Error), "update %s", kind)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(new(M)).Where("id = ?", id).Count(&count).Error; err != nil {
		return errs.Wrapf(errs.WithStack(err), "count %s", kind)
	}
	if count == 0 {
		return compliance.NewNotFound(kind, id)
	}
	return errs.Wrapf(ports.ErrStaleRevision, "%s %q revision %d", kind, id, expected)
}

func takeByID[M any](db *gorm.DB, kind string, id string) (M, error) {
	var row M
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return row, compliance.NewNotFound(kind, id)
		}
		return row, errs.Wrapf(errs.WithStack(err), "query %s", kind)
	}
	return row, nil
}

func withPeriod(query *gorm.DB, column string, period ports.Period) *gorm.DB {
	if !period.From.IsZero() {
		query = query.Where(column+" >= ?", formatTime(period.From))
	}
	if !period.To.IsZero() {
		query = query.Where(column+" < ?", formatTime(period.To))
	}
	return query
}

func stampRevision(id string, revision int64, createdAt time.Time, now time.Time) (int64, time.Time, error) {
	if id == "" {
		return 0, time.Time{}, errors.New("entity id is required")
	}
	if revision == 0 || createdAt.IsZero() {
		createdAt = now
	}
	return revision + 1, createdAt, nil
}

func statesOf[S ~string](states []S) []string {
	out := make([]string, 0, len(states))
	for _, s := range states {
		out = append(out, string(s))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, errs.Wrapf(err, "parse time %q", raw)
	}
	return t, nil
}

func formatTimePtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTimePtr(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := parseTime(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", errs.Wrap(err, "encode json column")
	}
	return string(b), nil
}

func decodeJSON(raw string, v any) error {
	if raw == "" || raw == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return errs.Wrap(err, "decode json column")
	}
	return nil
}

func stringList(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
