package uow

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"sstcompliance/internal/bootstrap/logging"
	"sstcompliance/internal/errs"
	"sstcompliance/internal/ports"
)

// UnitOfWork implements ports.UnitOfWork with gorm. Nested calls join the
// outer transaction instead of opening a savepoint.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	if fn == nil {
		return errors.New("transaction callback is required")
	}
	if ports.InTx(ctx) {
		return fn(ctx)
	}

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ports.WithTxContext(ctx, tx))
	})
	if err != nil {
		logging.Warn(
			logging.WithAttrs(ctx, slog.String("component", "persistence.uow")),
			"transaction rolled back",
			slog.Any("err", errs.Loggable(err)),
		)
	}
	return err
}
