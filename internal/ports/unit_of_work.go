package ports

import "context"

// Tx is the adapter's transaction handle. The sqlite adapter stores *gorm.DB.
type Tx interface{}

// UnitOfWork runs fn in one transaction: an error rolls back, nil commits.
// Service operations save every aggregate they touch inside a single call so
// a transition and the records it spawns land together.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

func WithTxContext(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns nil outside a transaction.
func TxFromContext(ctx context.Context) Tx {
	if ctx == nil {
		return nil
	}
	return ctx.Value(txKey{})
}

// InTx reports whether ctx already carries a transaction.
func InTx(ctx context.Context) bool {
	return TxFromContext(ctx) != nil
}
