package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
)

type txContextKey struct{}

// WithTx attaches an active transaction to the context so repository writes
// issued inside a unit of work join the same transaction.
func WithTx(ctx context.Context, tx *firestore.Transaction) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the ambient transaction, if any.
func TxFromContext(ctx context.Context) (*firestore.Transaction, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*firestore.Transaction)
	return tx, ok && tx != nil
}
