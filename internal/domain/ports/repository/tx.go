package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle threaded through repository calls.
// Concrete repositories type-switch on it (pgx.Tx, pool, nil).
type Tx any

// TransactionManager runs fn inside a storage transaction. fn receives
// the Tx handle to pass back into repository methods; a returned error
// rolls the transaction back.
type TransactionManager interface {
	WithTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
