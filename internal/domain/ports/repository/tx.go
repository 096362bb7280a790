package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

// TransactionManager executes a function inside a database transaction,
// passing the underlying transaction handle via `tx`. Repository methods
// accept a `tx Tx` argument and must gracefully fall back to the pool when
// it is nil (non-transactional path). The concrete type of the handle is
// infra-defined (pgx.Tx for Postgres).
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
