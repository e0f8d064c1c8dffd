package repository

import (
	"context"
	"database/sql"
)

// TxRunner runs a function inside a database transaction.  The
// admission engine depends on this interface instead of *sql.DB so
// that its decision logic can be exercised with in-memory stores.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

type sqlTxRunner struct{ db *sql.DB }

// NewTxRunner wraps a database handle in a TxRunner.  Transactions
// run at read-committed isolation; callers that need stronger
// guarantees take explicit row locks (SELECT ... FOR UPDATE).
func NewTxRunner(db *sql.DB) TxRunner { return &sqlTxRunner{db: db} }

func (r *sqlTxRunner) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
