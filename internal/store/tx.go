package store

import (
	"context"
	"database/sql"
	"fmt"
)

// querier is the part of *sql.DB and *sql.Tx the store methods use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Update runs fn with a Store bound to a single transaction. Everything fn
// writes through that Store commits when fn returns nil and is rolled back
// otherwise. Update on a Store that is already bound joins the outer
// transaction.
func (s *Store) Update(ctx context.Context, fn func(tx *Store) error) error {
	t, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer t.rollback()

	bound := &Store{db: s.db, q: t.querier, tx: t.sqlTx, path: s.path, keys: s.keys}
	if err := fn(bound); err != nil {
		return err
	}
	return t.commit()
}

// txn is a transaction owned by one store call, or joined from Update.
type txn struct {
	querier
	sqlTx *sql.Tx
	owned bool
}

func (s *Store) begin(ctx context.Context) (*txn, error) {
	if s.tx != nil {
		return &txn{querier: s.tx, sqlTx: s.tx}, nil
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &txn{querier: sqlTx, sqlTx: sqlTx, owned: true}, nil
}

func (t *txn) commit() error {
	if !t.owned {
		return nil
	}
	return t.sqlTx.Commit()
}

func (t *txn) rollback() {
	if t.owned {
		_ = t.sqlTx.Rollback()
	}
}
