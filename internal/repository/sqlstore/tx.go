package sqlstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// withTx runs fn inside a transaction.
//
// It commits when fn returns nil and rolls back when fn returns an error or
// panics; a panic is re-raised after the rollback. Every statement inside
// fn must go through tx, never s.db: with SQLite's single connection a
// statement on s.db would wait forever for the connection tx is holding.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed", slog.String("error", rbErr.Error()))
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("sqlstore: committing transaction: %w", cErr)
		}
	}()

	return fn(tx)
}
