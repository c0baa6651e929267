package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Tx wraps a pgx transaction as domain.Tx. Unit-of-work closures that need
// SQL access type-assert to *postgres.Tx and use Pgx.
type Tx struct {
	tx pgx.Tx
}

// Pgx exposes the underlying pgx transaction for SQL statements issued by the
// unit of work.
func (t *Tx) Pgx() pgx.Tx { return t.tx }

func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres.Tx.Commit: %w", err)
	}
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil {
		return fmt.Errorf("postgres.Tx.Rollback: %w", err)
	}
	return nil
}
