package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrCommitFailed wraps a failed COMMIT. The caller cannot know whether the
// writes became durable.
var ErrCommitFailed = errors.New("commit failed")

// TxRunner runs fn inside a store transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TenantTxRunner opens transactions on the tenant-scoped connection in ctx.
// A nested InTx becomes a savepoint.
type TenantTxRunner struct{}

// NewTxRunner returns the TxRunner used in production.
func NewTxRunner() TxRunner {
	return TenantTxRunner{}
}

// InTx begins a transaction, stores it in the context passed to fn, and
// commits when fn returns nil. Any error from fn rolls everything back.
func (TenantTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var begin func(context.Context) (pgx.Tx, error)
	if parent, ok := getTx(ctx); ok {
		begin = func(c context.Context) (pgx.Tx, error) { return parent.Begin(c) }
	} else {
		scope, ok := GetTenantScope(ctx)
		if !ok || scope == nil || scope.Conn == nil {
			return ErrNoTenantScope
		}
		begin = func(c context.Context) (pgx.Tx, error) { return scope.Conn.Begin(c) }
	}

	tx, err := begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback after a successful commit is a no-op.
	defer func() { _ = tx.Rollback(context.Background()) }()

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	return nil
}
