package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type contextKey string

const (
	// TenantScopeKey is the context key for storing the tenant-scoped database connection.
	TenantScopeKey contextKey = "tenantScope"
	txKey          contextKey = "tx"
)

// ErrNoTenantScope is returned when a repository is called outside a yacht scope.
var ErrNoTenantScope = errors.New("no tenant scope in context")

// Querier is the subset of pgx shared by a pooled connection and a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetTenantScope retrieves the tenant-scoped database connection from context.
// Returns nil and false if not present.
func GetTenantScope(ctx context.Context) (*TenantScope, bool) {
	scope, ok := ctx.Value(TenantScopeKey).(*TenantScope)
	return scope, ok
}

// SetTenantScope stores the tenant-scoped database connection in context.
func SetTenantScope(ctx context.Context, scope *TenantScope) context.Context {
	return context.WithValue(ctx, TenantScopeKey, scope)
}

func getTx(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	return tx, ok
}

// GetQuerier returns the transaction in ctx if one is open, otherwise the
// tenant-scoped connection. Repositories use this so that the handler's
// writes and the audit append share a transaction.
func GetQuerier(ctx context.Context) (Querier, error) {
	if tx, ok := getTx(ctx); ok {
		return tx, nil
	}
	scope, ok := GetTenantScope(ctx)
	if !ok || scope == nil || scope.Conn == nil {
		return nil, ErrNoTenantScope
	}
	return scope.Conn, nil
}

// TenantScopeProvider creates tenant-scoped contexts for callers outside the
// HTTP middleware chain, such as the MCP tools.
type TenantScopeProvider struct {
	db *DB
}

// NewTenantScopeProvider creates a TenantScopeProvider for the given database.
func NewTenantScopeProvider(db *DB) *TenantScopeProvider {
	return &TenantScopeProvider{db: db}
}

// WithTenantScope returns a context scoped to yachtID.
// The cleanup function must be called when the scope is no longer needed.
func (p *TenantScopeProvider) WithTenantScope(ctx context.Context, yachtID uuid.UUID) (context.Context, func(), error) {
	scope, err := p.db.WithYacht(ctx, yachtID)
	if err != nil {
		return nil, nil, err
	}
	return SetTenantScope(ctx, scope), scope.Close, nil
}
