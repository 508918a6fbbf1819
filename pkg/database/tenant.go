package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// yachtSetting is the session variable RLS policies compare yacht_id against.
const yachtSetting = "app.current_yacht_id"

// TenantScope wraps a connection bound to one yacht and ensures cleanup.
// Every query issued through it is filtered by RLS on top of the explicit
// yacht_id predicates the repositories always add.
type TenantScope struct {
	Conn    *pgxpool.Conn
	YachtID uuid.UUID
}

// Close resets the yacht setting and releases the connection to the pool.
// This MUST be called to prevent tenant context from leaking to the next request.
func (s *TenantScope) Close() {
	if s.Conn == nil {
		return
	}
	_, _ = s.Conn.Exec(context.Background(), "RESET "+yachtSetting)
	s.Conn.Release()
}

// WithYacht acquires a connection and sets the yacht context for RLS.
// The returned TenantScope MUST be closed with defer scope.Close().
func (db *DB) WithYacht(ctx context.Context, yachtID uuid.UUID) (*TenantScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	_, err = conn.Exec(ctx, "SELECT set_config('"+yachtSetting+"', $1, false)", yachtID.String())
	if err != nil {
		conn.Release()
		return nil, err
	}

	return &TenantScope{Conn: conn, YachtID: yachtID}, nil
}
