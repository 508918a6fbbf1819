//go:build integration

package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosun-marine/bosun-engine/pkg/database"
	"github.com/bosun-marine/bosun-engine/pkg/testhelpers"
)

func insertEquipment(t *testing.T, ctx context.Context, name string) uuid.UUID {
	t.Helper()
	q, err := database.GetQuerier(ctx)
	require.NoError(t, err)
	scope, _ := database.GetTenantScope(ctx)

	var id uuid.UUID
	err = q.QueryRow(ctx,
		"INSERT INTO pms_equipment (yacht_id, name) VALUES ($1, $2) RETURNING id",
		scope.YachtID, name).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestWithYacht_RowLevelSecurityIsolatesYachts(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	provider := database.NewTenantScopeProvider(engineDB.DB)

	yachtA, yachtB := uuid.New(), uuid.New()

	ctxA, closeA, err := provider.WithTenantScope(context.Background(), yachtA)
	require.NoError(t, err)
	defer closeA()
	id := insertEquipment(t, ctxA, "Port main engine")

	ctxB, closeB, err := provider.WithTenantScope(context.Background(), yachtB)
	require.NoError(t, err)
	defer closeB()

	q, err := database.GetQuerier(ctxB)
	require.NoError(t, err)

	// No yacht_id predicate: RLS alone must hide the row.
	var count int
	require.NoError(t, q.QueryRow(ctxB, "SELECT COUNT(*) FROM pms_equipment WHERE id = $1", id).Scan(&count))
	assert.Zero(t, count)

	// Writing a row for another yacht violates the policy.
	_, err = q.Exec(ctxB, "INSERT INTO pms_equipment (yacht_id, name) VALUES ($1, 'x')", yachtA)
	assert.Error(t, err)
}

func TestTenantScope_CloseResetsSetting(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	ctx := context.Background()

	scope, err := engineDB.DB.WithYacht(ctx, uuid.New())
	require.NoError(t, err)
	conn := scope.Conn

	var setting string
	require.NoError(t, conn.QueryRow(ctx, "SELECT current_setting('app.current_yacht_id', true)").Scan(&setting))
	assert.Equal(t, scope.YachtID.String(), setting)

	_, err = conn.Exec(ctx, "RESET app.current_yacht_id")
	require.NoError(t, err)
	require.NoError(t, conn.QueryRow(ctx, "SELECT coalesce(current_setting('app.current_yacht_id', true), '')").Scan(&setting))
	assert.Empty(t, setting)
	scope.Close()
}

func TestInTx_RollsBackOnError(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	provider := database.NewTenantScopeProvider(engineDB.DB)
	runner := database.NewTxRunner()

	ctx, cleanup, err := provider.WithTenantScope(context.Background(), uuid.New())
	require.NoError(t, err)
	defer cleanup()

	var id uuid.UUID
	boom := errors.New("boom")
	err = runner.InTx(ctx, func(ctx context.Context) error {
		id = insertEquipment(t, ctx, "Watermaker")
		return boom
	})
	require.ErrorIs(t, err, boom)

	q, err := database.GetQuerier(ctx)
	require.NoError(t, err)
	var count int
	require.NoError(t, q.QueryRow(ctx, "SELECT COUNT(*) FROM pms_equipment WHERE id = $1", id).Scan(&count))
	assert.Zero(t, count)
}

func TestInTx_NestedSavepoint(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	provider := database.NewTenantScopeProvider(engineDB.DB)
	runner := database.NewTxRunner()

	ctx, cleanup, err := provider.WithTenantScope(context.Background(), uuid.New())
	require.NoError(t, err)
	defer cleanup()

	var outer, inner uuid.UUID
	err = runner.InTx(ctx, func(ctx context.Context) error {
		outer = insertEquipment(t, ctx, "Bow thruster")
		_ = runner.InTx(ctx, func(ctx context.Context) error {
			inner = insertEquipment(t, ctx, "Stern thruster")
			return errors.New("inner fails")
		})
		return nil
	})
	require.NoError(t, err)

	q, _ := database.GetQuerier(ctx)
	var count int
	require.NoError(t, q.QueryRow(ctx, "SELECT COUNT(*) FROM pms_equipment WHERE id = ANY($1)", []uuid.UUID{outer, inner}).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestAuditLog_IsAppendOnly(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	provider := database.NewTenantScopeProvider(engineDB.DB)
	yacht := uuid.New()

	ctx, cleanup, err := provider.WithTenantScope(context.Background(), yacht)
	require.NoError(t, err)
	defer cleanup()

	q, err := database.GetQuerier(ctx)
	require.NoError(t, err)

	var id uuid.UUID
	err = q.QueryRow(ctx, `
		INSERT INTO pms_audit_log (yacht_id, action_id, actor_id, actor_role)
		VALUES ($1, 'start_work_order', $2, 'crew') RETURNING id`, yacht, uuid.New()).Scan(&id)
	require.NoError(t, err)

	for _, stmt := range []string{
		"UPDATE pms_audit_log SET actor_role = 'captain' WHERE id = $1",
		"DELETE FROM pms_audit_log WHERE id = $1",
	} {
		tag, err := q.Exec(ctx, stmt, id)
		// With no UPDATE/DELETE policy the row is invisible to the statement;
		// either way nothing may change.
		if err == nil {
			assert.Zero(t, tag.RowsAffected(), stmt)
		}
	}

	_, err = q.Exec(ctx, "TRUNCATE pms_audit_log")
	assert.Error(t, err)

	var role string
	require.NoError(t, q.QueryRow(ctx, "SELECT actor_role FROM pms_audit_log WHERE id = $1", id).Scan(&role))
	assert.Equal(t, "crew", role)
}
