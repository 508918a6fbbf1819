//go:build integration

package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bosun-marine/bosun-engine/pkg/database"
	"github.com/bosun-marine/bosun-engine/pkg/testhelpers"
)

// createScratchDatabase creates a database and login role, dropped on cleanup.
func createScratchDatabase(t *testing.T, name, user string, grantSchema bool) string {
	t.Helper()
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	_, _ = testDB.Pool.Exec(ctx, "DROP DATABASE IF EXISTS "+name)
	_, _ = testDB.Pool.Exec(ctx, "DROP USER IF EXISTS "+user)

	_, err := testDB.Pool.Exec(ctx, "CREATE DATABASE "+name)
	require.NoError(t, err)
	_, err = testDB.Pool.Exec(ctx, "CREATE USER "+user+" WITH PASSWORD 'test_password'")
	require.NoError(t, err)
	_, err = testDB.Pool.Exec(ctx, "GRANT CONNECT ON DATABASE "+name+" TO "+user)
	require.NoError(t, err)

	host, err := testDB.Container.Host(ctx)
	require.NoError(t, err)
	port, err := testDB.Container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	if grantSchema {
		superDB, err := database.NewConnection(ctx, &database.Config{
			URL: "postgres://postgres:test_password@" + host + ":" + port.Port() + "/" + name + "?sslmode=disable",
		})
		require.NoError(t, err)
		_, err = superDB.Exec(ctx, "GRANT ALL ON SCHEMA public TO "+user)
		require.NoError(t, err)
		superDB.Close()
	}

	t.Cleanup(func() {
		_, _ = testDB.Pool.Exec(ctx, `
			SELECT pg_terminate_backend(pg_stat_activity.pid)
			FROM pg_stat_activity
			WHERE pg_stat_activity.datname = $1
			AND pid <> pg_backend_pid()
		`, name)
		time.Sleep(100 * time.Millisecond)
		_, _ = testDB.Pool.Exec(ctx, "DROP DATABASE IF EXISTS "+name)
		_, _ = testDB.Pool.Exec(ctx, "DROP USER IF EXISTS "+user)
	})

	return "postgres://" + user + ":test_password@" + host + ":" + port.Port() + "/" + name + "?sslmode=disable"
}

// Migrations must fail fast, not hang, when the role cannot create tables.
func Test_Migrations_InsufficientPermissions(t *testing.T) {
	connStr := createScratchDatabase(t, "test_migration_perms", "restricted_user", false)

	db, err := database.NewConnection(context.Background(), &database.Config{URL: connStr, MaxConnections: 2})
	require.NoError(t, err)
	defer db.Close()

	sqlDB := db.StdDB()
	defer sqlDB.Close()

	done := make(chan error, 1)
	go func() {
		done <- database.RunMigrations(sqlDB, zap.NewNop())
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "permission denied")
	case <-time.After(30 * time.Second):
		t.Fatal("TIMEOUT: migrations hung instead of failing with a permission error")
	}
}

func Test_Migrations_IdempotentWithProperPermissions(t *testing.T) {
	connStr := createScratchDatabase(t, "test_migration_success", "full_perms_user", true)

	db, err := database.NewConnection(context.Background(), &database.Config{URL: connStr, MaxConnections: 2})
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 2; i++ {
		sqlDB := db.StdDB()
		require.NoError(t, database.RunMigrations(sqlDB, zap.NewNop()), "run %d", i+1)
		_ = sqlDB.Close()
	}

	var exists bool
	err = db.QueryRow(context.Background(), `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables WHERE table_name = 'pms_audit_log'
		)`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists)
}
