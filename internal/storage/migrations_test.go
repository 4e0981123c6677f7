package storage

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openRawDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := openDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n)
	require.NoError(t, err)
	return n == 1
}

func TestApplyMigrations(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()

	v, err := currentVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", v.String())

	require.NoError(t, ApplyMigrations(ctx, db))
	for _, table := range []string{"categories", "shops", "shop_categories", "items", "item_tags"} {
		assert.True(t, tableExists(t, db, table), table)
	}

	v, err = currentVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())

	// Second run is a no-op
	require.NoError(t, ApplyMigrations(ctx, db))
	var rows int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&rows))
	assert.Equal(t, len(AllMigrations), rows)
}

func TestRollbackMigration(t *testing.T) {
	db := openRawDB(t)
	ctx := context.Background()
	require.NoError(t, ApplyMigrations(ctx, db))

	require.NoError(t, RollbackMigration(ctx, db))
	v, err := currentVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.String())
	assert.True(t, tableExists(t, db, "items"))

	require.NoError(t, RollbackMigration(ctx, db))
	assert.False(t, tableExists(t, db, "items"))
	assert.False(t, tableExists(t, db, "schema_version"))

	err = RollbackMigration(ctx, db)
	assert.Error(t, err)

	// and forward again
	require.NoError(t, ApplyMigrations(ctx, db))
	v, err = currentVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())
}
