package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), DefaultConfig())
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	schema := `CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT NOT NULL);`
	require.NoError(t, Migrate(ctx, db, 1, schema))
	require.NoError(t, Migrate(ctx, db, 1, "THIS IS NOT SQL"), "same version is a no-op")

	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, 1, version)

	require.Error(t, Migrate(ctx, db, 2, "THIS IS NOT SQL"))
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, 1, version, "failed migration must not bump the version")

	problems, err := QuickCheck(ctx, db)
	require.NoError(t, err)
	assert.Nil(t, problems)
}
