package postgres

import (
	"context"
	"database/sql"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestRunMigrations(t *testing.T) {
	db, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	fsys := fstest.MapFS{
		"002_second.sql": {Data: []byte(`CREATE TABLE second (id INTEGER PRIMARY KEY);`)},
		"001_first.sql":  {Data: []byte(`CREATE TABLE first (id INTEGER PRIMARY KEY);`)},
		"README.md":      {Data: []byte(`not a migration`)},
	}
	ctx := context.Background()

	applied, err := RunMigrations(ctx, db, fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_first.sql", "002_second.sql"}, applied)

	applied, err = RunMigrations(ctx, db, fsys)
	require.NoError(t, err)
	assert.Empty(t, applied, "second run is a no-op")

	fsys["003_broken.sql"] = &fstest.MapFile{Data: []byte(`CREATE TABLE oops (`)}
	pending, err := PendingMigrations(fsys, map[string]bool{"001_first.sql": true, "002_second.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"003_broken.sql"}, pending)

	_, err = RunMigrations(ctx, db, fsys)
	require.Error(t, err)

	done, err := AppliedMigrations(ctx, db)
	require.NoError(t, err)
	assert.False(t, done["003_broken.sql"], "failed migration is not recorded")
}
