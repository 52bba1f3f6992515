package iocache

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/huangsam/codetime/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migrate.db")

	res, err := Migrate(schema.SQLiteBackend, path, -1)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint(0), res.From)
	assert.Equal(t, uint(1), res.To)

	// Running again is a no-op.
	res, err = Migrate(schema.SQLiteBackend, path, -1)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, uint(1), res.To)

	// The migrated table is usable by the store.
	store, err := NewSQLStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), "r1", completedEntry("r1", baseTime)))
	require.NoError(t, store.Close())

	res, err = Migrate(schema.SQLiteBackend, path, 0)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint(0), res.To)

	res, err = Migrate(schema.SQLiteBackend, path, 1)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint(1), res.To)
}

func TestMigrate_UnsupportedBackend(t *testing.T) {
	_, err := Migrate(schema.BadgerBackend, "", -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}

func TestValidateTableName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"codetime_analyses", false},
		{"_private", false},
		{"t1", false},
		{"", true},
		{"1table", true},
		{"drop table;", true},
		{"a-b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTableName(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQuoteTableName(t *testing.T) {
	assert.Equal(t, "`codetime_analyses`", quoteTableName("codetime_analyses", schema.MySQLBackend))
	assert.Equal(t, `"codetime_analyses"`, quoteTableName("codetime_analyses", schema.PostgreSQLBackend))
	assert.Equal(t, `"codetime_analyses"`, quoteTableName("codetime_analyses", schema.SQLiteBackend))
}

func TestExecuteAnalysisExport(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "r1", completedEntry("r1", baseTime)))
	require.NoError(t, store.Put(ctx, "r2", completedEntry("r2", baseTime.Add(1))))
	require.NoError(t, store.Put(ctx, "p1", pendingEntry("p1", baseTime)))

	prefix := filepath.Join(t.TempDir(), "out")
	var buf bytes.Buffer
	res, err := ExecuteAnalysisExport(ctx, store, prefix, &buf)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Analyses)
	assert.Equal(t, 4, res.Commits)
	assert.FileExists(t, prefix+".analyses.parquet")
	assert.FileExists(t, prefix+".commits.parquet")
	assert.Contains(t, buf.String(), "Exported 2 analyses")
}

func TestExecuteAnalysisExport_Errors(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := ExecuteAnalysisExport(ctx, store, "", &bytes.Buffer{})
	require.Error(t, err)

	require.NoError(t, store.Put(ctx, "p1", pendingEntry("p1", baseTime)))
	_, err = ExecuteAnalysisExport(ctx, store, filepath.Join(t.TempDir(), "out"), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no completed analyses")
}
