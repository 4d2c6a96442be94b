package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDieselParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "underscores", in: "2024_01_01_000000_create_users", want: "20240101000000"},
		{name: "dashes", in: "2024-01-01-000000_create_users", want: "20240101000000"},
		{name: "compact", in: "20240101000000_create_users", want: "20240101000000"},
		{name: "no timestamp", in: "invalid_name", want: ""},
		{name: "partial date", in: "2024_01_01", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DieselAdapter{}.ParseTimestamp(tt.in))
		})
	}
}

func TestDieselValidateTimestamp(t *testing.T) {
	t.Parallel()

	a := DieselAdapter{}
	assert.NoError(t, a.ValidateTimestamp("2024_01_01_000000"))
	assert.NoError(t, a.ValidateTimestamp("2024-01-01-000000"))
	assert.NoError(t, a.ValidateTimestamp("20240101000000"))
	assert.Error(t, a.ValidateTimestamp("invalid"))
	assert.Error(t, a.ValidateTimestamp("2024_01_01_000000_extra"))
}

func TestDieselCollectMigrationFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2024_01_01_000000_create_users", "up.sql"), "CREATE TABLE users (id BIGINT PRIMARY KEY);")
	writeFile(t, filepath.Join(dir, "2024_01_01_000000_create_users", "down.sql"), "DROP TABLE users;")
	writeFile(t, filepath.Join(dir, "2024_02_01_000000_add_email", "up.sql"), "ALTER TABLE users ADD COLUMN email TEXT;")

	a := DieselAdapter{}

	files, err := a.CollectMigrationFiles(dir, "", false)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "20240101000000", files[0].Timestamp)
	assert.Equal(t, DirectionUp, files[0].Direction)
	assert.Equal(t, "20240201000000", files[1].Timestamp)

	// Down migrations are included only with checkDown.
	files, err = a.CollectMigrationFiles(dir, "", true)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, DirectionDown, files[1].Direction)
}

func TestDieselCollectAppliesStartAfter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "2024_01_01_000000_old", "up.sql"), "SELECT 1;")
	writeFile(t, filepath.Join(dir, "2024_02_01_000000_new", "up.sql"), "SELECT 1;")

	files, err := DieselAdapter{}.CollectMigrationFiles(dir, "2024_01_15_000000", false)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "20240201000000", files[0].Timestamp)
}

func TestDieselSingleMigrationDirIgnoresStartAfter(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "2024_01_01_000000_test")
	writeFile(t, filepath.Join(dir, "up.sql"), "SELECT 1;")
	writeFile(t, filepath.Join(dir, "down.sql"), "SELECT 1;")

	// Targeting the migration directory directly bypasses the filter
	// and skips down.sql by default.
	files, err := DieselAdapter{}.CollectMigrationFiles(dir, "2099_01_01_000000", false)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(dir, "up.sql"), files[0].Path)
}

func TestDieselUnversionedDirectoryIsChecked(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "fixtures", "up.sql"), "SELECT 1;")

	files, err := DieselAdapter{}.CollectMigrationFiles(dir, "", false)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "fixtures", files[0].Timestamp)
}

func TestDieselMetadataNoTransaction(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	migration := filepath.Join(dir, "2024_01_01_000000_add_index")
	writeFile(t, filepath.Join(migration, "up.sql"), "CREATE INDEX CONCURRENTLY idx ON t(a);")
	writeFile(t, filepath.Join(migration, "metadata.toml"), "run_in_transaction = false\n")

	files, err := DieselAdapter{}.CollectMigrationFiles(dir, "", false)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, files[0].RequiresNoTransaction)
}
