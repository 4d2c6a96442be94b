package adapter

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqlxParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "full timestamp", in: "20240101000000_create_users.sql", want: "20240101000000"},
		{name: "short version", in: "42_add_columns.up.sql", want: "42"},
		{name: "padded version", in: "001_init.sql", want: "001"},
		{name: "bare number", in: "20240101000000.up.sql", want: "20240101000000"},
		{name: "no version", in: "create_users.sql", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SqlxAdapter{}.ParseTimestamp(tt.in))
		})
	}
}

func TestSqlxValidateTimestamp(t *testing.T) {
	t.Parallel()

	a := SqlxAdapter{}
	assert.NoError(t, a.ValidateTimestamp("1"))
	assert.NoError(t, a.ValidateTimestamp("20240101000000"))
	assert.Error(t, a.ValidateTimestamp(""))
	assert.Error(t, a.ValidateTimestamp("2024_01_01"))
	assert.Error(t, a.ValidateTimestamp("abc"))
}

func TestSqlxCollectMigrationFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "20240101000000_create_users.up.sql"), "CREATE TABLE users (id BIGINT PRIMARY KEY);")
	writeFile(t, filepath.Join(dir, "20240101000000_create_users.down.sql"), "DROP TABLE users;")
	writeFile(t, filepath.Join(dir, "20240201000000_add_email.sql"), "ALTER TABLE users ADD COLUMN email TEXT;")
	writeFile(t, filepath.Join(dir, "README.md"), "not a migration")

	a := SqlxAdapter{}

	files, err := a.CollectMigrationFiles(dir, "", false)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "20240101000000", files[0].Timestamp)
	assert.Equal(t, "20240201000000", files[1].Timestamp)

	files, err = a.CollectMigrationFiles(dir, "", true)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, DirectionDown, files[0].Direction)
	assert.Equal(t, DirectionUp, files[1].Direction)
}

func TestSqlxCollectAppliesStartAfter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "20240101000000_old.sql"), "SELECT 1;")
	writeFile(t, filepath.Join(dir, "20240201000000_new.sql"), "SELECT 1;")

	files, err := SqlxAdapter{}.CollectMigrationFiles(dir, "20240115000000", false)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "20240201000000", files[0].Timestamp)
}

func TestSqlxFilesWithoutVersionAreSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "schema.sql"), "SELECT 1;")

	files, err := SqlxAdapter{}.CollectMigrationFiles(dir, "", false)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSqlxNoTransactionDirective(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "1_add_index.sql"), "-- no-transaction\nCREATE INDEX CONCURRENTLY idx ON t(a);")
	writeFile(t, filepath.Join(dir, "2_plain.sql"), "SELECT 1;")

	files, err := SqlxAdapter{}.CollectMigrationFiles(dir, "", false)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.True(t, files[0].RequiresNoTransaction)
	assert.False(t, files[1].RequiresNoTransaction)
}

func TestSqlxCollectMarkerFileProducesDownEntry(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sql := "-- migrate:up\nCREATE TABLE users (id BIGINT PRIMARY KEY);\n-- migrate:down\nDROP TABLE users;\n"
	writeFile(t, filepath.Join(dir, "1_create_users.sql"), sql)

	a := SqlxAdapter{}

	files, err := a.CollectMigrationFiles(dir, "", false)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, DirectionUp, files[0].Direction)

	files, err = a.CollectMigrationFiles(dir, "", true)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, files[0].Path, files[1].Path)
	assert.Equal(t, DirectionUp, files[0].Direction)
	assert.Equal(t, DirectionDown, files[1].Direction)
}

func TestSqlxExtractSection(t *testing.T) {
	t.Parallel()

	a := SqlxAdapter{}
	sql := "-- migrate:up\nCREATE TABLE users (id BIGINT PRIMARY KEY);\n-- migrate:down\nDROP TABLE users;\n"

	up := a.ExtractSection(sql, DirectionUp)
	assert.Contains(t, up, "CREATE TABLE users")
	assert.NotContains(t, up, "DROP TABLE users")

	down := a.ExtractSection(sql, DirectionDown)
	assert.Contains(t, down, "DROP TABLE users")
	assert.NotContains(t, down, "CREATE TABLE users")

	// Blanked sections must not shift line numbers.
	assert.Equal(t, len(splitLines(sql)), len(splitLines(up)))
	assert.Equal(t, "DROP TABLE users;", splitLines(down)[3])
}

func TestSqlxExtractSectionWithoutMarkers(t *testing.T) {
	t.Parallel()

	a := SqlxAdapter{}
	sql := "ALTER TABLE users ADD COLUMN email TEXT;\n"
	assert.Equal(t, sql, a.ExtractSection(sql, DirectionUp))
	assert.Empty(t, a.ExtractSection(sql, DirectionDown))
}

func splitLines(s string) []string {
	return strings.Split(s, "\n")
}
