package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pgguard/internal/config"
)

func TestAddColumnCheck(t *testing.T) {
	t.Parallel()

	assertDetects(t, AddColumnCheck{},
		"ALTER TABLE users ADD COLUMN admin BOOLEAN DEFAULT FALSE;",
		"ADD COLUMN with DEFAULT")
	assertAllows(t, AddColumnCheck{}, "ALTER TABLE users ADD COLUMN admin BOOLEAN;")
	assertAllows(t, AddColumnCheck{}, "CREATE TABLE users (id BIGINT PRIMARY KEY);")
}

func TestAddColumnCheckSkippedOnModernPostgres(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.PostgresVersion = 11

	node := parseStmt(t, "ALTER TABLE users ADD COLUMN admin BOOLEAN DEFAULT FALSE;")
	assert.Empty(t, AddColumnCheck{}.Check(node, cfg))

	cfg.PostgresVersion = 10
	assert.NotEmpty(t, AddColumnCheck{}.Check(node, cfg))
}

func TestAddSerialColumnCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sql    string
		unsafe bool
	}{
		{name: "serial", sql: "ALTER TABLE users ADD COLUMN id SERIAL;", unsafe: true},
		{name: "bigserial", sql: "ALTER TABLE users ADD COLUMN id BIGSERIAL;", unsafe: true},
		{name: "smallserial", sql: "ALTER TABLE users ADD COLUMN id SMALLSERIAL;", unsafe: true},
		{name: "integer is fine", sql: "ALTER TABLE users ADD COLUMN count INTEGER;", unsafe: false},
		{name: "create table with serial is fine", sql: "CREATE TABLE users (id SERIAL PRIMARY KEY);", unsafe: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.unsafe {
				assertDetects(t, AddSerialColumnCheck{}, tt.sql, "ADD COLUMN with SERIAL")
			} else {
				assertAllows(t, AddSerialColumnCheck{}, tt.sql)
			}
		})
	}
}

func TestAddNotNullCheck(t *testing.T) {
	t.Parallel()

	assertDetects(t, AddNotNullCheck{},
		"ALTER TABLE users ALTER COLUMN email SET NOT NULL;",
		"SET NOT NULL")
	assertAllows(t, AddNotNullCheck{}, "ALTER TABLE users ALTER COLUMN email DROP NOT NULL;")
	assertAllows(t, AddNotNullCheck{}, "ALTER TABLE users ADD COLUMN email TEXT NOT NULL;")
}

func TestAlterColumnTypeCheck(t *testing.T) {
	t.Parallel()

	assertDetects(t, AlterColumnTypeCheck{},
		"ALTER TABLE users ALTER COLUMN age TYPE BIGINT;",
		"ALTER COLUMN TYPE")
	assertDetects(t, AlterColumnTypeCheck{},
		"ALTER TABLE users ALTER COLUMN data TYPE JSONB USING data::JSONB;",
		"ALTER COLUMN TYPE")
	assertDetects(t, AlterColumnTypeCheck{},
		"ALTER TABLE users ALTER COLUMN email SET DATA TYPE VARCHAR(500);",
		"ALTER COLUMN TYPE")
	assertAllows(t, AlterColumnTypeCheck{}, "ALTER TABLE users ALTER COLUMN email SET NOT NULL;")
	assertAllows(t, AlterColumnTypeCheck{}, "ALTER TABLE users ADD COLUMN email VARCHAR(255);")
}

func TestAlterColumnTypeCheckNamesNewType(t *testing.T) {
	t.Parallel()

	violations := runCheck(t, AlterColumnTypeCheck{}, "ALTER TABLE users ALTER COLUMN age TYPE BIGINT;")
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Problem, "int8")
	assert.Contains(t, violations[0].Problem, "age")
	assert.Contains(t, violations[0].Problem, "users")
}

func TestGeneratedColumnCheck(t *testing.T) {
	t.Parallel()

	assertDetects(t, GeneratedColumnCheck{},
		"ALTER TABLE products ADD COLUMN total_price INTEGER GENERATED ALWAYS AS (price * quantity) STORED;",
		"ADD COLUMN with GENERATED STORED")
	assertAllows(t, GeneratedColumnCheck{}, "ALTER TABLE users ADD COLUMN email TEXT;")
	// IDENTITY is a different constraint kind.
	assertAllows(t, GeneratedColumnCheck{},
		"ALTER TABLE users ADD COLUMN id INTEGER GENERATED ALWAYS AS IDENTITY;")
	// CREATE TABLE is safe because the table is empty.
	assertAllows(t, GeneratedColumnCheck{},
		"CREATE TABLE products (id BIGINT PRIMARY KEY, price INTEGER, quantity INTEGER, total_price INTEGER GENERATED ALWAYS AS (price * quantity) STORED);")
}

func TestDropColumnCheck(t *testing.T) {
	t.Parallel()

	assertDetects(t, DropColumnCheck{},
		"ALTER TABLE users DROP COLUMN email;",
		"DROP COLUMN")
	assertDetects(t, DropColumnCheck{},
		"ALTER TABLE users DROP COLUMN IF EXISTS email;",
		"DROP COLUMN")
	assertAllows(t, DropColumnCheck{}, "ALTER TABLE users ADD COLUMN email TEXT;")
	assertAllows(t, DropColumnCheck{}, "DROP TABLE users;")
}

func TestDropColumnCheckMultipleDrops(t *testing.T) {
	t.Parallel()

	violations := runCheck(t, DropColumnCheck{},
		"ALTER TABLE users DROP COLUMN email, DROP COLUMN phone;")
	require.Len(t, violations, 2)
	assert.Contains(t, violations[0].Problem, "email")
	assert.Contains(t, violations[1].Problem, "phone")
}

func TestRenameColumnCheck(t *testing.T) {
	t.Parallel()

	assertDetects(t, RenameColumnCheck{},
		"ALTER TABLE users RENAME COLUMN email TO email_address;",
		"RENAME COLUMN")
	assertAllows(t, RenameColumnCheck{}, "ALTER TABLE users RENAME TO members;")
	assertAllows(t, RenameColumnCheck{}, "ALTER TABLE users ADD COLUMN email TEXT;")
}

func TestRenameColumnCheckNamesBothColumns(t *testing.T) {
	t.Parallel()

	violations := runCheck(t, RenameColumnCheck{},
		"ALTER TABLE users RENAME COLUMN email TO email_address;")
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Problem, "email")
	assert.Contains(t, violations[0].Problem, "email_address")
}
