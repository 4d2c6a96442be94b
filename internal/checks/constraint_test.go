package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddUniqueConstraintCheck(t *testing.T) {
	t.Parallel()

	assertDetects(t, AddUniqueConstraintCheck{},
		"ALTER TABLE users ADD CONSTRAINT users_email_key UNIQUE (email);",
		"ADD UNIQUE constraint")
	assertDetects(t, AddUniqueConstraintCheck{},
		"ALTER TABLE users ADD UNIQUE (email);",
		"ADD UNIQUE constraint")
	assertDetects(t, AddUniqueConstraintCheck{},
		"ALTER TABLE users ADD CONSTRAINT users_email_username_key UNIQUE (email, username);",
		"ADD UNIQUE constraint")

	// USING INDEX is the safe pattern.
	assertAllows(t, AddUniqueConstraintCheck{},
		"ALTER TABLE users ADD CONSTRAINT users_email_key UNIQUE USING INDEX users_email_idx;")
	// Index creation is AddIndexCheck's territory.
	assertAllows(t, AddUniqueConstraintCheck{},
		"CREATE UNIQUE INDEX CONCURRENTLY idx_users_email ON users(email);")
	assertAllows(t, AddUniqueConstraintCheck{},
		"ALTER TABLE users ADD CONSTRAINT users_age_check CHECK (age >= 0);")
	assertAllows(t, AddUniqueConstraintCheck{},
		"ALTER TABLE posts ADD CONSTRAINT posts_user_id_fkey FOREIGN KEY (user_id) REFERENCES users(id);")
}

func TestAddPrimaryKeyCheck(t *testing.T) {
	t.Parallel()

	assertDetects(t, AddPrimaryKeyCheck{},
		"ALTER TABLE users ADD CONSTRAINT users_pkey PRIMARY KEY (id);",
		"ADD PRIMARY KEY")
	assertDetects(t, AddPrimaryKeyCheck{},
		"ALTER TABLE users ADD PRIMARY KEY (id);",
		"ADD PRIMARY KEY")

	assertAllows(t, AddPrimaryKeyCheck{},
		"ALTER TABLE users ADD CONSTRAINT users_pkey PRIMARY KEY USING INDEX users_pkey_idx;")
	assertAllows(t, AddPrimaryKeyCheck{},
		"ALTER TABLE users ADD CONSTRAINT users_email_key UNIQUE (email);")
	assertAllows(t, AddPrimaryKeyCheck{},
		"CREATE TABLE users (id BIGINT PRIMARY KEY);")
}

func TestDropPrimaryKeyCheck(t *testing.T) {
	t.Parallel()

	assertDetects(t, DropPrimaryKeyCheck{},
		"ALTER TABLE users DROP CONSTRAINT users_pkey;",
		"DROP PRIMARY KEY")

	// Non-pkey constraint drops are not flagged.
	assertAllows(t, DropPrimaryKeyCheck{},
		"ALTER TABLE users DROP CONSTRAINT users_email_key;")
	assertAllows(t, DropPrimaryKeyCheck{},
		"ALTER TABLE users DROP COLUMN email;")
}

func TestUnnamedConstraintCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sql    string
		unsafe bool
	}{
		{name: "unnamed unique", sql: "ALTER TABLE users ADD UNIQUE (email);", unsafe: true},
		{name: "unnamed foreign key", sql: "ALTER TABLE posts ADD FOREIGN KEY (user_id) REFERENCES users(id);", unsafe: true},
		{name: "unnamed check", sql: "ALTER TABLE users ADD CHECK (age >= 0);", unsafe: true},
		{name: "named unique", sql: "ALTER TABLE users ADD CONSTRAINT users_email_key UNIQUE (email);", unsafe: false},
		{name: "named foreign key", sql: "ALTER TABLE posts ADD CONSTRAINT posts_user_fkey FOREIGN KEY (user_id) REFERENCES users(id);", unsafe: false},
		{name: "named check", sql: "ALTER TABLE users ADD CONSTRAINT users_age_check CHECK (age >= 0);", unsafe: false},
		{name: "unrelated statement", sql: "CREATE TABLE users (id BIGINT PRIMARY KEY);", unsafe: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.unsafe {
				assertDetects(t, UnnamedConstraintCheck{}, tt.sql, "CONSTRAINT without name")
			} else {
				assertAllows(t, UnnamedConstraintCheck{}, tt.sql)
			}
		})
	}
}

func TestUnnamedForeignKeyDescribesReference(t *testing.T) {
	t.Parallel()

	violations := runCheck(t, UnnamedConstraintCheck{},
		"ALTER TABLE posts ADD FOREIGN KEY (user_id) REFERENCES users(id);")
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Problem, "FOREIGN KEY")
	assert.Contains(t, violations[0].Solution, "REFERENCES users(id)")
}

func TestShortIntegerPrimaryKeyCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		sql    string
		unsafe bool
	}{
		{name: "inline int pk", sql: "CREATE TABLE users (id INT PRIMARY KEY);", unsafe: true},
		{name: "inline integer pk", sql: "CREATE TABLE users (id INTEGER PRIMARY KEY);", unsafe: true},
		{name: "inline smallint pk", sql: "CREATE TABLE users (id SMALLINT PRIMARY KEY);", unsafe: true},
		{name: "inline serial pk", sql: "CREATE TABLE users (id SERIAL PRIMARY KEY);", unsafe: true},
		{name: "separate pk constraint", sql: "CREATE TABLE users (id INT, name TEXT, PRIMARY KEY (id));", unsafe: true},
		{name: "alter add column int pk", sql: "ALTER TABLE users ADD COLUMN id INT PRIMARY KEY;", unsafe: true},
		{name: "alter add constraint pk", sql: "ALTER TABLE users ADD COLUMN id INT, ADD CONSTRAINT pk_users PRIMARY KEY (id);", unsafe: true},
		{name: "bigint pk", sql: "CREATE TABLE users (id BIGINT PRIMARY KEY);", unsafe: false},
		{name: "bigserial pk", sql: "CREATE TABLE users (id BIGSERIAL PRIMARY KEY);", unsafe: false},
		{name: "uuid pk", sql: "CREATE TABLE users (id UUID PRIMARY KEY);", unsafe: false},
		{name: "int non-pk column", sql: "CREATE TABLE users (id BIGINT PRIMARY KEY, age INT);", unsafe: false},
		{name: "int unique not primary", sql: "CREATE TABLE users (id BIGINT PRIMARY KEY, code INT UNIQUE);", unsafe: false},
		{name: "composite pk all bigint", sql: "CREATE TABLE events (tenant_id BIGINT, id BIGINT, PRIMARY KEY (tenant_id, id));", unsafe: false},
		// Type unknown when the column is not defined in the same statement.
		{name: "constraint on existing column", sql: "ALTER TABLE users ADD CONSTRAINT pk_users PRIMARY KEY (id);", unsafe: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.unsafe {
				assertDetects(t, ShortIntegerPrimaryKeyCheck{}, tt.sql, "PRIMARY KEY with short integer type")
			} else {
				assertAllows(t, ShortIntegerPrimaryKeyCheck{}, tt.sql)
			}
		})
	}
}

func TestShortIntegerPrimaryKeyLimits(t *testing.T) {
	t.Parallel()

	violations := runCheck(t, ShortIntegerPrimaryKeyCheck{},
		"CREATE TABLE users (id SMALLINT PRIMARY KEY);")
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Problem, "~32,767")

	violations = runCheck(t, ShortIntegerPrimaryKeyCheck{},
		"CREATE TABLE users (id INT PRIMARY KEY);")
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Problem, "~2.1 billion")
}

func TestShortIntegerCompositePrimaryKey(t *testing.T) {
	t.Parallel()

	violations := runCheck(t, ShortIntegerPrimaryKeyCheck{},
		"CREATE TABLE data (tenant_id INT, user_id SMALLINT, PRIMARY KEY (tenant_id, user_id));")
	require.Len(t, violations, 2)
	assert.Contains(t, violations[0].Problem, "tenant_id")
	assert.Contains(t, violations[1].Problem, "user_id")
}
