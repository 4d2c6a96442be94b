package checks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCharTypeCheck(t *testing.T) {
	t.Parallel()

	assertDetects(t, CharTypeCheck{},
		"ALTER TABLE users ADD COLUMN country_code CHAR(2);",
		"ADD COLUMN with CHAR type")
	assertDetects(t, CharTypeCheck{},
		"ALTER TABLE users ADD COLUMN status CHARACTER(1);",
		"ADD COLUMN with CHAR type")
	assertDetects(t, CharTypeCheck{},
		"CREATE TABLE users (country_code CHAR(2));",
		"CREATE TABLE with CHAR column")

	assertAllows(t, CharTypeCheck{}, "ALTER TABLE users ADD COLUMN name VARCHAR(255);")
	assertAllows(t, CharTypeCheck{}, "ALTER TABLE users ADD COLUMN bio TEXT;")
	assertAllows(t, CharTypeCheck{}, "ALTER TABLE users DROP COLUMN old_field;")
	assertAllows(t, CharTypeCheck{}, "SELECT * FROM users;")
}

func TestCharTypeCheckMultipleColumns(t *testing.T) {
	t.Parallel()

	violations := runCheck(t, CharTypeCheck{},
		"CREATE TABLE locations (id BIGINT PRIMARY KEY, country CHAR(2), region CHAR(3));")
	require.Len(t, violations, 2)
	assert.Contains(t, violations[0].Problem, "country")
	assert.Contains(t, violations[1].Problem, "region")
}

func TestTimestampTypeCheck(t *testing.T) {
	t.Parallel()

	assertDetects(t, TimestampTypeCheck{},
		"ALTER TABLE users ADD COLUMN created_at TIMESTAMP;",
		"ADD COLUMN with TIMESTAMP")
	assertDetects(t, TimestampTypeCheck{},
		"ALTER TABLE users ADD COLUMN created_at TIMESTAMP WITHOUT TIME ZONE;",
		"ADD COLUMN with TIMESTAMP")
	assertDetects(t, TimestampTypeCheck{},
		"CREATE TABLE events (id BIGINT PRIMARY KEY, occurred_at TIMESTAMP);",
		"CREATE TABLE with TIMESTAMP")

	assertAllows(t, TimestampTypeCheck{},
		"ALTER TABLE users ADD COLUMN created_at TIMESTAMPTZ;")
	assertAllows(t, TimestampTypeCheck{},
		"ALTER TABLE users ADD COLUMN created_at TIMESTAMP WITH TIME ZONE;")
	assertAllows(t, TimestampTypeCheck{},
		"ALTER TABLE users ADD COLUMN birth_date DATE;")
}

func TestAddJsonColumnCheck(t *testing.T) {
	t.Parallel()

	assertDetects(t, AddJsonColumnCheck{},
		"ALTER TABLE users ADD COLUMN settings JSON;",
		"ADD COLUMN with JSON type")
	assertDetects(t, AddJsonColumnCheck{},
		"CREATE TABLE events (id BIGINT PRIMARY KEY, payload JSON);",
		"CREATE TABLE with JSON column")

	assertAllows(t, AddJsonColumnCheck{}, "ALTER TABLE users ADD COLUMN settings JSONB;")
	assertAllows(t, AddJsonColumnCheck{}, "CREATE TABLE events (id BIGINT PRIMARY KEY, payload JSONB);")
	assertAllows(t, AddJsonColumnCheck{}, "ALTER TABLE users ADD COLUMN bio TEXT;")
}

func TestAddJsonColumnCheckRecommendsJsonb(t *testing.T) {
	t.Parallel()

	violations := runCheck(t, AddJsonColumnCheck{}, "ALTER TABLE users ADD COLUMN settings JSON;")
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0].Problem, "JSONB")
	assert.Contains(t, violations[0].Solution, "JSONB")
}
