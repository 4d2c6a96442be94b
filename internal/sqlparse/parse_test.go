package sqlparse

import (
	"testing"

	pgquery "github.com/pganalyze/pg_query_go/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresGrammarParse(t *testing.T) {
	stmts, err := PostgresGrammar{}.Parse("ALTER TABLE users ADD COLUMN email VARCHAR(255);")
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.NotNil(t, stmts[0].Stmt.GetAlterTableStmt())
}

func TestPostgresGrammarParseMultiple(t *testing.T) {
	stmts, err := PostgresGrammar{}.Parse("DROP INDEX idx_a;\nDROP INDEX idx_b;")
	require.NoError(t, err)
	assert.Len(t, stmts, 2)
}

func TestPostgresGrammarParseError(t *testing.T) {
	_, err := PostgresGrammar{}.Parse("THIS IS NOT SQL")
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.NotEmpty(t, parseErr.Message)
	assert.Positive(t, parseErr.Position, "cursor position from the grammar survives translation")
	assert.Contains(t, parseErr.Error(), "at position")
}

func TestParseDeterministic(t *testing.T) {
	sql := "ALTER TABLE users DROP COLUMN email;\nDROP INDEX idx_users_email;"

	a, err := Parse(PostgresGrammar{}, sql, nil)
	require.NoError(t, err)
	b, err := Parse(PostgresGrammar{}, sql, nil)
	require.NoError(t, err)

	assert.Equal(t, a.StatementLines, b.StatementLines)
	assert.Equal(t, a.IgnoreRanges, b.IgnoreRanges)
	assert.Len(t, a.Statements, len(b.Statements))
}

func TestParseNoDirectives(t *testing.T) {
	unit, err := Parse(PostgresGrammar{}, "DROP TABLE users;", nil)
	require.NoError(t, err)
	assert.Empty(t, unit.IgnoreRanges)
	assert.Len(t, unit.Statements, 1)
	assert.Equal(t, []int{1}, unit.StatementLines)
}

func TestParseDirectiveErrorIsFatal(t *testing.T) {
	sql := "-- safety-assured:end\nDROP TABLE users;"
	_, err := Parse(PostgresGrammar{}, sql, nil)

	var dirErr *DirectiveError
	require.ErrorAs(t, err, &dirErr)
	assert.Equal(t, UnmatchedEnd, dirErr.Kind)
}

// failingGrammar simulates a grammar that cannot parse anything, so the
// fallback path can be exercised with otherwise valid text.
type failingGrammar struct{}

func (failingGrammar) Parse(string) ([]*pgquery.RawStmt, error) {
	return nil, &ParseError{Message: "syntax error", Position: 1}
}

func TestParseFallbackSuppressesFailure(t *testing.T) {
	sql := "ALTER TABLE x ADD CONSTRAINT c UNIQUE USING INDEX i;"
	unit, err := Parse(failingGrammar{}, sql, nil)
	require.NoError(t, err)
	assert.Empty(t, unit.Statements, "suppressed unit carries no statements")
}

func TestParseFallbackMissPropagatesFailure(t *testing.T) {
	_, err := Parse(failingGrammar{}, "ALTER TABLE x FROB COLUMN y;", nil)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "syntax error", parseErr.Message)
}

func TestUnitExempt(t *testing.T) {
	unit := &Unit{IgnoreRanges: []IgnoreRange{{Start: 2, End: 4}, {Start: 8, End: 8}}}

	assert.False(t, unit.Exempt(1))
	assert.True(t, unit.Exempt(2))
	assert.True(t, unit.Exempt(4))
	assert.False(t, unit.Exempt(5))
	assert.True(t, unit.Exempt(8))
}
