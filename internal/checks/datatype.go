package checks

import (
	"fmt"

	pgquery "github.com/pganalyze/pg_query_go/v6"

	"github.com/leapstack-labs/pgguard/internal/config"
)

// CharTypeCheck flags CHAR/CHARACTER columns in both CREATE TABLE and
// ALTER TABLE ADD COLUMN. CHAR is fixed-length and space-padded, which
// wastes storage and causes subtle comparison bugs. Best practice
// warning, no locking impact.
type CharTypeCheck struct{}

func (CharTypeCheck) Name() string { return "CharTypeCheck" }

func (CharTypeCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	isCreate := node.GetCreateStmt() != nil

	var violations []Violation
	for _, tc := range forEachColumnDef(node) {
		if !isCharType(columnTypeName(tc.col)) {
			continue
		}

		operation := "ADD COLUMN with CHAR type"
		if isCreate {
			operation = "CREATE TABLE with CHAR column"
		}

		violations = append(violations, Violation{
			Operation: operation,
			Problem: fmt.Sprintf(
				"Column '%s' uses CHAR which is fixed-length and padded with spaces. "+
					"This wastes storage and can cause subtle bugs with string comparisons. "+
					"This is a best practice warning (no locking impact).",
				tc.col.Colname),
			Solution: charTypeSolution(isCreate, tc.table, tc.col.Colname),
		})
	}
	return violations
}

func charTypeSolution(isCreate bool, table, column string) string {
	if isCreate {
		return fmt.Sprintf(`Use TEXT or VARCHAR instead of CHAR:

1. For variable-length strings (most cases):
   CREATE TABLE %[1]s (
       %[2]s TEXT
   );

2. If you need a length constraint:
   CREATE TABLE %[1]s (
       %[2]s VARCHAR(<n>)
   );
   -- Or use TEXT with a CHECK constraint:
   CREATE TABLE %[1]s (
       %[2]s TEXT CHECK (length(%[2]s) <= <n>)
   );

CHAR is only appropriate for truly fixed-length codes (e.g., ISO country codes).
If this is intentional, use a safety-assured block:
   -- safety-assured:start
   CREATE TABLE %[1]s (
       %[2]s CHAR(<n>)
   );
   -- safety-assured:end`,
			table, column)
	}
	return fmt.Sprintf(`Use TEXT or VARCHAR instead of CHAR:

1. For variable-length strings (most cases):
   ALTER TABLE %[1]s ADD COLUMN %[2]s TEXT;

2. If you need a length constraint:
   ALTER TABLE %[1]s ADD COLUMN %[2]s VARCHAR(<n>);
   -- Or use TEXT with a CHECK constraint:
   ALTER TABLE %[1]s ADD COLUMN %[2]s TEXT CHECK (length(%[2]s) <= <n>);

CHAR is only appropriate for truly fixed-length codes (e.g., ISO country codes).
If this is intentional, use a safety-assured block:
   -- safety-assured:start
   ALTER TABLE %[1]s ADD COLUMN %[2]s CHAR(<n>);
   -- safety-assured:end`,
		table, column)
}

// TimestampTypeCheck flags TIMESTAMP without time zone columns in both
// CREATE TABLE and ALTER TABLE ADD COLUMN, recommending TIMESTAMPTZ.
// Best practice warning, no locking impact.
type TimestampTypeCheck struct{}

func (TimestampTypeCheck) Name() string { return "TimestampTypeCheck" }

func (TimestampTypeCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	isCreate := node.GetCreateStmt() != nil

	var violations []Violation
	for _, tc := range forEachColumnDef(node) {
		if !isTimestampWithoutTZ(columnTypeName(tc.col)) {
			continue
		}

		operation := "ADD COLUMN with TIMESTAMP"
		if isCreate {
			operation = "CREATE TABLE with TIMESTAMP"
		}

		example := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TIMESTAMPTZ;", tc.table, tc.col.Colname)
		escape := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s TIMESTAMP;", tc.table, tc.col.Colname)
		if isCreate {
			example = fmt.Sprintf("CREATE TABLE %s (\n       %s TIMESTAMPTZ\n   );", tc.table, tc.col.Colname)
			escape = fmt.Sprintf("CREATE TABLE %s (\n       %s TIMESTAMP\n   );", tc.table, tc.col.Colname)
		}

		violations = append(violations, Violation{
			Operation: operation,
			Problem: fmt.Sprintf(
				"Column '%s' uses TIMESTAMP without time zone. "+
					"This stores values without timezone context, which can cause issues in "+
					"multi-timezone applications, during DST transitions, and makes it difficult "+
					"to determine the actual point in time. "+
					"This is a best practice warning (no locking impact).",
				tc.col.Colname),
			Solution: fmt.Sprintf(`Use TIMESTAMPTZ instead of TIMESTAMP:

1. Replace TIMESTAMP with TIMESTAMPTZ:
   %s

TIMESTAMPTZ stores values in UTC internally and converts on input/output based
on the session's timezone setting, providing consistent behavior across timezones.

2. If you intentionally need timezone-naive timestamps, use a safety-assured block:
   -- safety-assured:start
   %s
   -- safety-assured:end`,
				example, escape),
		})
	}
	return violations
}

// AddJsonColumnCheck flags JSON (not JSONB) columns in both CREATE
// TABLE and ALTER TABLE ADD COLUMN. JSON has no equality operator, so
// DISTINCT, GROUP BY, and comparisons on the column fail, and it cannot
// be indexed with GIN.
type AddJsonColumnCheck struct{}

func (AddJsonColumnCheck) Name() string { return "AddJsonColumnCheck" }

func (AddJsonColumnCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	isCreate := node.GetCreateStmt() != nil

	var violations []Violation
	for _, tc := range forEachColumnDef(node) {
		if !isJSONType(columnTypeName(tc.col)) {
			continue
		}

		operation := "ADD COLUMN with JSON type"
		if isCreate {
			operation = "CREATE TABLE with JSON column"
		}

		violations = append(violations, Violation{
			Operation: operation,
			Problem: fmt.Sprintf(
				"Column '%s' uses JSON instead of JSONB. JSON has no equality operator, so queries using "+
					"DISTINCT, GROUP BY, or comparisons on this column will fail with an error. JSON also "+
					"cannot be indexed with GIN and is re-parsed on every access.",
				tc.col.Colname),
			Solution: fmt.Sprintf(`Use JSONB instead of JSON:

1. JSONB supports equality, GIN indexing, and containment operators:
   ALTER TABLE %[1]s ADD COLUMN %[2]s JSONB;

2. JSON is only preferable when you must preserve key order and duplicate keys
   exactly as received. If that applies here, use a safety-assured block:
   -- safety-assured:start
   ALTER TABLE %[1]s ADD COLUMN %[2]s JSON;
   -- safety-assured:end`,
				tc.table, tc.col.Colname),
		})
	}
	return violations
}
