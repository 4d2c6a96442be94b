package checks

import (
	"fmt"
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v6"

	"github.com/leapstack-labs/pgguard/internal/config"
)

// AddUniqueConstraintCheck flags ALTER TABLE ... ADD UNIQUE, which
// builds the backing index under an ACCESS EXCLUSIVE lock.
// ADD CONSTRAINT ... UNIQUE USING INDEX is the safe pattern and is
// skipped.
type AddUniqueConstraintCheck struct{}

func (AddUniqueConstraintCheck) Name() string { return "AddUniqueConstraintCheck" }

func (AddUniqueConstraintCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	tableName, cmds, ok := alterTableCmds(node)
	if !ok {
		return nil
	}

	var violations []Violation
	for _, cmd := range cmds {
		c := cmdDefAsConstraint(cmd)
		if c == nil || c.Contype != pgquery.ConstrType_CONSTR_UNIQUE {
			continue
		}

		// Non-empty Indexname means USING INDEX, which is the safe pattern.
		if c.Indexname != "" {
			continue
		}

		cols := constraintColumnsStr(c)

		constraintName := c.Conname
		if constraintName == "" {
			constraintName = "<unnamed>"
		}

		suggestedIndexName := c.Conname
		if suggestedIndexName == "" {
			suggestedIndexName = tableName + "_unique_idx"
		}

		suggestedConstraintName := c.Conname
		if suggestedConstraintName == "" {
			suggestedConstraintName = tableName + "_unique_constraint"
		}

		violations = append(violations, Violation{
			Operation: "ADD UNIQUE constraint",
			Problem: fmt.Sprintf(
				"Adding UNIQUE constraint '%s' on table '%s' (%s) via ALTER TABLE acquires an ACCESS EXCLUSIVE lock, "+
					"blocking all reads and writes during index creation. Duration depends on table size.",
				constraintName, tableName, cols),
			Solution: fmt.Sprintf(`Use CREATE UNIQUE INDEX CONCURRENTLY instead:

1. Create the unique index concurrently:
   CREATE UNIQUE INDEX CONCURRENTLY %[1]s ON %[2]s (%[3]s);

2. (Optional) Add constraint using the existing index:
   ALTER TABLE %[2]s ADD CONSTRAINT %[4]s UNIQUE USING INDEX %[1]s;

Benefits:
- Table remains readable and writable during index creation
- No blocking of SELECT, INSERT, UPDATE, or DELETE operations
- Safe for production deployments on large tables

Considerations:
- Cannot run inside a transaction block
  For Diesel migrations: Create metadata.toml with run_in_transaction = false
  For SQLx migrations: Add -- no-transaction directive at the top of the file
- Takes longer than non-concurrent creation
- May fail if duplicate values exist (leaves behind invalid index that should be dropped)`,
				suggestedIndexName, tableName, cols, suggestedConstraintName),
		})
	}
	return violations
}

// AddPrimaryKeyCheck flags ALTER TABLE ... ADD PRIMARY KEY, which
// builds the backing unique index under an ACCESS EXCLUSIVE lock.
// ADD CONSTRAINT ... PRIMARY KEY USING INDEX is the safe pattern and is
// skipped.
type AddPrimaryKeyCheck struct{}

func (AddPrimaryKeyCheck) Name() string { return "AddPrimaryKeyCheck" }

func (AddPrimaryKeyCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	tableName, cmds, ok := alterTableCmds(node)
	if !ok {
		return nil
	}

	var violations []Violation
	for _, cmd := range cmds {
		c := cmdDefAsConstraint(cmd)
		if c == nil || c.Contype != pgquery.ConstrType_CONSTR_PRIMARY {
			continue
		}
		if c.Indexname != "" {
			continue
		}

		cols := constraintColumnsOrPlaceholder(c)

		violations = append(violations, Violation{
			Operation: "ADD PRIMARY KEY",
			Problem: fmt.Sprintf(
				"Adding PRIMARY KEY on table '%s' (%s) via ALTER TABLE builds the backing unique index under an "+
					"ACCESS EXCLUSIVE lock, blocking all reads and writes during index creation. Duration depends on table size.",
				tableName, cols),
			Solution: fmt.Sprintf(`Build the index concurrently, then attach it as the primary key:

1. Create the unique index concurrently:
   CREATE UNIQUE INDEX CONCURRENTLY %[1]s_pkey_idx ON %[1]s (%[2]s);

2. Attach the index as the primary key (fast, no table scan):
   ALTER TABLE %[1]s ADD CONSTRAINT %[1]s_pkey PRIMARY KEY USING INDEX %[1]s_pkey_idx;

Considerations:
- CREATE INDEX CONCURRENTLY cannot run inside a transaction block
  For Diesel migrations: Create metadata.toml with run_in_transaction = false
  For SQLx migrations: Add -- no-transaction directive at the top of the file
- The columns must already be NOT NULL, or the ADD CONSTRAINT step will scan the table`,
				tableName, cols),
		})
	}
	return violations
}

func constraintColumnsOrPlaceholder(c *pgquery.Constraint) string {
	if cols := constraintColumnsStr(c); cols != "" {
		return cols
	}
	return "<columns>"
}

// DropPrimaryKeyCheck flags ALTER TABLE ... DROP CONSTRAINT on a
// primary key. The constraint name is matched against the standard
// "_pkey" suffix Postgres generates, since the AST does not carry the
// constraint type for drops.
type DropPrimaryKeyCheck struct{}

func (DropPrimaryKeyCheck) Name() string { return "DropPrimaryKeyCheck" }

func (DropPrimaryKeyCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	tableName, cmds, ok := alterTableCmds(node)
	if !ok {
		return nil
	}

	var violations []Violation
	for _, cmd := range cmds {
		if cmd.Subtype != pgquery.AlterTableType_AT_DropConstraint {
			continue
		}
		if !strings.HasSuffix(cmd.Name, "_pkey") {
			continue
		}

		violations = append(violations, Violation{
			Operation: "DROP PRIMARY KEY",
			Problem: fmt.Sprintf(
				"Dropping primary key constraint '%s' on table '%s' acquires an ACCESS EXCLUSIVE lock and removes "+
					"the backing unique index. Replication, foreign keys, and ORMs relying on the primary key will break.",
				cmd.Name, tableName),
			Solution: fmt.Sprintf(`Before dropping a primary key in production:

1. Verify no foreign keys reference this primary key:
   SELECT conname FROM pg_constraint WHERE confrelid = '%[1]s'::regclass;

2. Verify logical replication does not depend on it (REPLICA IDENTITY).

3. If a replacement key is planned, create its unique index concurrently first:
   CREATE UNIQUE INDEX CONCURRENTLY %[1]s_new_pkey_idx ON %[1]s (<columns>);

If this drop is intentional, wrap it in a safety-assured block:
   -- safety-assured:start
   ALTER TABLE %[1]s DROP CONSTRAINT %[2]s;
   -- safety-assured:end`,
				tableName, cmd.Name),
		})
	}
	return violations
}

// UnnamedConstraintCheck flags ALTER TABLE ADD constraints without an
// explicit name. Postgres auto-generates a name, which varies between
// databases and complicates later migrations.
type UnnamedConstraintCheck struct{}

func (UnnamedConstraintCheck) Name() string { return "UnnamedConstraintCheck" }

func (UnnamedConstraintCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	tableName, cmds, ok := alterTableCmds(node)
	if !ok {
		return nil
	}

	var violations []Violation
	for _, cmd := range cmds {
		c := cmdDefAsConstraint(cmd)
		if c == nil || c.Conname != "" {
			continue
		}

		var constraintType, columnsDesc, suggestedName string
		switch c.Contype {
		case pgquery.ConstrType_CONSTR_UNIQUE:
			constraintType = "UNIQUE"
			columnsDesc = constraintColumnsStr(c)
			suggestedName = "column_key"
		case pgquery.ConstrType_CONSTR_FOREIGN:
			// FK columns live in FkAttrs, not Keys.
			fkCols := strings.Join(stringListValues(c.FkAttrs), ", ")
			refCols := strings.Join(stringListValues(c.PkAttrs), ", ")
			constraintType = "FOREIGN KEY"
			columnsDesc = fmt.Sprintf("(%s) REFERENCES %s(%s)", fkCols, rangeVarName(c.Pktable), refCols)
			suggestedName = "column_fkey"
		case pgquery.ConstrType_CONSTR_CHECK:
			constraintType = "CHECK"
			columnsDesc = "(...)"
			suggestedName = "column_check"
		default:
			continue
		}

		violations = append(violations, Violation{
			Operation: "CONSTRAINT without name",
			Problem: fmt.Sprintf(
				"Adding unnamed %s constraint on table '%s' will receive an auto-generated name from Postgres. "+
					"This makes future migrations difficult, as the generated name varies between databases and requires querying "+
					"the database to find the constraint name before modifying or dropping it.",
				constraintType, tableName),
			Solution: fmt.Sprintf(`Always name constraints explicitly using the CONSTRAINT keyword:

Instead of:
   ALTER TABLE %[1]s ADD %[2]s %[3]s;

Use:
   ALTER TABLE %[1]s ADD CONSTRAINT %[1]s_%[4]s %[2]s %[3]s;

Named constraints make future migrations predictable and maintainable:
   -- Easy to reference in later migrations
   ALTER TABLE %[1]s DROP CONSTRAINT %[1]s_%[4]s;

Note: Choose descriptive names that indicate the table, columns, and constraint type.
Common patterns:
  - UNIQUE: %[1]s_<column>_key or %[1]s_<column1>_<column2>_key
  - FOREIGN KEY: %[1]s_<column>_fkey
  - CHECK: %[1]s_<column>_check or %[1]s_<description>_check`,
				tableName, constraintType, columnsDesc, suggestedName),
		})
	}
	return violations
}

// ShortIntegerPrimaryKeyCheck flags primary key columns typed SMALLINT,
// INT, SERIAL, or SMALLSERIAL, which risk ID exhaustion. Covers inline
// PRIMARY KEY on column definitions and separate PRIMARY KEY constraints
// that reference columns defined in the same statement.
type ShortIntegerPrimaryKeyCheck struct{}

func (ShortIntegerPrimaryKeyCheck) Name() string { return "ShortIntegerPrimaryKeyCheck" }

func (ShortIntegerPrimaryKeyCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	var violations []Violation

	// Inline PRIMARY KEY on column definitions, in both CREATE TABLE
	// and ALTER TABLE ADD COLUMN contexts.
	for _, tc := range forEachColumnDef(node) {
		if !columnHasConstraint(tc.col, pgquery.ConstrType_CONSTR_PRIMARY) {
			continue
		}
		if v := shortIntegerPKViolation(tc.table, tc.col); v != nil {
			violations = append(violations, *v)
		}
	}

	// Separate PRIMARY KEY constraints referencing columns by name.
	if create := node.GetCreateStmt(); create != nil {
		tableName := rangeVarName(create.Relation)
		var colDefs []*pgquery.ColumnDef
		for _, n := range create.TableElts {
			if col := n.GetColumnDef(); col != nil {
				colDefs = append(colDefs, col)
			}
		}
		for _, n := range create.TableElts {
			if c := n.GetConstraint(); c != nil && c.Contype == pgquery.ConstrType_CONSTR_PRIMARY {
				violations = append(violations, checkPKKeyColumns(tableName, c, colDefs)...)
			}
		}
	} else if tableName, cmds, ok := alterTableCmds(node); ok {
		var colDefs []*pgquery.ColumnDef
		for _, cmd := range cmds {
			if col := cmdDefAsColumnDef(cmd); col != nil {
				colDefs = append(colDefs, col)
			}
		}
		if len(colDefs) > 0 {
			for _, cmd := range cmds {
				if c := cmdDefAsConstraint(cmd); c != nil && c.Contype == pgquery.ConstrType_CONSTR_PRIMARY {
					violations = append(violations, checkPKKeyColumns(tableName, c, colDefs)...)
				}
			}
		}
	}

	return violations
}

// checkPKKeyColumns looks up each constraint key column by name among
// the column definitions in the same statement.
func checkPKKeyColumns(table string, c *pgquery.Constraint, colDefs []*pgquery.ColumnDef) []Violation {
	var violations []Violation
	for _, name := range stringListValues(c.Keys) {
		for _, col := range colDefs {
			if col.Colname != name {
				continue
			}
			if v := shortIntegerPKViolation(table, col); v != nil {
				violations = append(violations, *v)
			}
		}
	}
	return violations
}

func shortIntegerPKViolation(tableName string, col *pgquery.ColumnDef) *Violation {
	typeName := columnTypeName(col)
	if !isShortInteger(typeName) {
		return nil
	}

	var displayName, limit string
	switch typeName {
	case "int2", "smallserial":
		displayName, limit = "SMALLINT", "~32,767"
	case "int4", "serial":
		displayName, limit = "INT", "~2.1 billion"
	default:
		return nil
	}

	return &Violation{
		Operation: "PRIMARY KEY with short integer type",
		Problem: fmt.Sprintf(
			"Using %[1]s for primary key column '%[2]s' on table '%[3]s' risks ID exhaustion at %[4]s records. "+
				"%[1]s can be quickly exhausted in production applications. "+
				"Changing the type later requires an ALTER COLUMN TYPE operation that triggers a full table rewrite with an "+
				"ACCESS EXCLUSIVE lock, blocking all operations. Duration depends on table size.",
			displayName, col.Colname, tableName, limit),
		Solution: fmt.Sprintf(`Use BIGINT for primary keys to avoid ID exhaustion:

Instead of:
   CREATE TABLE %[1]s (%[2]s %[3]s PRIMARY KEY);

Use:
   CREATE TABLE %[1]s (%[2]s BIGINT PRIMARY KEY);

BIGINT provides 8 bytes (range: -9.2 quintillion to 9.2 quintillion), which is effectively unlimited
for auto-incrementing IDs. The minimal storage overhead (4 extra bytes per row) is negligible.

If using SERIAL/SMALLSERIAL, use BIGSERIAL instead:
   %[2]s BIGSERIAL PRIMARY KEY

Note: If this is an intentionally small table (e.g., lookup table with <100 entries),
use 'safety-assured' to bypass this check.`,
			tableName, col.Colname, displayName),
	}
}
