package checks

import (
	"fmt"

	pgquery "github.com/pganalyze/pg_query_go/v6"

	"github.com/leapstack-labs/pgguard/internal/config"
)

// AddColumnCheck flags ALTER TABLE ADD COLUMN with a DEFAULT value.
//
// On PostgreSQL versions before 11, adding a column with a DEFAULT
// requires a full table rewrite to backfill existing rows, holding an
// ACCESS EXCLUSIVE lock for the duration. PostgreSQL 11+ stores constant
// defaults in the catalog, so the check is skipped when the configured
// version is 11 or newer.
type AddColumnCheck struct{}

func (AddColumnCheck) Name() string { return "AddColumnCheck" }

func (AddColumnCheck) Check(node *pgquery.Node, cfg *config.Config) []Violation {
	if cfg.PostgresVersion >= 11 {
		return nil
	}

	tableName, cmds, ok := alterTableCmds(node)
	if !ok {
		return nil
	}

	var violations []Violation
	for _, cmd := range cmds {
		col := cmdDefAsColumnDef(cmd)
		if col == nil || !columnHasConstraint(col, pgquery.ConstrType_CONSTR_DEFAULT) {
			continue
		}

		dataType := columnTypeName(col)
		violations = append(violations, Violation{
			Operation: "ADD COLUMN with DEFAULT",
			Problem: fmt.Sprintf(
				"Adding column '%s' with DEFAULT on table '%s' requires a full table rewrite on PostgreSQL < 11, "+
					"which acquires an ACCESS EXCLUSIVE lock and blocks all operations. Duration depends on table size.",
				col.Colname, tableName),
			Solution: fmt.Sprintf(`1. Add the column without a default:
   ALTER TABLE %[1]s ADD COLUMN %[2]s %[3]s;

2. Backfill data in batches (outside migration):
   UPDATE %[1]s SET %[2]s = <value> WHERE %[2]s IS NULL;

3. Add default for new rows only:
   ALTER TABLE %[1]s ALTER COLUMN %[2]s SET DEFAULT <value>;

Note: For PostgreSQL 11+, this is safe if the default is a constant value.`,
				tableName, col.Colname, dataType),
		})
	}
	return violations
}

// AddSerialColumnCheck flags ALTER TABLE ADD COLUMN with SERIAL,
// SMALLSERIAL, or BIGSERIAL types, which rewrite the table to populate
// sequence values for existing rows.
type AddSerialColumnCheck struct{}

func (AddSerialColumnCheck) Name() string { return "AddSerialColumnCheck" }

func (AddSerialColumnCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	tableName, cmds, ok := alterTableCmds(node)
	if !ok {
		return nil
	}

	var violations []Violation
	for _, cmd := range cmds {
		col := cmdDefAsColumnDef(cmd)
		if col == nil {
			continue
		}
		typeName := columnTypeName(col)
		if !isSerialType(typeName) {
			continue
		}

		violations = append(violations, Violation{
			Operation: "ADD COLUMN with SERIAL",
			Problem: fmt.Sprintf(
				"Adding column '%s' with SERIAL type on table '%s' requires a full table rewrite to populate sequence values for existing rows, "+
					"which acquires an ACCESS EXCLUSIVE lock and blocks all operations. Duration depends on table size and number of indexes.",
				col.Colname, tableName),
			Solution: fmt.Sprintf(`1. Create a sequence:
   CREATE SEQUENCE %[1]s_%[2]s_seq;

2. Add the column WITHOUT default (fast, no rewrite):
   ALTER TABLE %[1]s ADD COLUMN %[2]s %[3]s;

3. Backfill existing rows in batches (outside migration):
   UPDATE %[1]s SET %[2]s = nextval('%[1]s_%[2]s_seq') WHERE %[2]s IS NULL;

4. Set default for future inserts only:
   ALTER TABLE %[1]s ALTER COLUMN %[2]s SET DEFAULT nextval('%[1]s_%[2]s_seq');

5. Set NOT NULL if needed (Postgres 11+: safe if all values present):
   ALTER TABLE %[1]s ALTER COLUMN %[2]s SET NOT NULL;

6. Set sequence ownership:
   ALTER SEQUENCE %[1]s_%[2]s_seq OWNED BY %[1]s.%[2]s;`,
				tableName, col.Colname, typeName),
		})
	}
	return violations
}

// AddNotNullCheck flags ALTER TABLE ... ALTER COLUMN ... SET NOT NULL,
// which scans the whole table under an ACCESS EXCLUSIVE lock to verify
// no NULL values exist.
type AddNotNullCheck struct{}

func (AddNotNullCheck) Name() string { return "AddNotNullCheck" }

func (AddNotNullCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	tableName, cmds, ok := alterTableCmds(node)
	if !ok {
		return nil
	}

	var violations []Violation
	for _, cmd := range cmds {
		if cmd.Subtype != pgquery.AlterTableType_AT_SetNotNull {
			continue
		}

		violations = append(violations, Violation{
			Operation: "SET NOT NULL",
			Problem: fmt.Sprintf(
				"Setting column '%s' NOT NULL on table '%s' acquires an ACCESS EXCLUSIVE lock and scans the entire table "+
					"to verify no NULL values exist, blocking all operations. Duration depends on table size.",
				cmd.Name, tableName),
			Solution: fmt.Sprintf(`Use a CHECK constraint to avoid the full-table scan under lock:

1. Add a CHECK constraint without validating existing rows (instant):
   ALTER TABLE %[1]s ADD CONSTRAINT %[1]s_%[2]s_not_null CHECK (%[2]s IS NOT NULL) NOT VALID;

2. Validate the constraint (takes a SHARE UPDATE EXCLUSIVE lock, allows writes):
   ALTER TABLE %[1]s VALIDATE CONSTRAINT %[1]s_%[2]s_not_null;

3. On PostgreSQL 12+, SET NOT NULL skips the scan when a validated CHECK constraint proves it:
   ALTER TABLE %[1]s ALTER COLUMN %[2]s SET NOT NULL;

4. Drop the now-redundant CHECK constraint:
   ALTER TABLE %[1]s DROP CONSTRAINT %[1]s_%[2]s_not_null;`,
				tableName, cmd.Name),
		})
	}
	return violations
}

// AlterColumnTypeCheck flags ALTER COLUMN ... TYPE changes, which
// typically rewrite the table under an ACCESS EXCLUSIVE lock.
type AlterColumnTypeCheck struct{}

func (AlterColumnTypeCheck) Name() string { return "AlterColumnTypeCheck" }

func (AlterColumnTypeCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	tableName, cmds, ok := alterTableCmds(node)
	if !ok {
		return nil
	}

	var violations []Violation
	for _, cmd := range cmds {
		if cmd.Subtype != pgquery.AlterTableType_AT_AlterColumnType {
			continue
		}

		// The new type is stored in cmd.Def as a ColumnDef.
		newType := columnTypeName(cmdDefAsColumnDef(cmd))

		violations = append(violations, Violation{
			Operation: "ALTER COLUMN TYPE",
			Problem: fmt.Sprintf(
				"Changing column '%s' type to '%s' on table '%s' typically requires an ACCESS EXCLUSIVE lock and "+
					"may trigger a full table rewrite, blocking all operations. Duration depends on table size and the specific type change.",
				cmd.Name, newType, tableName),
			Solution: fmt.Sprintf(`For safer type changes, consider a multi-step approach:

1. Add a new column with the desired type:
   ALTER TABLE %[1]s ADD COLUMN %[2]s_new %[3]s;

2. Backfill data in batches (outside migration):
   UPDATE %[1]s SET %[2]s_new = %[2]s::%[3]s;

3. Deploy application code to use the new column.

4. Drop the old column in a later migration:
   ALTER TABLE %[1]s DROP COLUMN %[2]s;

5. Rename the new column:
   ALTER TABLE %[1]s RENAME COLUMN %[2]s_new TO %[2]s;

Note: Some type changes are safe:
- VARCHAR(n) to VARCHAR(m) where m > n (Postgres 9.2+)
- VARCHAR to TEXT
- Numeric precision increases

Always test on a production-sized dataset to verify the impact.`,
				tableName, cmd.Name, newType),
		})
	}
	return violations
}

// GeneratedColumnCheck flags ALTER TABLE ADD COLUMN with
// GENERATED ALWAYS AS ... STORED, which computes and stores the
// expression for every existing row under an ACCESS EXCLUSIVE lock.
// CREATE TABLE with a generated column is safe because the table is
// empty.
type GeneratedColumnCheck struct{}

func (GeneratedColumnCheck) Name() string { return "GeneratedColumnCheck" }

func (GeneratedColumnCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	tableName, cmds, ok := alterTableCmds(node)
	if !ok {
		return nil
	}

	var violations []Violation
	for _, cmd := range cmds {
		col := cmdDefAsColumnDef(cmd)
		if col == nil || !columnHasConstraint(col, pgquery.ConstrType_CONSTR_GENERATED) {
			continue
		}

		dataType := columnTypeName(col)
		violations = append(violations, Violation{
			Operation: "ADD COLUMN with GENERATED STORED",
			Problem: fmt.Sprintf(
				"Adding column '%s' with GENERATED ALWAYS AS ... STORED on table '%s' "+
					"triggers a full table rewrite because PostgreSQL must compute and store the expression "+
					"value for every existing row. This acquires an ACCESS EXCLUSIVE lock and blocks all operations. "+
					"Duration depends on table size.",
				col.Colname, tableName),
			Solution: fmt.Sprintf(`1. Add a regular nullable column instead:
   ALTER TABLE %[1]s ADD COLUMN %[2]s %[3]s;

2. Backfill values in batches (outside migration):
   UPDATE %[1]s SET %[2]s = <expression> WHERE %[2]s IS NULL;

3. Optionally add NOT NULL constraint:
   ALTER TABLE %[1]s ALTER COLUMN %[2]s SET NOT NULL;

4. Use a trigger to compute values for new rows:
   CREATE FUNCTION compute_%[2]s() RETURNS TRIGGER AS $$
   BEGIN
     NEW.%[2]s := <expression>;
     RETURN NEW;
   END;
   $$ LANGUAGE plpgsql;

   CREATE TRIGGER trg_%[2]s
   BEFORE INSERT OR UPDATE ON %[1]s
   FOR EACH ROW EXECUTE FUNCTION compute_%[2]s();

5. If the table rewrite is acceptable (e.g., small table or maintenance window),
   use a safety-assured block:
   -- safety-assured:start
   ALTER TABLE %[1]s ADD COLUMN %[2]s %[3]s GENERATED ALWAYS AS (<expression>) STORED;
   -- safety-assured:end

Note: PostgreSQL does not support VIRTUAL generated columns (only STORED).
For new empty tables, GENERATED STORED columns are acceptable.`,
				tableName, col.Colname, dataType),
		})
	}
	return violations
}

// DropColumnCheck flags ALTER TABLE DROP COLUMN.
type DropColumnCheck struct{}

func (DropColumnCheck) Name() string { return "DropColumnCheck" }

func (DropColumnCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	tableName, cmds, ok := alterTableCmds(node)
	if !ok {
		return nil
	}

	var violations []Violation
	for _, cmd := range cmds {
		if cmd.Subtype != pgquery.AlterTableType_AT_DropColumn {
			continue
		}

		violations = append(violations, Violation{
			Operation: "DROP COLUMN",
			Problem: fmt.Sprintf(
				"Dropping column '%s' from table '%s' requires an exclusive lock and rewrites the table. "+
					"This can take hours on large tables and blocks all reads/writes during the operation.",
				cmd.Name, tableName),
			Solution: fmt.Sprintf(`1. Mark the column as unused in your application code first.

2. Deploy the application without the column references.

3. (Optional) Set column to NULL to reclaim space:
   ALTER TABLE %[1]s ALTER COLUMN %[2]s DROP NOT NULL;
   UPDATE %[1]s SET %[2]s = NULL;

4. Drop the column in a later migration after confirming it's unused:
   ALTER TABLE %[1]s DROP COLUMN %[2]s%[3]s;

Note: PostgreSQL doesn't support DROP COLUMN CONCURRENTLY. The rewrite is unavoidable but staging the removal reduces risk.`,
				tableName, cmd.Name, ifExistsClause(cmd.MissingOk)),
		})
	}
	return violations
}

// RenameColumnCheck flags ALTER TABLE ... RENAME COLUMN, which breaks
// any application code still referencing the old name.
type RenameColumnCheck struct{}

func (RenameColumnCheck) Name() string { return "RenameColumnCheck" }

func (RenameColumnCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	rename := node.GetRenameStmt()
	if rename == nil || rename.RenameType != pgquery.ObjectType_OBJECT_COLUMN {
		return nil
	}

	tableName := rangeVarName(rename.Relation)
	return []Violation{{
		Operation: "RENAME COLUMN",
		Problem: fmt.Sprintf(
			"Renaming column '%s' to '%s' on table '%s' breaks any application code still referencing the old name. "+
				"During a rolling deploy, old application instances will fail until the new code is fully deployed.",
			rename.Subname, rename.Newname, tableName),
		Solution: fmt.Sprintf(`Use an expand-and-contract migration instead of renaming in place:

1. Add a new column with the desired name:
   ALTER TABLE %[1]s ADD COLUMN %[3]s <type>;

2. Backfill data and keep both columns in sync (trigger or dual writes):
   UPDATE %[1]s SET %[3]s = %[2]s WHERE %[3]s IS NULL;

3. Deploy application code that reads and writes the new column.

4. Drop the old column in a later migration:
   ALTER TABLE %[1]s DROP COLUMN %[2]s;

If all application code has already been updated and downtime is acceptable,
use a safety-assured block:
   -- safety-assured:start
   ALTER TABLE %[1]s RENAME COLUMN %[2]s TO %[3]s;
   -- safety-assured:end`,
			tableName, rename.Subname, rename.Newname),
	}}
}
