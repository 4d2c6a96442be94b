package checks

import (
	"fmt"

	pgquery "github.com/pganalyze/pg_query_go/v6"

	"github.com/leapstack-labs/pgguard/internal/config"
)

// DropTableCheck flags DROP TABLE statements.
type DropTableCheck struct{}

func (DropTableCheck) Name() string { return "DropTableCheck" }

func (DropTableCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	drop := node.GetDropStmt()
	if drop == nil || drop.RemoveType != pgquery.ObjectType_OBJECT_TABLE {
		return nil
	}

	ifExists := ifExistsClause(drop.MissingOk)

	var modifiers string
	switch drop.Behavior {
	case pgquery.DropBehavior_DROP_CASCADE:
		modifiers = " CASCADE"
	case pgquery.DropBehavior_DROP_RESTRICT:
		modifiers = " RESTRICT"
	}

	var violations []Violation
	for _, name := range dropObjectNames(drop.Objects) {
		violations = append(violations, Violation{
			Operation: "DROP TABLE",
			Problem: fmt.Sprintf(
				"Dropping table '%s' permanently deletes all data and acquires an ACCESS EXCLUSIVE lock. "+
					"This operation cannot be undone after the transaction commits.",
				name),
			Solution: fmt.Sprintf(`Before dropping a table in production:

1. Verify this is intentional and the table is no longer in use
2. Ensure a backup exists or data has been migrated
3. Check for foreign key dependencies that may block the drop

If this drop is intentional, wrap it in a safety-assured block:
   -- safety-assured:start
   DROP TABLE%[1]s %[2]s%[3]s;
   -- safety-assured:end

Note: DROP TABLE acquires ACCESS EXCLUSIVE lock, blocking all operations until complete.`,
				ifExists, name, modifiers),
		})
	}
	return violations
}

// TruncateTableCheck flags TRUNCATE statements, which delete all rows
// instantly and irreversibly under an ACCESS EXCLUSIVE lock.
type TruncateTableCheck struct{}

func (TruncateTableCheck) Name() string { return "TruncateTableCheck" }

func (TruncateTableCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	trunc := node.GetTruncateStmt()
	if trunc == nil {
		return nil
	}

	var violations []Violation
	for _, rel := range trunc.Relations {
		rv := rel.GetRangeVar()
		if rv == nil {
			continue
		}
		tableName := rangeVarName(rv)

		violations = append(violations, Violation{
			Operation: "TRUNCATE TABLE",
			Problem: fmt.Sprintf(
				"Truncating table '%s' deletes all rows instantly and irreversibly, acquiring an ACCESS EXCLUSIVE lock. "+
					"Unlike DELETE, TRUNCATE cannot be filtered, fires no row-level triggers, and reclaims storage immediately.",
				tableName),
			Solution: fmt.Sprintf(`Before truncating a table in production:

1. Verify this is intentional and the data is no longer needed
2. Ensure a backup exists:
   pg_dump -t %[1]s <database> > %[1]s_backup.sql

3. Consider a filtered DELETE in batches if only some rows should go:
   DELETE FROM %[1]s WHERE <condition> LIMIT 10000;

If this truncate is intentional (e.g., ephemeral or staging data), wrap it in a safety-assured block:
   -- safety-assured:start
   TRUNCATE TABLE %[1]s;
   -- safety-assured:end`,
				tableName),
		})
	}
	return violations
}

// RenameTableCheck flags ALTER TABLE ... RENAME TO, which breaks any
// application code still referencing the old name.
type RenameTableCheck struct{}

func (RenameTableCheck) Name() string { return "RenameTableCheck" }

func (RenameTableCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	rename := node.GetRenameStmt()
	if rename == nil || rename.RenameType != pgquery.ObjectType_OBJECT_TABLE {
		return nil
	}

	tableName := rangeVarName(rename.Relation)
	return []Violation{{
		Operation: "RENAME TABLE",
		Problem: fmt.Sprintf(
			"Renaming table '%s' to '%s' breaks any application code still referencing the old name. "+
				"During a rolling deploy, old application instances will fail until the new code is fully deployed.",
			tableName, rename.Newname),
		Solution: fmt.Sprintf(`Use a view to keep the old name working during the transition:

1. Rename the table and create a compatibility view in the same transaction:
   ALTER TABLE %[1]s RENAME TO %[2]s;
   CREATE VIEW %[1]s AS SELECT * FROM %[2]s;

2. Deploy application code that references the new name.

3. Drop the compatibility view in a later migration:
   DROP VIEW %[1]s;

If all application code has already been updated and downtime is acceptable,
use a safety-assured block:
   -- safety-assured:start
   ALTER TABLE %[1]s RENAME TO %[2]s;
   -- safety-assured:end`,
			tableName, rename.Newname),
	}}
}

// DropDatabaseCheck flags DROP DATABASE statements.
type DropDatabaseCheck struct{}

func (DropDatabaseCheck) Name() string { return "DropDatabaseCheck" }

func (DropDatabaseCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	dropDB := node.GetDropdbStmt()
	if dropDB == nil {
		return nil
	}

	ifExists := ifExistsClause(dropDB.MissingOk)

	return []Violation{{
		Operation: "DROP DATABASE",
		Problem: fmt.Sprintf(
			"Dropping database '%s' permanently deletes the entire database "+
				"including all tables, data, and objects. This operation requires "+
				"exclusive access (all connections must be terminated) and cannot "+
				"run inside a transaction block.",
			dropDB.Dbname),
		Solution: fmt.Sprintf(`DROP DATABASE should almost never appear in application migrations.

If you need to drop a database:

1. Verify this is intentional and coordinate with your DBA:
   -- Confirm database '%[1]s' is scheduled for removal

2. Create a complete backup before proceeding:
   pg_dump -Fc %[1]s > %[1]s_backup.dump

3. Terminate all active connections to the database:
   SELECT pg_terminate_backend(pid)
   FROM pg_stat_activity
   WHERE datname = '%[1]s' AND pid <> pg_backend_pid();

4. Drop the database (outside of application migrations):
   DROP DATABASE%[2]s %[1]s;

If this is intentional (e.g., test cleanup), use a safety-assured block:
   -- safety-assured:start
   DROP DATABASE%[2]s %[1]s;
   -- safety-assured:end

Note: Postgres 13+ supports WITH (FORCE) to auto-terminate connections, but this is even more dangerous.`,
			dropDB.Dbname, ifExists),
	}}
}

// CreateExtensionCheck flags CREATE EXTENSION statements. Extensions
// require superuser privileges in most managed environments and belong
// in infrastructure provisioning, not application migrations.
type CreateExtensionCheck struct{}

func (CreateExtensionCheck) Name() string { return "CreateExtensionCheck" }

func (CreateExtensionCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	ext := node.GetCreateExtensionStmt()
	if ext == nil {
		return nil
	}

	return []Violation{{
		Operation: "CREATE EXTENSION",
		Problem: fmt.Sprintf(
			"Creating extension '%s' usually requires superuser privileges, which application migration roles "+
				"should not hold. The migration will fail on environments where the role lacks the privilege, and "+
				"some extensions take locks or load shared libraries on installation.",
			ext.Extname),
		Solution: fmt.Sprintf(`Provision extensions through infrastructure automation or a privileged setup step:

1. Install the extension once per database, outside application migrations:
   CREATE EXTENSION IF NOT EXISTS %[1]s;

2. In the migration, only verify it is present:
   SELECT 1 FROM pg_extension WHERE extname = '%[1]s';

If your migration role is allowed to manage extensions in every environment,
use a safety-assured block:
   -- safety-assured:start
   CREATE EXTENSION IF NOT EXISTS %[1]s;
   -- safety-assured:end`,
			ext.Extname),
	}}
}
