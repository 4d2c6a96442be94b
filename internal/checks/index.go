package checks

import (
	"fmt"
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v6"

	"github.com/leapstack-labs/pgguard/internal/config"
)

// AddIndexCheck flags CREATE INDEX without CONCURRENTLY, which takes a
// SHARE lock on the table and blocks all writes for the duration of the
// build.
type AddIndexCheck struct{}

func (AddIndexCheck) Name() string { return "AddIndexCheck" }

func (AddIndexCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	idx := node.GetIndexStmt()
	if idx == nil || idx.Concurrent {
		return nil
	}

	tableName := rangeVarName(idx.Relation)
	indexName := idx.Idxname
	if indexName == "" {
		indexName = "<unnamed>"
	}
	unique := uniquePrefix(idx.Unique)
	cols := strings.Join(indexColumnNames(idx), ", ")

	return []Violation{{
		Operation: "CREATE INDEX without CONCURRENTLY",
		Problem: fmt.Sprintf(
			"Creating %sindex '%s' on table '%s' without CONCURRENTLY acquires a SHARE lock, blocking all "+
				"writes (INSERT, UPDATE, DELETE) on the table until the index build completes. Duration depends on table size.",
			strings.ToLower(unique), indexName, tableName),
		Solution: fmt.Sprintf(`Use CONCURRENTLY to build the index without blocking writes:
   CREATE %[1]sINDEX CONCURRENTLY %[2]s ON %[3]s (%[4]s);

Note: CONCURRENTLY cannot be run inside a transaction block.

For Diesel migrations:
1. Create metadata.toml in your migration directory:
   run_in_transaction = false

2. Use CREATE INDEX CONCURRENTLY in your up.sql:
   CREATE %[1]sINDEX CONCURRENTLY %[2]s ON %[3]s (%[4]s);

For SQLx migrations:
1. Add the no-transaction directive at the top of your migration file:
   -- no-transaction

2. Use CREATE INDEX CONCURRENTLY:
   CREATE %[1]sINDEX CONCURRENTLY %[2]s ON %[3]s (%[4]s);

Considerations:
- Takes longer to complete than a regular index build
- Allows concurrent INSERT, UPDATE, DELETE operations
- If it fails, the index is left "invalid" and should be dropped and recreated
- Cannot be rolled back (no transaction support)`,
			unique, indexName, tableName, cols),
	}}
}

// indexColumnNames extracts column names from index params, using
// "<expr>" for expression elements.
func indexColumnNames(idx *pgquery.IndexStmt) []string {
	var names []string
	for _, n := range idx.IndexParams {
		elem := n.GetIndexElem()
		if elem == nil {
			continue
		}
		if elem.Name == "" {
			names = append(names, "<expr>")
		} else {
			names = append(names, elem.Name)
		}
	}
	return names
}

// DropIndexCheck flags DROP INDEX without CONCURRENTLY.
type DropIndexCheck struct{}

func (DropIndexCheck) Name() string { return "DropIndexCheck" }

func (DropIndexCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	drop := node.GetDropStmt()
	if drop == nil || drop.RemoveType != pgquery.ObjectType_OBJECT_INDEX {
		return nil
	}

	// DROP INDEX CONCURRENTLY is safe, skip it.
	if drop.Concurrent {
		return nil
	}

	ifExists := ifExistsClause(drop.MissingOk)

	var violations []Violation
	for _, name := range dropObjectNames(drop.Objects) {
		violations = append(violations, Violation{
			Operation: "DROP INDEX without CONCURRENTLY",
			Problem: fmt.Sprintf(
				"Dropping index '%s'%s without CONCURRENTLY acquires an ACCESS EXCLUSIVE lock, blocking all "+
					"queries (SELECT, INSERT, UPDATE, DELETE) on the table until complete. Duration depends on system load and concurrent transactions.",
				name, ifExists),
			Solution: fmt.Sprintf(`Use CONCURRENTLY to drop the index without blocking queries:
   DROP INDEX CONCURRENTLY%[1]s %[2]s;

Note: CONCURRENTLY requires PostgreSQL 9.2+ and cannot be run inside a transaction block.

For Diesel migrations:
1. Create metadata.toml in your migration directory:
   run_in_transaction = false

2. Use DROP INDEX CONCURRENTLY in your up.sql:
   DROP INDEX CONCURRENTLY%[1]s %[2]s;

For SQLx migrations:
1. Add the no-transaction directive at the top of your migration file:
   -- no-transaction

2. Use DROP INDEX CONCURRENTLY:
   DROP INDEX CONCURRENTLY%[1]s %[2]s;

Considerations:
- Takes longer to complete than regular DROP INDEX
- Allows concurrent SELECT, INSERT, UPDATE, DELETE operations
- If it fails, the index may be marked "invalid" and should be dropped again
- Cannot be rolled back (no transaction support)`,
				ifExists, name),
		})
	}
	return violations
}

// ReindexCheck flags REINDEX without CONCURRENTLY. REINDEX SYSTEM does
// not support CONCURRENTLY and is skipped.
type ReindexCheck struct{}

func (ReindexCheck) Name() string { return "ReindexCheck" }

func (ReindexCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	reindex := node.GetReindexStmt()
	if reindex == nil {
		return nil
	}

	var typeName string
	switch reindex.Kind {
	case pgquery.ReindexObjectType_REINDEX_OBJECT_INDEX:
		typeName = "INDEX"
	case pgquery.ReindexObjectType_REINDEX_OBJECT_TABLE:
		typeName = "TABLE"
	case pgquery.ReindexObjectType_REINDEX_OBJECT_SCHEMA:
		typeName = "SCHEMA"
	case pgquery.ReindexObjectType_REINDEX_OBJECT_DATABASE:
		typeName = "DATABASE"
	default:
		// SYSTEM or unknown, skip.
		return nil
	}

	if reindexHasConcurrently(reindex.Params) {
		return nil
	}

	var targetName string
	switch reindex.Kind {
	case pgquery.ReindexObjectType_REINDEX_OBJECT_INDEX,
		pgquery.ReindexObjectType_REINDEX_OBJECT_TABLE:
		if reindex.Relation != nil {
			targetName = reindex.Relation.Relname
		}
	default:
		targetName = reindex.Name
	}

	targetDesc := fmt.Sprintf("%s '%s'", strings.ToLower(typeName), targetName)

	return []Violation{{
		Operation: "REINDEX without CONCURRENTLY",
		Problem: fmt.Sprintf(
			"REINDEX %s '%s' without CONCURRENTLY acquires an ACCESS EXCLUSIVE lock, "+
				"blocking all operations on the %s until complete. Duration depends on index size.",
			typeName, targetName, targetDesc),
		Solution: fmt.Sprintf(`Use REINDEX CONCURRENTLY for lock-free reindexing (PostgreSQL 12+):

   REINDEX %[1]s CONCURRENTLY %[2]s;

Note: CONCURRENTLY requires PostgreSQL 12+ and cannot be run inside a transaction block.

For Diesel migrations:
1. Create metadata.toml in your migration directory:
   run_in_transaction = false

2. Use REINDEX CONCURRENTLY in your up.sql:
   REINDEX %[1]s CONCURRENTLY %[2]s;

For SQLx migrations:
1. Add the no-transaction directive at the top of your migration file:
   -- no-transaction

2. Use REINDEX CONCURRENTLY:
   REINDEX %[1]s CONCURRENTLY %[2]s;

Considerations:
- Takes longer to complete than regular REINDEX
- Allows concurrent read/write operations
- If it fails, the index may be left in "invalid" state and need manual cleanup
- Cannot be rolled back (no transaction support)`,
			typeName, targetName),
	}}
}

func reindexHasConcurrently(params []*pgquery.Node) bool {
	for _, p := range params {
		if elem := p.GetDefElem(); elem != nil && elem.Defname == "concurrently" {
			return true
		}
	}
	return false
}

// WideIndexCheck flags CREATE INDEX statements with more than three
// columns. Wide indexes are rarely effective and slow down writes.
type WideIndexCheck struct{}

func (WideIndexCheck) Name() string { return "WideIndexCheck" }

const maxIndexColumns = 3

func (WideIndexCheck) Check(node *pgquery.Node, _ *config.Config) []Violation {
	idx := node.GetIndexStmt()
	if idx == nil {
		return nil
	}

	columnNames := indexColumnNames(idx)
	if len(columnNames) <= maxIndexColumns {
		return nil
	}

	tableName := rangeVarName(idx.Relation)
	indexName := idx.Idxname
	if indexName == "" {
		indexName = "<unnamed>"
	}

	firstCol, secondCol := "column1", "column2"
	if len(columnNames) > 0 {
		firstCol = columnNames[0]
	}
	if len(columnNames) > 1 {
		secondCol = columnNames[1]
	}

	return []Violation{{
		Operation: "CREATE INDEX with too many columns",
		Problem: fmt.Sprintf(
			"Index '%s' on table '%s' has %d columns (%s). "+
				"Wide indexes (4+ columns) are rarely effective because Postgres can only use them efficiently "+
				"when filtering on leftmost columns in order. They also increase storage costs and slow down writes.",
			indexName, tableName, len(columnNames), strings.Join(columnNames, ", ")),
		Solution: fmt.Sprintf(`Consider these alternatives:

1. Use a partial index for specific query patterns:
   CREATE INDEX %[1]s ON %[2]s(%[3]s)
   WHERE <condition>;

2. Create separate narrower indexes for different queries:
   CREATE INDEX idx_%[2]s_%[3]s ON %[2]s(%[3]s);
   CREATE INDEX idx_%[2]s_%[4]s ON %[2]s(%[4]s);

3. Rethink your query patterns - do you really need to filter on all %[5]d columns?

4. Use a covering index (INCLUDE clause) if you need extra columns for data:
   CREATE INDEX %[1]s ON %[2]s(%[3]s)
   INCLUDE (%[6]s);

Note: Multi-column indexes are occasionally useful (e.g., for composite foreign keys or specific query patterns). If you've verified this index is necessary, use a safety-assured block.`,
			indexName, tableName, firstCol, secondCol, len(columnNames),
			strings.Join(columnNames[1:], ", ")),
	}}
}
