package checks

import (
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v6"
)

// rangeVarName returns the table name, schema-qualified when a schema is
// present.
func rangeVarName(rv *pgquery.RangeVar) string {
	if rv == nil {
		return ""
	}
	if rv.Schemaname == "" {
		return rv.Relname
	}
	return rv.Schemaname + "." + rv.Relname
}

// typeNameStr returns the last segment of a TypeName, which is the
// internal type name ("int4", "bpchar", "json", ...).
func typeNameStr(tn *pgquery.TypeName) string {
	if tn == nil {
		return ""
	}
	name := ""
	for _, n := range tn.Names {
		if s := n.GetString_(); s != nil {
			name = s.Sval
		}
	}
	return name
}

func columnTypeName(col *pgquery.ColumnDef) string {
	if col == nil {
		return ""
	}
	return typeNameStr(col.TypeName)
}

// stringListValues extracts the string values from a slice of String
// nodes, e.g. constraint key columns.
func stringListValues(nodes []*pgquery.Node) []string {
	var vals []string
	for _, n := range nodes {
		if s := n.GetString_(); s != nil {
			vals = append(vals, s.Sval)
		}
	}
	return vals
}

func constraintColumnsStr(c *pgquery.Constraint) string {
	return strings.Join(stringListValues(c.Keys), ", ")
}

func cmdDefAsColumnDef(cmd *pgquery.AlterTableCmd) *pgquery.ColumnDef {
	if cmd == nil || cmd.Def == nil {
		return nil
	}
	return cmd.Def.GetColumnDef()
}

func cmdDefAsConstraint(cmd *pgquery.AlterTableCmd) *pgquery.Constraint {
	if cmd == nil || cmd.Def == nil {
		return nil
	}
	return cmd.Def.GetConstraint()
}

// Type classification predicates. Names are pg_catalog internal names.

func isCharType(typeName string) bool {
	return typeName == "bpchar"
}

func isTimestampWithoutTZ(typeName string) bool {
	return typeName == "timestamp"
}

func isShortInteger(typeName string) bool {
	switch typeName {
	case "int2", "int4", "serial", "smallserial":
		return true
	}
	return false
}

func isJSONType(typeName string) bool {
	return typeName == "json"
}

func isSerialType(typeName string) bool {
	switch typeName {
	case "serial", "bigserial", "smallserial":
		return true
	}
	return false
}

func columnHasConstraint(col *pgquery.ColumnDef, contype pgquery.ConstrType) bool {
	for _, n := range col.Constraints {
		if c := n.GetConstraint(); c != nil && c.Contype == contype {
			return true
		}
	}
	return false
}

// alterTableCmds unpacks an AlterTableStmt into its table name and
// commands. Returns ok=false for any other statement kind.
func alterTableCmds(node *pgquery.Node) (string, []*pgquery.AlterTableCmd, bool) {
	alter := node.GetAlterTableStmt()
	if alter == nil {
		return "", nil, false
	}
	var cmds []*pgquery.AlterTableCmd
	for _, n := range alter.Cmds {
		if cmd := n.GetAlterTableCmd(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return rangeVarName(alter.Relation), cmds, true
}

// dropObjectNames extracts schema-qualified object names from a
// DropStmt's objects list. Each object is a List of String nodes joined
// with ".".
func dropObjectNames(objects []*pgquery.Node) []string {
	var names []string
	for _, obj := range objects {
		if list := obj.GetList(); list != nil {
			names = append(names, strings.Join(stringListValues(list.Items), "."))
		}
	}
	return names
}

type tableColumn struct {
	table string
	col   *pgquery.ColumnDef
}

// forEachColumnDef yields column definitions from both CREATE TABLE
// elements and ALTER TABLE ADD COLUMN commands, for checks that apply
// in both contexts.
func forEachColumnDef(node *pgquery.Node) []tableColumn {
	var out []tableColumn
	if create := node.GetCreateStmt(); create != nil {
		table := rangeVarName(create.Relation)
		for _, n := range create.TableElts {
			if col := n.GetColumnDef(); col != nil {
				out = append(out, tableColumn{table: table, col: col})
			}
		}
		return out
	}
	if table, cmds, ok := alterTableCmds(node); ok {
		for _, cmd := range cmds {
			if col := cmdDefAsColumnDef(cmd); col != nil {
				out = append(out, tableColumn{table: table, col: col})
			}
		}
	}
	return out
}

func uniquePrefix(isUnique bool) string {
	if isUnique {
		return "UNIQUE "
	}
	return ""
}

func ifExistsClause(ifExists bool) string {
	if ifExists {
		return " IF EXISTS"
	}
	return ""
}
