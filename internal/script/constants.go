package script

import (
	pgquery "github.com/pganalyze/pg_query_go/v6"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

// pgModule exposes commonly needed PostgreSQL AST enum constants to
// scripts. Scripts access these as `pg.OBJECT_TABLE`, `pg.AT_ADD_COLUMN`,
// etc., and compare them against the numeric enum fields of the
// serialized statement.
func pgModule() *starlarkstruct.Module {
	members := starlark.StringDict{}

	add := func(name string, v int32) {
		members[name] = starlark.MakeInt(int(v))
	}

	// ObjectType (DROP, RENAME, COMMENT targets)
	add("OBJECT_INDEX", int32(pgquery.ObjectType_OBJECT_INDEX))
	add("OBJECT_TABLE", int32(pgquery.ObjectType_OBJECT_TABLE))
	add("OBJECT_COLUMN", int32(pgquery.ObjectType_OBJECT_COLUMN))
	add("OBJECT_DATABASE", int32(pgquery.ObjectType_OBJECT_DATABASE))
	add("OBJECT_SCHEMA", int32(pgquery.ObjectType_OBJECT_SCHEMA))
	add("OBJECT_SEQUENCE", int32(pgquery.ObjectType_OBJECT_SEQUENCE))
	add("OBJECT_VIEW", int32(pgquery.ObjectType_OBJECT_VIEW))
	add("OBJECT_FUNCTION", int32(pgquery.ObjectType_OBJECT_FUNCTION))
	add("OBJECT_EXTENSION", int32(pgquery.ObjectType_OBJECT_EXTENSION))
	add("OBJECT_TRIGGER", int32(pgquery.ObjectType_OBJECT_TRIGGER))
	add("OBJECT_TYPE", int32(pgquery.ObjectType_OBJECT_TYPE))

	// AlterTableType (ALTER TABLE command subtypes)
	add("AT_ADD_COLUMN", int32(pgquery.AlterTableType_AT_AddColumn))
	add("AT_COLUMN_DEFAULT", int32(pgquery.AlterTableType_AT_ColumnDefault))
	add("AT_DROP_NOT_NULL", int32(pgquery.AlterTableType_AT_DropNotNull))
	add("AT_SET_NOT_NULL", int32(pgquery.AlterTableType_AT_SetNotNull))
	add("AT_DROP_COLUMN", int32(pgquery.AlterTableType_AT_DropColumn))
	add("AT_ALTER_COLUMN_TYPE", int32(pgquery.AlterTableType_AT_AlterColumnType))
	add("AT_ADD_CONSTRAINT", int32(pgquery.AlterTableType_AT_AddConstraint))
	add("AT_DROP_CONSTRAINT", int32(pgquery.AlterTableType_AT_DropConstraint))
	add("AT_VALIDATE_CONSTRAINT", int32(pgquery.AlterTableType_AT_ValidateConstraint))

	// ConstrType (constraint kinds)
	add("CONSTR_NOTNULL", int32(pgquery.ConstrType_CONSTR_NOTNULL))
	add("CONSTR_DEFAULT", int32(pgquery.ConstrType_CONSTR_DEFAULT))
	add("CONSTR_IDENTITY", int32(pgquery.ConstrType_CONSTR_IDENTITY))
	add("CONSTR_GENERATED", int32(pgquery.ConstrType_CONSTR_GENERATED))
	add("CONSTR_CHECK", int32(pgquery.ConstrType_CONSTR_CHECK))
	add("CONSTR_PRIMARY", int32(pgquery.ConstrType_CONSTR_PRIMARY))
	add("CONSTR_UNIQUE", int32(pgquery.ConstrType_CONSTR_UNIQUE))
	add("CONSTR_EXCLUSION", int32(pgquery.ConstrType_CONSTR_EXCLUSION))
	add("CONSTR_FOREIGN", int32(pgquery.ConstrType_CONSTR_FOREIGN))

	// DropBehavior
	add("DROP_RESTRICT", int32(pgquery.DropBehavior_DROP_RESTRICT))
	add("DROP_CASCADE", int32(pgquery.DropBehavior_DROP_CASCADE))

	return &starlarkstruct.Module{Name: "pg", Members: members}
}
