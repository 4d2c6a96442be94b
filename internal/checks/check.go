// Package checks implements migration safety checks over the PostgreSQL AST.
//
// Each check inspects a single parsed statement and reports violations for
// operations that can lock tables, rewrite data, or otherwise endanger a
// production database. Checks are registered in a Registry which applies
// configuration-based filtering and safety-assured exemptions.
package checks

import (
	"log/slog"

	pgquery "github.com/pganalyze/pg_query_go/v6"

	"github.com/leapstack-labs/pgguard/internal/config"
	"github.com/leapstack-labs/pgguard/internal/sqlparse"
)

// Violation describes one unsafe operation found in a statement.
type Violation struct {
	Operation string `json:"operation"`
	Problem   string `json:"problem"`
	Solution  string `json:"solution"`
}

// Finding is a violation tied to the source line of the statement that
// produced it.
type Finding struct {
	Line int `json:"line"`
	Violation
}

// Check inspects a single statement node and reports any violations.
type Check interface {
	// Name identifies the check for config-based disabling,
	// e.g. "AddColumnCheck".
	Name() string

	// Check runs against one parsed statement.
	Check(node *pgquery.Node, cfg *config.Config) []Violation
}

// builtins returns all built-in checks in registration order.
func builtins() []Check {
	return []Check{
		AddColumnCheck{},
		AddIndexCheck{},
		AddJsonColumnCheck{},
		AddNotNullCheck{},
		AddPrimaryKeyCheck{},
		AddSerialColumnCheck{},
		AddUniqueConstraintCheck{},
		AlterColumnTypeCheck{},
		CharTypeCheck{},
		CreateExtensionCheck{},
		DropColumnCheck{},
		DropDatabaseCheck{},
		DropIndexCheck{},
		DropPrimaryKeyCheck{},
		DropTableCheck{},
		GeneratedColumnCheck{},
		ReindexCheck{},
		RenameColumnCheck{},
		RenameTableCheck{},
		ShortIntegerPrimaryKeyCheck{},
		TimestampTypeCheck{},
		TruncateTableCheck{},
		UnnamedConstraintCheck{},
		WideIndexCheck{},
	}
}

// BuiltinNames returns the names of all built-in checks regardless of
// which are enabled.
func BuiltinNames() []string {
	all := builtins()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = c.Name()
	}
	return names
}

// Registry holds the active set of checks for a run.
type Registry struct {
	checks []Check
	logger *slog.Logger
}

// NewRegistry builds a registry containing every built-in check that the
// configuration has not disabled.
func NewRegistry(cfg *config.Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Registry{logger: logger}
	for _, c := range builtins() {
		if !cfg.IsCheckEnabled(c.Name()) {
			logger.Debug("check disabled by configuration", "check", c.Name())
			continue
		}
		r.checks = append(r.checks, c)
	}
	return r
}

// Add appends a check to the registry. Used for custom scripted checks.
func (r *Registry) Add(c Check) {
	r.checks = append(r.checks, c)
}

// Names returns the names of all active checks in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.checks))
	for i, c := range r.checks {
		names[i] = c.Name()
	}
	return names
}

// Len reports the number of active checks.
func (r *Registry) Len() int {
	return len(r.checks)
}

// CheckNode runs every active check against a single statement node.
func (r *Registry) CheckNode(node *pgquery.Node, cfg *config.Config) []Violation {
	var violations []Violation
	for _, c := range r.checks {
		violations = append(violations, c.Check(node, cfg)...)
	}
	return violations
}

// Run checks every statement in the unit, skipping statements whose
// source line falls inside a safety-assured block. Findings are returned
// in statement order, then check registration order within a statement.
func (r *Registry) Run(unit *sqlparse.Unit, cfg *config.Config) []Finding {
	var findings []Finding
	for i, stmt := range unit.Statements {
		if stmt == nil || stmt.Stmt == nil {
			continue
		}
		line := 1
		if i < len(unit.StatementLines) {
			line = unit.StatementLines[i]
		}
		if unit.Exempt(line) {
			r.logger.Debug("statement exempted by safety-assured block", "line", line)
			continue
		}
		for _, v := range r.CheckNode(stmt.Stmt, cfg) {
			findings = append(findings, Finding{Line: line, Violation: v})
		}
	}
	return findings
}
