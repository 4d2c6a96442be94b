// Package sqlparse turns raw migration SQL into the parsed unit the check
// registry consumes: statements, per-statement source lines, and exemption
// line ranges from safety-assured directives.
package sqlparse

import (
	"errors"
	"fmt"
	"log/slog"

	pgquery "github.com/pganalyze/pg_query_go/v6"
	"github.com/pganalyze/pg_query_go/v6/parser"
)

// Grammar parses SQL text into statements. Implementations must be pure:
// identical text always yields identical output.
type Grammar interface {
	Parse(sql string) ([]*pgquery.RawStmt, error)
}

// ParseError is a structured whole-unit parse failure.
type ParseError struct {
	Message string
	// Position is the 1-based byte offset reported by the grammar,
	// or zero when unavailable.
	Position int
}

func (e *ParseError) Error() string {
	if e.Position > 0 {
		return fmt.Sprintf("failed to parse SQL: %s (at position %d)", e.Message, e.Position)
	}
	return fmt.Sprintf("failed to parse SQL: %s", e.Message)
}

// PostgresGrammar is the default Grammar, backed by the real Postgres
// parser (pg_query).
type PostgresGrammar struct{}

// Parse implements Grammar.
func (PostgresGrammar) Parse(sql string) ([]*pgquery.RawStmt, error) {
	result, err := pgquery.Parse(sql)
	if err != nil {
		var pgErr *parser.Error
		if errors.As(err, &pgErr) {
			return nil, &ParseError{Message: pgErr.Message, Position: pgErr.Cursorpos}
		}
		return nil, &ParseError{Message: err.Error()}
	}
	return result.Stmts, nil
}

// Unit is one fully parsed migration unit. It is immutable once returned
// and scoped to a single analysis run.
type Unit struct {
	Statements []*pgquery.RawStmt
	// StatementLines maps statement index to a 1-based source line.
	StatementLines []int
	IgnoreRanges   []IgnoreRange
	// SQL is the raw text the unit was parsed from.
	SQL string
}

// Exempt reports whether the given 1-based line falls inside any
// safety-assured block interior.
func (u *Unit) Exempt(line int) bool {
	for _, r := range u.IgnoreRanges {
		if r.Contains(line) {
			return true
		}
	}
	return false
}

// Parse runs the per-unit front half of the pipeline: directive scanning,
// grammar parsing with fallback suppression, and line correlation.
//
// A grammar failure is offered to the fallback detector first; a match
// suppresses the failure and yields a unit with no statements (the whole
// unit is treated as safe). Directive-structure errors and unresolved
// parse failures are fatal to the unit. Diagnostics (line-correlation
// misses) go to logger, never to the error return.
func Parse(grammar Grammar, sql string, logger *slog.Logger) (*Unit, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ranges, err := BuildIgnoreRanges(sql)
	if err != nil {
		return nil, err
	}

	stmts, err := grammar.Parse(sql)
	if err != nil {
		if MatchesSafePattern(sql) {
			logger.Debug("parse failure suppressed by safe-pattern fallback")
			stmts = nil
		} else {
			return nil, err
		}
	}

	return &Unit{
		Statements:     stmts,
		StatementLines: CorrelateLines(stmts, sql, logger),
		IgnoreRanges:   ranges,
		SQL:            sql,
	}, nil
}
