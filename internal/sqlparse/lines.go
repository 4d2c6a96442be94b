package sqlparse

import (
	"log/slog"
	"strings"

	pgquery "github.com/pganalyze/pg_query_go/v6"
)

// CorrelateLines maps each statement, in appearance order, to the 1-based
// source line it most plausibly starts on.
//
// The mapping is heuristic: for each statement it searches forward from
// just after the previously matched line for the first unconsumed line
// whose first token equals the statement kind's leading keyword, then
// consumes that line. When no line matches (keyword split across lines,
// unknown statement kind, ...), the statement is assigned line 1 and a
// diagnostic is emitted; the pipeline continues. Multiple statements on
// one line and keyword-looking substrings inside identifiers are known
// mis-mapping sources and are deliberately not special-cased.
func CorrelateLines(stmts []*pgquery.RawStmt, sql string, logger *slog.Logger) []int {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	lines := strings.Split(sql, "\n")
	mapped := make([]int, len(stmts))
	cursor := 0 // index of the first unconsumed line

	for i, stmt := range stmts {
		keyword := leadingKeyword(stmt)
		found := 0
		if keyword != "" {
			for j := cursor; j < len(lines); j++ {
				if firstToken(lines[j]) == keyword {
					found = j + 1
					cursor = j + 1
					break
				}
			}
		}
		if found == 0 {
			logger.Warn("could not locate statement source line, defaulting to line 1",
				"keyword", keyword,
				"statement", statementPreview(stmt))
			found = 1
		}
		mapped[i] = found
	}
	return mapped
}

// leadingKeyword returns the uppercase keyword a statement of this kind
// starts with in source text, or "" for unrecognized kinds.
func leadingKeyword(stmt *pgquery.RawStmt) string {
	if stmt == nil || stmt.Stmt == nil {
		return ""
	}
	switch {
	case stmt.Stmt.GetAlterTableStmt() != nil,
		stmt.Stmt.GetRenameStmt() != nil,
		stmt.Stmt.GetAlterSeqStmt() != nil,
		stmt.Stmt.GetAlterDomainStmt() != nil:
		return "ALTER"
	case stmt.Stmt.GetCreateStmt() != nil,
		stmt.Stmt.GetIndexStmt() != nil,
		stmt.Stmt.GetCreateExtensionStmt() != nil,
		stmt.Stmt.GetCreateSeqStmt() != nil,
		stmt.Stmt.GetViewStmt() != nil,
		stmt.Stmt.GetCreateTableAsStmt() != nil,
		stmt.Stmt.GetCreateFunctionStmt() != nil,
		stmt.Stmt.GetCreateTrigStmt() != nil,
		stmt.Stmt.GetCreateSchemaStmt() != nil,
		stmt.Stmt.GetCreatedbStmt() != nil:
		return "CREATE"
	case stmt.Stmt.GetDropStmt() != nil,
		stmt.Stmt.GetDropdbStmt() != nil:
		return "DROP"
	case stmt.Stmt.GetTruncateStmt() != nil:
		return "TRUNCATE"
	case stmt.Stmt.GetReindexStmt() != nil:
		return "REINDEX"
	case stmt.Stmt.GetInsertStmt() != nil:
		return "INSERT"
	case stmt.Stmt.GetUpdateStmt() != nil:
		return "UPDATE"
	case stmt.Stmt.GetDeleteStmt() != nil:
		return "DELETE"
	case stmt.Stmt.GetSelectStmt() != nil:
		return "SELECT"
	case stmt.Stmt.GetVariableSetStmt() != nil:
		return "SET"
	case stmt.Stmt.GetCommentStmt() != nil:
		return "COMMENT"
	case stmt.Stmt.GetGrantStmt() != nil:
		return "GRANT"
	case stmt.Stmt.GetVacuumStmt() != nil:
		return "VACUUM"
	default:
		return ""
	}
}

// firstToken returns the first whitespace-delimited token of the line,
// uppercased. Comment lines yield "--", which never matches a keyword.
func firstToken(line string) string {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// statementPreview renders a short identification of a statement for
// diagnostics.
func statementPreview(stmt *pgquery.RawStmt) string {
	if stmt == nil || stmt.Stmt == nil {
		return "<empty>"
	}
	s := stmt.Stmt.String()
	const max = 120
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
