package sqlparse

import "regexp"

// safePatterns are signatures for syntactically valid Postgres idioms that
// a grammar may reject but that are known safe for migrations. They are
// tried in order against the entire unit text when parsing fails; the
// first match suppresses the failure.
//
// Because the grammar reports success or failure for the whole unit, a
// match exempts every statement in that unit, not just the matched one.
// Migrations should keep such statements in single-statement files.
var safePatterns = []*regexp.Regexp{
	// Promoting an existing index to a UNIQUE or PRIMARY KEY constraint.
	regexp.MustCompile(`(?i)ADD\s+CONSTRAINT\s+\S+\s+(UNIQUE|PRIMARY\s+KEY)\s+USING\s+INDEX\s+`),
	// Non-blocking index removal.
	regexp.MustCompile(`(?i)DROP\s+INDEX\s+CONCURRENTLY\s+`),
	// Non-blocking reindex. SYSTEM is excluded: it does not support
	// CONCURRENTLY, so such text is a genuine syntax error.
	regexp.MustCompile(`(?i)REINDEX\s+(?:\([^)]*\)\s+)?(INDEX|TABLE|SCHEMA|DATABASE)\s+CONCURRENTLY\s+`),
}

// MatchesSafePattern reports whether the unit text matches any of the
// known-safe fallback signatures.
func MatchesSafePattern(sql string) bool {
	for _, p := range safePatterns {
		if p.MatchString(sql) {
			return true
		}
	}
	return false
}
