package sqlparse

import (
	"fmt"
	"strings"
)

// Directive tokens recognized on comment lines, case-insensitively.
const (
	startToken = "safety-assured:start"
	endToken   = "safety-assured:end"
)

// IgnoreRange is the interior of one safety-assured block: the inclusive
// 1-based line interval between (and excluding) the directive lines.
type IgnoreRange struct {
	Start int
	End   int
}

// Contains reports whether the 1-based line falls inside the range.
func (r IgnoreRange) Contains(line int) bool {
	return line >= r.Start && line <= r.End
}

// DirectiveErrorKind classifies directive-structure failures.
type DirectiveErrorKind int

const (
	// UnmatchedEnd is an end directive with no open block.
	UnmatchedEnd DirectiveErrorKind = iota
	// NestedBlock is a start directive inside an already open block.
	NestedBlock
	// UnclosedBlock is a block still open at end of input.
	UnclosedBlock
)

// DirectiveError is a fatal whole-unit failure in the safety-assured
// directive structure.
type DirectiveError struct {
	Kind DirectiveErrorKind
	// Line is the offending directive line (for UnclosedBlock, the line
	// of the start directive left open).
	Line int
}

func (e *DirectiveError) Error() string {
	switch e.Kind {
	case UnmatchedEnd:
		return fmt.Sprintf("line %d: %s without a matching %s", e.Line, endToken, startToken)
	case NestedBlock:
		return fmt.Sprintf("line %d: %s inside an open block (nesting is not supported)", e.Line, startToken)
	case UnclosedBlock:
		return fmt.Sprintf("line %d: %s block is never closed", e.Line, startToken)
	default:
		return fmt.Sprintf("line %d: malformed safety-assured directive", e.Line)
	}
}

// BuildIgnoreRanges scans the text for safety-assured directive pairs and
// returns the exempt line ranges. Directive structure errors are fatal to
// the whole unit. Blocks whose interior is empty produce no range.
func BuildIgnoreRanges(sql string) ([]IgnoreRange, error) {
	var ranges []IgnoreRange
	openLine := 0 // 0 means no block open

	for i, line := range strings.Split(sql, "\n") {
		lineNo := i + 1
		switch {
		case isDirective(line, startToken):
			if openLine != 0 {
				return nil, &DirectiveError{Kind: NestedBlock, Line: lineNo}
			}
			openLine = lineNo
		case isDirective(line, endToken):
			if openLine == 0 {
				return nil, &DirectiveError{Kind: UnmatchedEnd, Line: lineNo}
			}
			if start, end := openLine+1, lineNo-1; start <= end {
				ranges = append(ranges, IgnoreRange{Start: start, End: end})
			}
			openLine = 0
		}
	}

	if openLine != 0 {
		return nil, &DirectiveError{Kind: UnclosedBlock, Line: openLine}
	}
	return ranges, nil
}

// isDirective reports whether the line is a comment carrying the token.
func isDirective(line, token string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "--") {
		return false
	}
	return strings.Contains(strings.ToLower(trimmed), token)
}
