package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// sqlxVersionRegexp matches SQLx version prefixes. SQLx accepts any
// positive i64 as a version, so any leading digit run qualifies
// (e.g. "1", "001", "42", "20240101000000").
var sqlxVersionRegexp = regexp.MustCompile(`^(\d+)[_.]?`)

// SqlxAdapter discovers SQLx's flat-file migrations:
//
//  1. Suffix-based (reversible): <VERSION>_<DESC>.up.sql / <VERSION>_<DESC>.down.sql
//  2. Single file (up-only):     <VERSION>_<DESC>.sql
//
// Single files may also carry "-- migrate:up" / "-- migrate:down"
// section markers, in which case each section is checked under its own
// direction.
type SqlxAdapter struct{}

// Section markers recognized in single-file migrations.
const (
	migrateUpMarker   = "-- migrate:up"
	migrateDownMarker = "-- migrate:down"
)

func (SqlxAdapter) Name() string { return "SQLx" }

func (a SqlxAdapter) CollectMigrationFiles(dir, startAfter string, checkDown bool) ([]MigrationFile, error) {
	entries, err := sortedDirEntries(dir)
	if err != nil {
		return nil, err
	}

	var files []MigrationFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		files = append(files, a.processMigrationFile(path, entry.Name(), startAfter, checkDown)...)
	}
	return files, nil
}

func (SqlxAdapter) ParseTimestamp(name string) string {
	m := sqlxVersionRegexp.FindStringSubmatch(name)
	if m == nil {
		return ""
	}
	return m[1]
}

func (SqlxAdapter) ValidateTimestamp(timestamp string) error {
	if timestamp == "" {
		return fmt.Errorf("invalid SQLx version format: %s. Expected: one or more digits", timestamp)
	}
	for _, c := range timestamp {
		if c < '0' || c > '9' {
			return fmt.Errorf("invalid SQLx version format: %s. Expected: one or more digits", timestamp)
		}
	}
	return nil
}

func (a SqlxAdapter) processMigrationFile(path, filename, startAfter string, checkDown bool) []MigrationFile {
	stem := strings.TrimSuffix(filename, ".sql")

	direction := DirectionUp
	suffixed := false
	versionPart := stem
	switch {
	case strings.HasSuffix(stem, ".up"):
		versionPart = strings.TrimSuffix(stem, ".up")
		suffixed = true
	case strings.HasSuffix(stem, ".down"):
		if !checkDown {
			return nil
		}
		versionPart = strings.TrimSuffix(stem, ".down")
		direction = DirectionDown
		suffixed = true
	}

	ts := a.ParseTimestamp(versionPart)
	if ts == "" {
		return nil
	}
	if !shouldCheckMigration(startAfter, ts) {
		return nil
	}

	files := []MigrationFile{{
		Path:                  path,
		Timestamp:             ts,
		Direction:             direction,
		RequiresNoTransaction: sqlxNoTransaction(path),
	}}

	// Single files with a migrate:down section also produce a down
	// entry when rollback checking is on.
	if !suffixed && checkDown && fileHasDownSection(path) {
		down := files[0]
		down.Direction = DirectionDown
		files = append(files, down)
	}
	return files
}

// fileHasDownSection reports whether the file carries a migrate:down
// section marker.
func fileHasDownSection(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if d, ok := migrateMarker(line); ok && d == DirectionDown {
			return true
		}
	}
	return false
}

// migrateMarker classifies a line as a section marker.
func migrateMarker(line string) (Direction, bool) {
	trimmed := strings.ToLower(strings.TrimSpace(line))
	switch {
	case strings.HasPrefix(trimmed, migrateUpMarker):
		return DirectionUp, true
	case strings.HasPrefix(trimmed, migrateDownMarker):
		return DirectionDown, true
	}
	return DirectionUp, false
}

// ExtractSection returns the requested direction's section of a
// marker-style migration. Files without markers are treated as a single
// up section. Non-section lines are blanked in place to preserve line
// numbering.
func (SqlxAdapter) ExtractSection(sql string, direction Direction) string {
	if !strings.Contains(strings.ToLower(sql), migrateUpMarker) &&
		!strings.Contains(strings.ToLower(sql), migrateDownMarker) {
		if direction == DirectionUp {
			return sql
		}
		return ""
	}

	lines := strings.Split(sql, "\n")
	current := DirectionUp
	for i, line := range lines {
		if d, ok := migrateMarker(line); ok {
			current = d
			lines[i] = ""
			continue
		}
		if current != direction {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

// sqlxNoTransaction reports whether the file starts with SQLx's
// "-- no-transaction" directive. Only leading comment lines are
// considered.
func sqlxNoTransaction(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !strings.HasPrefix(trimmed, "--") {
			return false
		}
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(trimmed, "--")), "no-transaction") {
			return true
		}
	}
	return false
}
