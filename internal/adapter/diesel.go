package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/leapstack-labs/pgguard/internal/config"
)

// dieselTimestampRegexp matches Diesel's migration timestamp formats:
// YYYY_MM_DD_HHMMSS, YYYY-MM-DD-HHMMSS, or YYYYMMDDHHMMSS.
var dieselTimestampRegexp = regexp.MustCompile(`^(\d{4}_\d{2}_\d{2}_\d{6}|\d{4}-\d{2}-\d{2}-\d{6}|\d{14})`)

// DieselAdapter discovers Diesel's directory-based migrations:
//
//	migrations/
//	└── 2024_01_01_000000_create_users/
//	    ├── up.sql
//	    └── down.sql
type DieselAdapter struct{}

func (DieselAdapter) Name() string { return "Diesel" }

func (a DieselAdapter) CollectMigrationFiles(dir, startAfter string, checkDown bool) ([]MigrationFile, error) {
	if isSingleMigrationDir(dir) {
		// The user targeted one migration directory explicitly, so the
		// start_after filter does not apply.
		return a.migrationDirFiles(dir, "", checkDown)
	}

	entries, err := sortedDirEntries(dir)
	if err != nil {
		return nil, err
	}

	var files []MigrationFile
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			dirFiles, err := a.migrationDirFiles(path, startAfter, checkDown)
			if err != nil {
				return nil, err
			}
			files = append(files, dirFiles...)
			continue
		}

		if filepath.Ext(entry.Name()) != ".sql" {
			continue
		}

		// Loose SQL files without timestamps are always checked.
		ts := a.ParseTimestamp(entry.Name())
		if ts != "" && !shouldCheckMigration(startAfter, ts) {
			continue
		}
		if ts == "" {
			ts = entry.Name()
		}
		files = append(files, MigrationFile{Path: path, Timestamp: ts})
	}
	return files, nil
}

func (DieselAdapter) ParseTimestamp(name string) string {
	m := dieselTimestampRegexp.FindString(name)
	return config.NormalizeTimestamp(m)
}

// ExtractSection is the identity for Diesel: directions live in
// separate up.sql and down.sql files.
func (DieselAdapter) ExtractSection(sql string, _ Direction) string {
	return sql
}

func (DieselAdapter) ValidateTimestamp(timestamp string) error {
	if m := dieselTimestampRegexp.FindString(timestamp); m != timestamp || m == "" {
		return fmt.Errorf(
			"invalid Diesel timestamp format: %s. Expected: YYYYMMDDHHMMSS, YYYY_MM_DD_HHMMSS, or YYYY-MM-DD-HHMMSS",
			timestamp)
	}
	return nil
}

// migrationDirFiles returns the up.sql (and optionally down.sql) of one
// migration directory, subject to the start_after filter.
func (a DieselAdapter) migrationDirFiles(dir, startAfter string, checkDown bool) ([]MigrationFile, error) {
	dirName := filepath.Base(dir)

	// Directories without a timestamp use the directory name, which
	// allows checking unversioned fixtures.
	ts := a.ParseTimestamp(dirName)
	if ts == "" {
		ts = dirName
	}
	if !shouldCheckMigration(startAfter, ts) {
		return nil, nil
	}

	var files []MigrationFile

	upPath := filepath.Join(dir, "up.sql")
	if fileExists(upPath) {
		files = append(files, MigrationFile{
			Path:                  upPath,
			Timestamp:             ts,
			RequiresNoTransaction: dieselNoTransaction(dir),
		})
	}

	if checkDown {
		downPath := filepath.Join(dir, "down.sql")
		if fileExists(downPath) {
			files = append(files, MigrationFile{
				Path:                  downPath,
				Timestamp:             ts,
				Direction:             DirectionDown,
				RequiresNoTransaction: dieselNoTransaction(dir),
			})
		}
	}

	return files, nil
}

// dieselNoTransaction reports whether the migration's metadata.toml sets
// run_in_transaction = false.
func dieselNoTransaction(dir string) bool {
	data, err := os.ReadFile(filepath.Join(dir, "metadata.toml"))
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.ReplaceAll(line, " ", "")
		if strings.HasPrefix(line, "run_in_transaction=false") {
			return true
		}
	}
	return false
}

// isSingleMigrationDir reports whether dir is itself one migration
// directory (contains up.sql) rather than a directory of migrations.
func isSingleMigrationDir(dir string) bool {
	return fileExists(filepath.Join(dir, "up.sql"))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
