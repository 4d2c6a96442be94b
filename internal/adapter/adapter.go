// Package adapter discovers migration files for supported migration
// frameworks. Each framework has its own directory layout and version
// naming scheme; the adapters normalize both into MigrationFile values
// the checker can process uniformly.
package adapter

import (
	"fmt"
	"os"
	"sort"

	"github.com/leapstack-labs/pgguard/internal/config"
)

// Direction reports whether a migration applies or reverts changes.
type Direction int

const (
	DirectionUp Direction = iota
	DirectionDown
)

func (d Direction) String() string {
	if d == DirectionDown {
		return "down"
	}
	return "up"
}

// MigrationFile is a single SQL file to check.
type MigrationFile struct {
	// Path to the SQL file.
	Path string
	// Timestamp extracted from the migration name, normalized to
	// digits only. Falls back to the raw name when no timestamp is
	// present.
	Timestamp string
	// Direction of the migration.
	Direction Direction
	// RequiresNoTransaction is set when the file declares it must run
	// outside a transaction block.
	RequiresNoTransaction bool
}

// MigrationAdapter handles framework-specific migration discovery.
type MigrationAdapter interface {
	// Name of the framework, for display and logging.
	Name() string

	// CollectMigrationFiles returns the migration files under dir, in
	// path order. Migrations at or before startAfter are skipped; down
	// migrations are included only when checkDown is set.
	CollectMigrationFiles(dir, startAfter string, checkDown bool) ([]MigrationFile, error)

	// ParseTimestamp extracts a normalized timestamp from a migration
	// name, or "" when the name carries none.
	ParseTimestamp(name string) string

	// ValidateTimestamp reports whether a timestamp matches the
	// framework's expected format.
	ValidateTimestamp(timestamp string) error

	// ExtractSection returns the SQL belonging to the given direction
	// within the file's text. Lines outside the section are blanked
	// rather than removed so statement line numbers keep matching the
	// source file.
	ExtractSection(sql string, direction Direction) string
}

// ForFramework returns the adapter for the configured framework.
func ForFramework(cfg *config.Config) (MigrationAdapter, error) {
	switch cfg.Framework {
	case config.FrameworkDiesel:
		return DieselAdapter{}, nil
	case config.FrameworkSqlx:
		return SqlxAdapter{}, nil
	default:
		return nil, fmt.Errorf("unsupported migration framework %q", cfg.Framework)
	}
}

// shouldCheckMigration applies the start_after filter. Timestamps are
// normalized before comparing; YYYYMMDDHHMMSS orders lexicographically.
func shouldCheckMigration(startAfter, timestamp string) bool {
	if startAfter == "" {
		return true
	}
	return config.NormalizeTimestamp(timestamp) > config.NormalizeTimestamp(startAfter)
}

// sortedDirEntries lists the immediate children of dir in name order.
func sortedDirEntries(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}
