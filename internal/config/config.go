// Package config defines the run configuration shared by the checker,
// the check registry, and the CLI.
package config

import (
	"fmt"
	"regexp"
)

// Framework names accepted by the "framework" field.
const (
	FrameworkDiesel = "diesel"
	FrameworkSqlx   = "sqlx"
)

// timestampRegexp matches migration timestamps in the three accepted
// formats: YYYY_MM_DD_HHMMSS, YYYY-MM-DD-HHMMSS, or YYYYMMDDHHMMSS.
var timestampRegexp = regexp.MustCompile(`^(\d{4}_\d{2}_\d{2}_\d{6}|\d{4}-\d{2}-\d{2}-\d{6}|\d{14})`)

// CustomCheck is one user-authored check script, identified by name.
type CustomCheck struct {
	Name   string `koanf:"name"`
	Source string `koanf:"source"`
}

// Config holds the resolved configuration for one run. It is read-only
// once a Checker has been built from it and safe to share across
// concurrently processed migration units.
type Config struct {
	// Framework selects the migration layout adapter: "diesel" or "sqlx".
	Framework string `koanf:"framework"`

	// StartAfter skips migrations with a version timestamp at or before
	// this value. Accepts the same formats as migration timestamps.
	StartAfter string `koanf:"start_after"`

	// CheckDown includes rollback (down) migrations in directory runs.
	CheckDown bool `koanf:"check_down"`

	// DisableChecks lists check names to leave out of the registry.
	DisableChecks []string `koanf:"disable_checks"`

	// CustomChecksDir points at a directory of .star check scripts.
	CustomChecksDir string `koanf:"custom_checks_dir"`

	// CustomChecks carries inline check scripts, evaluated in order after
	// any scripts loaded from CustomChecksDir.
	CustomChecks []CustomCheck `koanf:"custom_checks"`

	// PostgresVersion is the target Postgres major version (e.g. 11, 16).
	// When set, checks whose anti-pattern is safe from that version on
	// are skipped. Zero means unknown: all checks run.
	PostgresVersion int `koanf:"postgres_version"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Framework: FrameworkDiesel,
	}
}

// Validate rejects configurations that cannot drive a run.
func (c *Config) Validate() error {
	switch c.Framework {
	case FrameworkDiesel, FrameworkSqlx:
	default:
		return fmt.Errorf("invalid framework %q: valid values are %q and %q",
			c.Framework, FrameworkDiesel, FrameworkSqlx)
	}
	if c.StartAfter != "" && !timestampRegexp.MatchString(c.StartAfter) {
		return fmt.Errorf("invalid start_after timestamp %q: expected YYYYMMDDHHMMSS, YYYY_MM_DD_HHMMSS, or YYYY-MM-DD-HHMMSS", c.StartAfter)
	}
	if c.PostgresVersion < 0 {
		return fmt.Errorf("invalid postgres_version %d", c.PostgresVersion)
	}
	return nil
}

// IsCheckEnabled reports whether a check name survives the disable list.
func (c *Config) IsCheckEnabled(name string) bool {
	for _, disabled := range c.DisableChecks {
		if disabled == name {
			return false
		}
	}
	return true
}

// ShouldCheckMigration reports whether a migration directory or file name
// passes the StartAfter filter. Names without a recognizable timestamp are
// always checked.
func (c *Config) ShouldCheckMigration(name string) bool {
	if c.StartAfter == "" {
		return true
	}
	m := timestampRegexp.FindStringSubmatch(name)
	if m == nil {
		return true
	}
	// Separators are stripped so the three formats compare lexicographically.
	return NormalizeTimestamp(m[1]) > NormalizeTimestamp(c.StartAfter)
}

// NormalizeTimestamp strips underscore and dash separators from a
// migration timestamp.
func NormalizeTimestamp(ts string) string {
	out := make([]byte, 0, len(ts))
	for i := 0; i < len(ts); i++ {
		if ts[i] != '_' && ts[i] != '-' {
			out = append(out, ts[i])
		}
	}
	return string(out)
}
