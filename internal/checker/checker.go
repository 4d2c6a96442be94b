// Package checker orchestrates migration safety analysis: it wires the
// SQL grammar, the check registry, custom scripted checks, and the
// migration framework adapters into a single entry point.
package checker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/pgguard/internal/adapter"
	"github.com/leapstack-labs/pgguard/internal/checks"
	"github.com/leapstack-labs/pgguard/internal/config"
	"github.com/leapstack-labs/pgguard/internal/script"
	"github.com/leapstack-labs/pgguard/internal/sqlparse"
)

// FileResult holds the findings for one migration file.
type FileResult struct {
	// Path of the SQL file.
	Path string `json:"path"`
	// Timestamp of the migration the file belongs to, when known.
	Timestamp string `json:"timestamp,omitempty"`
	// Direction of the migration.
	Direction string `json:"direction"`
	// Findings in statement order.
	Findings []checks.Finding `json:"findings"`
}

// Checker runs safety checks over SQL text, files, and directories.
type Checker struct {
	cfg      *config.Config
	grammar  sqlparse.Grammar
	registry *checks.Registry
	adapter  adapter.MigrationAdapter
	logger   *slog.Logger
}

// New builds a checker from configuration. Custom checks declared
// inline and in the custom checks directory are compiled and added to
// the registry; disabled-check names that match nothing produce a
// warning.
func New(cfg *config.Config, logger *slog.Logger) (*Checker, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	registry := checks.NewRegistry(cfg, logger)

	custom := script.FromSources(cfg, logger)
	if cfg.CustomChecksDir != "" {
		fromDir, err := script.LoadDir(cfg, cfg.CustomChecksDir, logger)
		if err != nil {
			return nil, err
		}
		custom = append(custom, fromDir...)
	}

	knownNames := checks.BuiltinNames()
	for _, c := range custom {
		registry.Add(c)
		knownNames = append(knownNames, c.Name())
	}
	// Disabled custom checks never compile, so their names are collected
	// separately to keep the unknown-name warning below accurate.
	for _, cc := range cfg.CustomChecks {
		if !slices.Contains(knownNames, cc.Name) {
			knownNames = append(knownNames, cc.Name)
		}
	}
	if cfg.CustomChecksDir != "" {
		if entries, err := os.ReadDir(cfg.CustomChecksDir); err == nil {
			for _, entry := range entries {
				if name, ok := strings.CutSuffix(entry.Name(), ".star"); ok && !entry.IsDir() {
					if !slices.Contains(knownNames, name) {
						knownNames = append(knownNames, name)
					}
				}
			}
		}
	}

	for _, name := range cfg.DisableChecks {
		if !slices.Contains(knownNames, name) {
			logger.Warn("disabled check does not match any known check", "check", name)
		}
	}

	a, err := adapter.ForFramework(cfg)
	if err != nil {
		return nil, err
	}

	return &Checker{
		cfg:      cfg,
		grammar:  sqlparse.PostgresGrammar{},
		registry: registry,
		adapter:  a,
		logger:   logger,
	}, nil
}

// Registry exposes the active check set, for listing commands.
func (c *Checker) Registry() *checks.Registry {
	return c.registry
}

// CheckSQL parses and checks one SQL unit.
func (c *Checker) CheckSQL(sql string) ([]checks.Finding, error) {
	unit, err := sqlparse.Parse(c.grammar, sql, c.logger)
	if err != nil {
		return nil, err
	}
	return c.registry.Run(unit, c.cfg), nil
}

// CheckFile reads and checks one migration file. Only the file section
// belonging to the file's direction is analyzed.
func (c *Checker) CheckFile(file adapter.MigrationFile) (*FileResult, error) {
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, fmt.Errorf("read migration file: %w", err)
	}

	sql := c.adapter.ExtractSection(string(data), file.Direction)
	findings, err := c.CheckSQL(sql)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file.Path, err)
	}

	return &FileResult{
		Path:      file.Path,
		Timestamp: file.Timestamp,
		Direction: file.Direction.String(),
		Findings:  findings,
	}, nil
}

// CheckDirectory discovers migrations under dir with the configured
// framework adapter and checks them concurrently. Results come back in
// discovery order regardless of completion order.
func (c *Checker) CheckDirectory(ctx context.Context, dir string) ([]FileResult, error) {
	files, err := c.adapter.CollectMigrationFiles(dir, c.cfg.StartAfter, c.cfg.CheckDown)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("collected migration files",
		"framework", c.adapter.Name(), "dir", dir, "count", len(files))

	results := make([]FileResult, len(files))
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for i, file := range files {
		eg.Go(func() error {
			res, err := c.CheckFile(file)
			if err != nil {
				return err
			}
			results[i] = *res
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// CheckPath checks a directory of migrations or a single SQL file.
func (c *Checker) CheckPath(ctx context.Context, path string) ([]FileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	if info.IsDir() {
		return c.CheckDirectory(ctx, path)
	}

	res, err := c.CheckFile(adapter.MigrationFile{Path: path})
	if err != nil {
		return nil, err
	}
	return []FileResult{*res}, nil
}
