package script

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/leapstack-labs/pgguard/internal/config"
)

// FromSources compiles the inline custom checks declared in the
// configuration. A check whose name the configuration disables is
// skipped. Compile failures are reported but do not abort loading the
// remaining checks.
func FromSources(cfg *config.Config, logger *slog.Logger) []*CustomCheck {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var loaded []*CustomCheck
	for _, cc := range cfg.CustomChecks {
		if !cfg.IsCheckEnabled(cc.Name) {
			logger.Debug("custom check disabled by configuration", "check", cc.Name)
			continue
		}
		compiled, err := Compile(cc.Name, cc.Source, logger)
		if err != nil {
			logger.Warn("skipping custom check", "check", cc.Name, "error", err)
			continue
		}
		loaded = append(loaded, compiled)
	}
	return loaded
}

// LoadDir compiles every *.star file in dir, in lexical order. The file
// stem becomes the check name. Missing directories are an error;
// individual compile failures are logged and skipped.
func LoadDir(cfg *config.Config, dir string, logger *slog.Logger) ([]*CustomCheck, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read custom checks dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".star") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var loaded []*CustomCheck
	for _, name := range names {
		checkName := strings.TrimSuffix(name, ".star")
		if !cfg.IsCheckEnabled(checkName) {
			logger.Debug("custom check disabled by configuration", "check", checkName)
			continue
		}

		source, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("skipping custom check", "check", checkName, "error", err)
			continue
		}

		compiled, err := Compile(checkName, string(source), logger)
		if err != nil {
			logger.Warn("skipping custom check", "check", checkName, "error", err)
			continue
		}
		loaded = append(loaded, compiled)
	}
	return loaded, nil
}
