// Package config loads CLI settings from defaults, config file,
// environment variables, and flags.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	runconfig "github.com/leapstack-labs/pgguard/internal/config"
)

// Default values applied before any other source.
const (
	DefaultOutput = "text"
)

// Settings is the full CLI configuration: the analysis run configuration
// plus presentation options.
type Settings struct {
	runconfig.Config `koanf:",squash"`

	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`

	// Output selects the result format: text or json.
	Output string `koanf:"output"`
}

// loggerKey is used to store the logger in the command context. Shared
// with root.go via LoggerKey to avoid an import cycle with the commands
// package.
type loggerKey struct{}

// Package-level tracking of the most recent load, for access by commands.
var (
	configFileUsed  string
	currentSettings *Settings
)

// findConfigFile picks the config file to use.
// Priority: explicit path > pgguard.yaml > pgguard.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"pgguard.yaml", "pgguard.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// LoadSettings loads configuration from file, environment variables, and
// flags. Precedence (highest to lowest): flags > env vars > config file >
// defaults.
func LoadSettings(cfgFile string, flags *pflag.FlagSet) (*Settings, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"framework":        runconfig.FrameworkDiesel,
		"check_down":       false,
		"postgres_version": 0,
		"verbose":          false,
		"output":           DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment variables: PGGUARD_START_AFTER -> start_after
	if err := k.Load(env.Provider("PGGUARD_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "PGGUARD_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")

			// The CLI uses --disable for brevity; the config key is
			// disable_checks.
			if key == "disable" {
				return "disable_checks", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := s.Config.Validate(); err != nil {
		return nil, err
	}

	currentSettings = &s
	return &s, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentSettings returns the settings loaded by the most recent
// LoadSettings call, or defaults when none has run.
func GetCurrentSettings() *Settings {
	if currentSettings != nil {
		return currentSettings
	}
	return &Settings{
		Config: *runconfig.Default(),
		Output: DefaultOutput,
	}
}

// ResetSettings clears the loaded settings. Used for testing.
func ResetSettings() {
	configFileUsed = ""
	currentSettings = nil
}

// LoggerKey returns the context key used for storing the logger. This
// allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
