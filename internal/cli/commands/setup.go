package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgguard/internal/checker"
	"github.com/leapstack-labs/pgguard/internal/cli/config"
	"github.com/leapstack-labs/pgguard/internal/cli/output"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Settings *config.Settings
	Logger   *slog.Logger
	Checker  *checker.Checker
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a fully built checker.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cmdCtx := NewCommandContextWithoutChecker(cmd)

	chk, err := checker.New(&cmdCtx.Settings.Config, cmdCtx.Logger)
	if err != nil {
		return nil, err
	}
	cmdCtx.Checker = chk
	return cmdCtx, nil
}

// NewCommandContextWithoutChecker creates a CommandContext for commands
// that only need settings and rendering.
func NewCommandContextWithoutChecker(cmd *cobra.Command) *CommandContext {
	settings := config.GetCurrentSettings()
	logger := config.GetLogger(cmd.Context())

	mode := output.ParseMode(settings.Output)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Settings: settings,
		Logger:   logger,
		Renderer: r,
	}
}
