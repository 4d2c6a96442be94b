package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgguard/internal/checker"
	"github.com/leapstack-labs/pgguard/internal/cli/output"
)

// defaultMigrationsDir is checked when no path argument is given.
const defaultMigrationsDir = "migrations"

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Path   string // File or directory path
	Format string // Output format: text, json
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}
	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Check SQL migrations for unsafe operations",
		Long: `Analyze migration files for operations that can lock tables or break
running applications, such as non-concurrent index builds, column drops,
and type changes.

Statements wrapped in safety-assured comment blocks are exempt:

  -- safety-assured:start
  DROP TABLE legacy_events;
  -- safety-assured:end`,
		Example: `  # Check the default migrations directory
  pgguard check

  # Check a specific directory or file
  pgguard check db/migrations
  pgguard check migrations/2024_06_01_000000_add_index/up.sql

  # Include down migrations, output as JSON
  pgguard check --check-down --output json

  # Only check migrations after a given version
  pgguard check --start-after 2024_01_01_000000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = defaultMigrationsDir
			if len(args) > 0 {
				opts.Path = args[0]
			}
			return runCheck(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json")

	return cmd
}

func runCheck(cmd *cobra.Command, opts *CheckOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	// Override renderer if format flag is set
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ParseMode(opts.Format))
	}

	results, err := cmdCtx.Checker.CheckPath(cmd.Context(), opts.Path)
	if err != nil {
		return err
	}

	hasIssues := renderCheckResults(r, results)
	if hasIssues {
		return fmt.Errorf("unsafe migration operations found")
	}
	return nil
}

// CheckSummary is the aggregate result of a check run.
type CheckSummary struct {
	FilesChecked int `json:"files_checked"`
	TotalIssues  int `json:"total_issues"`
}

// CheckJSONOutput is the JSON output structure for the check command.
type CheckJSONOutput struct {
	Summary CheckSummary         `json:"summary"`
	Files   []checker.FileResult `json:"files"`
}

func renderCheckResults(r *output.Renderer, results []checker.FileResult) bool {
	summary := CheckSummary{FilesChecked: len(results)}
	for _, res := range results {
		summary.TotalIssues += len(res.Findings)
	}

	if r.Mode() == output.ModeJSON {
		// Keep only files with findings in machine output.
		jsonOutput := CheckJSONOutput{Summary: summary}
		for _, res := range results {
			if len(res.Findings) > 0 {
				jsonOutput.Files = append(jsonOutput.Files, res)
			}
		}
		_ = r.JSON(jsonOutput)
		return summary.TotalIssues > 0
	}

	if summary.TotalIssues == 0 {
		r.Printf("No unsafe operations found in %d files\n", summary.FilesChecked)
		return false
	}

	for _, res := range results {
		if len(res.Findings) == 0 {
			continue
		}
		r.Println(res.Path)
		for _, f := range res.Findings {
			r.Printf("  line %d: %s\n", f.Line, f.Operation)
			for _, line := range strings.Split(f.Problem, "\n") {
				r.Printf("    %s\n", line)
			}
			r.Println("    Suggested fix:")
			for _, line := range strings.Split(f.Solution, "\n") {
				r.Printf("      %s\n", line)
			}
		}
		r.Println("")
	}

	r.Printf("Summary: %d issues in %d files\n", summary.TotalIssues, summary.FilesChecked)
	return true
}
