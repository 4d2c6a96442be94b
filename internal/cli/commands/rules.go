package commands

import (
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/pgguard/internal/checks"
	"github.com/leapstack-labs/pgguard/internal/cli/output"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Format string // Output format
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List active safety checks",
		Long: `List the checks that will run with the current configuration:
built-in checks minus anything disabled, plus loaded custom checks.`,
		Example: `  # List active checks
  pgguard rules

  # Output as JSON
  pgguard rules --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listRules(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json")

	return cmd
}

// RuleInfo describes one active check.
type RuleInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// RulesJSONOutput is the JSON output structure for the rules listing.
type RulesJSONOutput struct {
	Rules []RuleInfo `json:"rules"`
	Count struct {
		Builtin int `json:"builtin"`
		Custom  int `json:"custom"`
		Total   int `json:"total"`
	} `json:"count"`
}

func listRules(cmd *cobra.Command, opts *RulesOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer

	// Override renderer if format flag is set
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ParseMode(opts.Format))
	}

	builtin := checks.BuiltinNames()
	var rules []RuleInfo
	for _, name := range cmdCtx.Checker.Registry().Names() {
		kind := "custom"
		if slices.Contains(builtin, name) {
			kind = "builtin"
		}
		rules = append(rules, RuleInfo{Name: name, Kind: kind})
	}

	if r.Mode() == output.ModeJSON {
		jsonOutput := RulesJSONOutput{Rules: rules}
		for _, rule := range rules {
			if rule.Kind == "builtin" {
				jsonOutput.Count.Builtin++
			} else {
				jsonOutput.Count.Custom++
			}
		}
		jsonOutput.Count.Total = len(rules)
		return r.JSON(jsonOutput)
	}

	rows := make([]table.Row, 0, len(rules))
	for _, rule := range rules {
		rows = append(rows, table.Row{rule.Name, rule.Kind})
	}
	r.Table(table.Row{"Check", "Kind"}, rows)
	r.Printf("(%d checks)\n", len(rules))
	return nil
}
