package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/screenwatch/screenwatch/internal/state"
)

var rulesFile string

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.PersistentFlags().StringVar(&rulesFile, "file", "", "YAML rule file to use instead of the configured rules")
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the state rules in evaluation order",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadRuleTable()
		if err != nil {
			return err
		}
		return printRules(cmd.OutOrStdout(), table)
	},
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate rules against the detector catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadRuleTable()
		if err != nil {
			return err
		}
		if IsJSONOutput() || IsJSONLOutput() {
			return WriteOutput(cmd.OutOrStdout(), map[string]any{"valid": true, "rules": len(table.Rules())})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d rules, %d detectors referenced\n",
			colorize("OK", colorGreen), len(table.Rules()), len(table.Detectors()))
		return nil
	},
}

func loadRuleTable() (*state.RuleTable, error) {
	cfg := GetConfig()
	if rulesFile == "" {
		return cfg.RuleTable()
	}
	specs, err := state.LoadRuleFile(rulesFile)
	if err != nil {
		return nil, err
	}
	return state.NewRuleTableFromSpecs(specs, state.WithDetectorCatalog(cfg.Catalog().Names()))
}

// ruleView is the JSON form of one rule.
type ruleView struct {
	Order    int      `json:"order"`
	Name     string   `json:"name"`
	State    string   `json:"state"`
	Priority int      `json:"priority"`
	All      []string `json:"require_all,omitempty"`
	None     []string `json:"require_none,omitempty"`
	Any      []string `json:"require_any,omitempty"`
	MinConf  float64  `json:"min_confidence,omitempty"`
}

func printRules(out io.Writer, table *state.RuleTable) error {
	rules := table.Rules()

	if IsJSONOutput() || IsJSONLOutput() {
		views := make([]ruleView, 0, len(rules))
		for i, rule := range rules {
			views = append(views, ruleView{
				Order:    i + 1,
				Name:     rule.Name,
				State:    rule.State.String(),
				Priority: rule.Priority,
				All:      rule.When.RequireAll,
				None:     rule.When.RequireNone,
				Any:      rule.When.RequireAny,
				MinConf:  rule.When.MinConfidence,
			})
		}
		return WriteOutput(out, views)
	}

	rows := make([][]string, 0, len(rules))
	for i, rule := range rules {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(rule.Priority),
			rule.Name,
			formatGameState(rule.State),
			rule.When.String(),
			formatYesNo(rule.When.IsUnconditional()),
		})
	}
	return writeTable(out, []string{"ORDER", "PRIORITY", "NAME", "STATE", "CONDITION", "ALWAYS"}, rows)
}
