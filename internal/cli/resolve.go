package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/screenwatch/screenwatch/internal/models"
	"github.com/screenwatch/screenwatch/internal/state"
)

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringVar(&rulesFile, "rules", "", "YAML rule file to use instead of the configured rules")
}

var resolveCmd = &cobra.Command{
	Use:   "resolve FILE",
	Short: "Resolve detector result sets from a file",
	Long: `Resolve one or more detector result sets and print the winning rule.

FILE is YAML or JSON, either a single result set under "results" or a list
of named cases under "cases":

  cases:
    - name: dead while running
      results:
        DEATH_TEXT: {found: true, confidence: 0.9}
        AUTO_RED_ICON: {found: true, confidence: 0.8}`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cases, err := loadResolveCases(args[0])
		if err != nil {
			return err
		}
		table, err := loadRuleTable()
		if err != nil {
			return err
		}
		return printResolutions(cmd.OutOrStdout(), resolveCases(state.NewResolver(table), cases))
	},
}

type resolveCase struct {
	Name    string                           `yaml:"name"`
	Results map[string]models.DetectorResult `yaml:"results"`
}

type resolveFile struct {
	Cases   []resolveCase                    `yaml:"cases"`
	Results map[string]models.DetectorResult `yaml:"results"`
}

func loadResolveCases(path string) ([]resolveCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return parseResolveCases(data)
}

func parseResolveCases(data []byte) ([]resolveCase, error) {
	var file resolveFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse result sets: %w", err)
	}
	cases := file.Cases
	if file.Results != nil {
		cases = append([]resolveCase{{Name: "results", Results: file.Results}}, cases...)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no result sets found; expected \"results\" or \"cases\"")
	}
	for i := range cases {
		if cases[i].Name == "" {
			cases[i].Name = fmt.Sprintf("case %d", i+1)
		}
	}
	return cases, nil
}

// resolutionView is the printed outcome of one case.
type resolutionView struct {
	Name    string           `json:"name"`
	State   models.GameState `json:"state"`
	Rule    string           `json:"rule,omitempty"`
	Missing []string         `json:"missing,omitempty"`
}

func resolveCases(resolver *state.Resolver, cases []resolveCase) []resolutionView {
	views := make([]resolutionView, 0, len(cases))
	for _, c := range cases {
		results := make(map[string]models.DetectorResult, len(c.Results))
		for name, result := range c.Results {
			results[strings.ToUpper(strings.TrimSpace(name))] = result
		}
		resolution := resolver.ResolveDetailed(models.NewResultSet(results))
		views = append(views, resolutionView{
			Name:    c.Name,
			State:   resolution.State,
			Rule:    resolution.Rule,
			Missing: resolution.Missing,
		})
	}
	return views
}

func printResolutions(out io.Writer, views []resolutionView) error {
	if IsJSONOutput() || IsJSONLOutput() {
		return WriteOutput(out, views)
	}
	rows := make([][]string, 0, len(views))
	for _, view := range views {
		rule := view.Rule
		if rule == "" {
			rule = "-"
		}
		rows = append(rows, []string{view.Name, formatGameState(view.State), rule, fmt.Sprintf("%d", len(view.Missing))})
	}
	return writeTable(out, []string{"CASE", "STATE", "RULE", "MISSING"}, rows)
}
