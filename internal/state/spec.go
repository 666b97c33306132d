package state

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/screenwatch/screenwatch/internal/models"
)

// RuleSpec is the configuration form of a Rule.
type RuleSpec struct {
	Name          string   `mapstructure:"name" yaml:"name,omitempty"`
	State         string   `mapstructure:"state" yaml:"state"`
	Priority      int      `mapstructure:"priority" yaml:"priority"`
	RequireAll    []string `mapstructure:"require_all" yaml:"require_all,omitempty"`
	RequireNone   []string `mapstructure:"require_none" yaml:"require_none,omitempty"`
	RequireAny    []string `mapstructure:"require_any" yaml:"require_any,omitempty"`
	MinConfidence float64  `mapstructure:"min_confidence" yaml:"min_confidence,omitempty"`
}

// DefaultRuleSpecs returns the built-in rule set.
func DefaultRuleSpecs() []RuleSpec {
	return []RuleSpec{
		{Name: "dead", State: string(models.GameStateDead), Priority: 100, RequireAll: []string{"DEATH_TEXT"}},
		{Name: "net-reveal", State: string(models.GameStateNetReveal), Priority: 90, RequireAll: []string{"NET_REVEAL_TEXT"}},
		{Name: "disconnected", State: string(models.GameStateDisconnected), Priority: 85, RequireAll: []string{"DISCONNECTED_ICON"}},
		{
			Name:        "in-run",
			State:       string(models.GameStateInRun),
			Priority:    80,
			RequireAny:  []string{"END_RUN_TEXT", "AUTO_RED_ICON", "AUTO_GREEN_ICON"},
			RequireNone: []string{"DEATH_TEXT"},
		},
		{Name: "loading", State: string(models.GameStateLoading), Priority: 70, RequireAll: []string{"LOADING_ICON"}},
		{Name: "menu", State: string(models.GameStateMenu), Priority: 60, RequireAny: []string{"START_BUTTON_TEXT", "LEAVE_BUTTON"}},
	}
}

// BuildRules converts specs into rules. Unknown states are reported as a
// *ConfigurationError.
func BuildRules(specs []RuleSpec) ([]Rule, error) {
	var probs problems
	rules := make([]Rule, 0, len(specs))
	for i, spec := range specs {
		gameState, err := models.ParseGameState(spec.State)
		if err != nil {
			probs.add("rule %d (%q): %v", i, spec.Name, err)
			continue
		}
		rules = append(rules, Rule{
			Name:     strings.TrimSpace(spec.Name),
			State:    gameState,
			Priority: spec.Priority,
			When: Condition{
				RequireAll:    trimNames(spec.RequireAll),
				RequireNone:   trimNames(spec.RequireNone),
				RequireAny:    trimNames(spec.RequireAny),
				MinConfidence: spec.MinConfidence,
			},
		})
	}
	if err := probs.err(); err != nil {
		return nil, err
	}
	return rules, nil
}

// NewRuleTableFromSpecs builds and validates a rule table in one step.
func NewRuleTableFromSpecs(specs []RuleSpec, opts ...TableOption) (*RuleTable, error) {
	rules, err := BuildRules(specs)
	if err != nil {
		return nil, err
	}
	return NewRuleTable(rules, opts...)
}

type ruleFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// LoadRuleFile reads rule specs from a YAML document with a top-level
// "rules" list.
func LoadRuleFile(path string) ([]RuleSpec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("rule file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file %s: %w", path, err)
	}

	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}
	return file.Rules, nil
}

func trimNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, strings.TrimSpace(name))
	}
	return out
}
