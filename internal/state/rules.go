package state

import (
	"fmt"
	"sort"
	"strings"

	"github.com/screenwatch/screenwatch/internal/models"
)

// Rule maps a condition over detector results to a target state.
type Rule struct {
	// Name identifies the rule in logs. Defaults to "<STATE>#<index>".
	Name string

	// State is the state resolved when the rule matches.
	State models.GameState

	// Priority orders evaluation; higher runs first.
	Priority int

	// When is the rule predicate.
	When Condition
}

// RuleTable is a validated, evaluation-ordered list of rules.
//
// Rules run in descending priority; rules sharing a priority run in
// declaration order. Validation guarantees that rules sharing a priority and
// targeting different states can never match the same result set, so the
// declaration-order tie-break never changes the outcome.
type RuleTable struct {
	rules     []Rule
	detectors []string
}

// TableOption configures rule table validation.
type TableOption func(*tableOptions)

type tableOptions struct {
	catalog map[string]struct{}
}

// WithDetectorCatalog rejects rules that reference detectors outside names.
func WithDetectorCatalog(names []string) TableOption {
	return func(o *tableOptions) {
		o.catalog = make(map[string]struct{}, len(names))
		for _, name := range names {
			o.catalog[name] = struct{}{}
		}
	}
}

// NewRuleTable validates rules and returns them in evaluation order.
// Any problem is reported as a *ConfigurationError.
func NewRuleTable(rules []Rule, opts ...TableOption) (*RuleTable, error) {
	var options tableOptions
	for _, opt := range opts {
		opt(&options)
	}

	named := make([]Rule, len(rules))
	for i, rule := range rules {
		if strings.TrimSpace(rule.Name) == "" {
			rule.Name = fmt.Sprintf("%s#%d", rule.State, i)
		}
		named[i] = rule
	}

	if err := validateRules(named, options); err != nil {
		return nil, err
	}

	ordered := make([]Rule, len(named))
	copy(ordered, named)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	seen := make(map[string]struct{})
	var detectors []string
	for _, rule := range ordered {
		for _, name := range rule.When.Detectors() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			detectors = append(detectors, name)
		}
	}
	sort.Strings(detectors)

	return &RuleTable{rules: ordered, detectors: detectors}, nil
}

// Rules returns the rules in evaluation order.
func (t *RuleTable) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Detectors returns every detector referenced by any rule, sorted.
func (t *RuleTable) Detectors() []string {
	out := make([]string, len(t.detectors))
	copy(out, t.detectors)
	return out
}

// Evaluate returns the first matching rule in evaluation order.
func (t *RuleTable) Evaluate(results models.ResultSet) (Rule, bool) {
	for _, rule := range t.rules {
		if rule.When.Match(results) {
			return rule, true
		}
	}
	return Rule{}, false
}

func validateRules(rules []Rule, options tableOptions) error {
	var probs problems

	if len(rules) == 0 {
		probs.add("at least one rule is required")
		return probs.err()
	}

	names := make(map[string]int, len(rules))
	lowest := rules[0].Priority
	for _, rule := range rules {
		if rule.Priority < lowest {
			lowest = rule.Priority
		}
	}

	for i, rule := range rules {
		if prev, ok := names[rule.Name]; ok {
			probs.add("rule %q is declared twice (positions %d and %d)", rule.Name, prev, i)
		}
		names[rule.Name] = i

		if !rule.State.IsValid() {
			probs.add("rule %q targets unknown state %q", rule.Name, rule.State)
		}
		if rule.When.MinConfidence < 0 || rule.When.MinConfidence > 1 {
			probs.add("rule %q: min_confidence %.2f is outside [0, 1]", rule.Name, rule.When.MinConfidence)
		}
		for _, name := range rule.When.Detectors() {
			if strings.TrimSpace(name) == "" {
				probs.add("rule %q references an empty detector name", rule.Name)
				continue
			}
			if options.catalog == nil {
				continue
			}
			if _, ok := options.catalog[name]; !ok {
				probs.add("rule %q references unknown detector %q", rule.Name, name)
			}
		}
		if !rule.When.Satisfiable() {
			probs.add("rule %q can never match: a detector is both required and excluded", rule.Name)
		}

		if rule.When.IsUnconditional() {
			if rule.State == models.GameStateUnknown {
				probs.add("rule %q always matches and targets %s, which is already the default", rule.Name, models.GameStateUnknown)
			}
			if rule.Priority > lowest {
				probs.add("rule %q always matches at priority %d and makes every lower-priority rule unreachable", rule.Name, rule.Priority)
			}
		}
	}

	for i := 0; i < len(rules); i++ {
		for j := i + 1; j < len(rules); j++ {
			a, b := rules[i], rules[j]
			if a.Priority != b.Priority || a.State == b.State {
				continue
			}
			if jointlySatisfiable(a.When, b.When) {
				probs.add("rules %q (%s) and %q (%s) share priority %d and can match the same result set",
					a.Name, a.State, b.Name, b.State, a.Priority)
			}
		}
	}

	return probs.err()
}
