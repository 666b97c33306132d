package state

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/screenwatch/screenwatch/internal/models"
)

func found(names ...string) models.ResultSet {
	results := make(map[string]models.DetectorResult, len(names))
	for _, name := range names {
		results[name] = models.DetectorResult{Found: true, Confidence: 0.9}
	}
	return models.NewResultSet(results)
}

func mustTable(t *testing.T, rules ...Rule) *RuleTable {
	t.Helper()
	table, err := NewRuleTable(rules)
	if err != nil {
		t.Fatalf("NewRuleTable: %v", err)
	}
	return table
}

func TestResolveSingleRuleMatch(t *testing.T) {
	table := mustTable(t, Rule{
		State:    models.GameStateInRun,
		Priority: 10,
		When:     Condition{RequireAll: []string{"AUTO_RED_ICON"}},
	})
	resolver := NewResolver(table)

	if got := resolver.Resolve(found("AUTO_RED_ICON")); got != models.GameStateInRun {
		t.Fatalf("Resolve = %s, want %s", got, models.GameStateInRun)
	}
}

func TestResolveEmptyResultSetIsUnknown(t *testing.T) {
	table, err := NewRuleTableFromSpecs(DefaultRuleSpecs())
	if err != nil {
		t.Fatalf("default rules: %v", err)
	}
	resolver := NewResolver(table)

	if got := resolver.Resolve(models.NewResultSet(nil)); got != models.GameStateUnknown {
		t.Fatalf("Resolve(empty) = %s, want UNKNOWN", got)
	}
}

func TestResolvePriorityOrder(t *testing.T) {
	table, err := NewRuleTableFromSpecs(DefaultRuleSpecs())
	if err != nil {
		t.Fatalf("default rules: %v", err)
	}
	resolver := NewResolver(table)

	tests := []struct {
		name    string
		results models.ResultSet
		want    models.GameState
	}{
		{"dead beats net reveal", found("DEATH_TEXT", "NET_REVEAL_TEXT"), models.GameStateDead},
		{"dead beats in run", found("DEATH_TEXT", "END_RUN_TEXT"), models.GameStateDead},
		{"in run via auto icon", found("AUTO_GREEN_ICON"), models.GameStateInRun},
		{"menu via leave button", found("LEAVE_BUTTON"), models.GameStateMenu},
		{"loading beats menu", found("LOADING_ICON", "START_BUTTON_TEXT"), models.GameStateLoading},
		{"unrelated detector", found("SOMETHING_ELSE"), models.GameStateUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolver.Resolve(tt.results); got != tt.want {
				t.Fatalf("Resolve = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	table, err := NewRuleTableFromSpecs(DefaultRuleSpecs())
	if err != nil {
		t.Fatalf("default rules: %v", err)
	}
	resolver := NewResolver(table)
	results := found("END_RUN_TEXT", "START_BUTTON_TEXT")

	first := resolver.Resolve(results)
	for i := 0; i < 10; i++ {
		if got := resolver.Resolve(results); got != first {
			t.Fatalf("Resolve changed from %s to %s", first, got)
		}
	}
	if !first.IsValid() {
		t.Fatalf("Resolve returned state outside the closed set: %q", first)
	}
}

func TestResolveDetailedReportsMissing(t *testing.T) {
	table := mustTable(t,
		Rule{Name: "dead", State: models.GameStateDead, Priority: 2, When: Condition{RequireAll: []string{"DEATH_TEXT"}}},
		Rule{Name: "run", State: models.GameStateInRun, Priority: 1, When: Condition{RequireAll: []string{"AUTO_RED_ICON"}}},
	)
	resolver := NewResolver(table)

	resolution := resolver.ResolveDetailed(found("AUTO_RED_ICON"))
	if resolution.State != models.GameStateInRun || resolution.Rule != "run" {
		t.Fatalf("unexpected resolution: %+v", resolution)
	}
	if len(resolution.Missing) != 1 || resolution.Missing[0] != "DEATH_TEXT" {
		t.Fatalf("Missing = %v, want [DEATH_TEXT]", resolution.Missing)
	}
}

func TestMinConfidence(t *testing.T) {
	table := mustTable(t, Rule{
		State:    models.GameStateDead,
		Priority: 1,
		When:     Condition{RequireAll: []string{"DEATH_TEXT"}, MinConfidence: 0.8},
	})
	resolver := NewResolver(table)

	weak := models.NewResultSet(map[string]models.DetectorResult{
		"DEATH_TEXT": {Found: true, Confidence: 0.5},
	})
	if got := resolver.Resolve(weak); got != models.GameStateUnknown {
		t.Fatalf("low-confidence hit resolved to %s", got)
	}

	strong := models.NewResultSet(map[string]models.DetectorResult{
		"DEATH_TEXT": {Found: true, Confidence: 0.85},
	})
	if got := resolver.Resolve(strong); got != models.GameStateDead {
		t.Fatalf("high-confidence hit resolved to %s", got)
	}
}

func TestEqualPriorityTieBreakIsDeclarationOrder(t *testing.T) {
	table := mustTable(t,
		Rule{Name: "first", State: models.GameStateMenu, Priority: 5, When: Condition{RequireAll: []string{"A"}}},
		Rule{Name: "second", State: models.GameStateMenu, Priority: 5, When: Condition{RequireAll: []string{"B"}}},
	)

	rules := table.Rules()
	if rules[0].Name != "first" || rules[1].Name != "second" {
		t.Fatalf("unexpected order: %s, %s", rules[0].Name, rules[1].Name)
	}
	rule, ok := table.Evaluate(found("A", "B"))
	if !ok || rule.Name != "first" {
		t.Fatalf("Evaluate = %q, want first", rule.Name)
	}
}

func TestRuleTableValidation(t *testing.T) {
	tests := []struct {
		name    string
		rules   []Rule
		wantErr string
	}{
		{
			name:    "empty",
			rules:   nil,
			wantErr: "at least one rule",
		},
		{
			name: "equal priority overlap",
			rules: []Rule{
				{Name: "a", State: models.GameStateDead, Priority: 10, When: Condition{RequireAll: []string{"X"}}},
				{Name: "b", State: models.GameStateInRun, Priority: 10, When: Condition{RequireAll: []string{"Y"}}},
			},
			wantErr: "share priority 10",
		},
		{
			name: "always true above lowest",
			rules: []Rule{
				{Name: "catch-all", State: models.GameStateMenu, Priority: 10},
				{Name: "dead", State: models.GameStateDead, Priority: 5, When: Condition{RequireAll: []string{"X"}}},
			},
			wantErr: "unreachable",
		},
		{
			name: "always true unknown",
			rules: []Rule{
				{Name: "fallback", State: models.GameStateUnknown, Priority: 0},
			},
			wantErr: "already the default",
		},
		{
			name: "contradictory",
			rules: []Rule{
				{Name: "never", State: models.GameStateDead, Priority: 1, When: Condition{RequireAll: []string{"X"}, RequireNone: []string{"X"}}},
			},
			wantErr: "can never match",
		},
		{
			name: "unknown state",
			rules: []Rule{
				{Name: "bogus", State: models.GameState("FLYING"), Priority: 1, When: Condition{RequireAll: []string{"X"}}},
			},
			wantErr: "unknown state",
		},
		{
			name: "confidence out of range",
			rules: []Rule{
				{Name: "c", State: models.GameStateDead, Priority: 1, When: Condition{RequireAll: []string{"X"}, MinConfidence: 1.5}},
			},
			wantErr: "outside [0, 1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRuleTable(tt.rules)
			if err == nil {
				t.Fatal("expected configuration error")
			}
			if !errors.Is(err, ErrConfiguration) {
				t.Fatalf("error %v does not wrap ErrConfiguration", err)
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error %T is not a *ConfigurationError", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestRuleTableAcceptsDisjointEqualPriority(t *testing.T) {
	_, err := NewRuleTable([]Rule{
		{Name: "dead", State: models.GameStateDead, Priority: 10, When: Condition{RequireAll: []string{"X"}}},
		{Name: "run", State: models.GameStateInRun, Priority: 10, When: Condition{RequireAll: []string{"Y"}, RequireNone: []string{"X"}}},
		{Name: "fallback", State: models.GameStateMenu, Priority: 0},
	})
	if err != nil {
		t.Fatalf("expected disjoint rules to validate: %v", err)
	}
}

func TestRuleTableDetectorCatalog(t *testing.T) {
	_, err := NewRuleTable([]Rule{
		{Name: "dead", State: models.GameStateDead, Priority: 1, When: Condition{RequireAll: []string{"DEATH_TXT"}}},
	}, WithDetectorCatalog([]string{"DEATH_TEXT"}))
	if err == nil || !strings.Contains(err.Error(), `unknown detector "DEATH_TXT"`) {
		t.Fatalf("expected unknown detector error, got %v", err)
	}
}

func TestBuildRulesRejectsUnknownState(t *testing.T) {
	_, err := BuildRules([]RuleSpec{{Name: "x", State: "swimming", Priority: 1}})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoadRuleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `rules:
  - name: dead
    state: dead
    priority: 100
    require_all: [DEATH_TEXT]
  - name: run
    state: IN_RUN
    priority: 80
    require_any: [AUTO_RED_ICON, AUTO_GREEN_ICON]
    require_none: [DEATH_TEXT]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	specs, err := LoadRuleFile(path)
	if err != nil {
		t.Fatalf("LoadRuleFile: %v", err)
	}
	table, err := NewRuleTableFromSpecs(specs)
	if err != nil {
		t.Fatalf("NewRuleTableFromSpecs: %v", err)
	}
	if got := NewResolver(table).Resolve(found("AUTO_GREEN_ICON")); got != models.GameStateInRun {
		t.Fatalf("Resolve = %s, want IN_RUN", got)
	}
}

func TestTrackerObserve(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tracker := NewTracker(WithClock(func() time.Time { return now }))

	if tracker.Current() != models.GameStateUnknown {
		t.Fatalf("initial state = %s", tracker.Current())
	}

	transition := tracker.Observe(models.GameStateInRun)
	if transition == nil {
		t.Fatal("expected transition")
	}
	if transition.From != models.GameStateUnknown || transition.To != models.GameStateInRun {
		t.Fatalf("unexpected transition: %+v", transition)
	}
	if !transition.At.Equal(now) {
		t.Fatalf("transition at %v, want %v", transition.At, now)
	}

	for i := 0; i < 3; i++ {
		if again := tracker.Observe(models.GameStateInRun); again != nil {
			t.Fatalf("repeat observe returned %+v", again)
		}
	}

	now = now.Add(time.Minute)
	if transition := tracker.Observe(models.GameStateDead); transition == nil || transition.From != models.GameStateInRun {
		t.Fatalf("expected IN_RUN -> DEAD, got %+v", transition)
	}
	if !tracker.Since().Equal(now) {
		t.Fatalf("Since = %v, want %v", tracker.Since(), now)
	}

	tracker.Reset()
	if tracker.Current() != models.GameStateUnknown {
		t.Fatalf("Reset left state %s", tracker.Current())
	}
}

func TestIndependentTrackers(t *testing.T) {
	a := NewTracker()
	b := NewTracker()

	a.Observe(models.GameStateDead)
	if b.Current() != models.GameStateUnknown {
		t.Fatalf("tracker b affected by a: %s", b.Current())
	}
}
