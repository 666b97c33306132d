// Package state resolves detector results into a single game state and
// tracks transitions between consecutive resolutions.
package state

import (
	"fmt"
	"slices"
	"strings"

	"github.com/screenwatch/screenwatch/internal/models"
)

// Condition is the data form of a rule predicate. All lists are evaluated
// against one result set; a detector absent from the set counts as not found.
type Condition struct {
	// RequireAll detectors must all be found.
	RequireAll []string

	// RequireNone detectors must all be not found.
	RequireNone []string

	// RequireAny needs at least one found detector when non-empty.
	RequireAny []string

	// MinConfidence is the lowest confidence at which a found detector in
	// RequireAll or RequireAny counts as found for this rule.
	MinConfidence float64
}

// Match evaluates the condition. It has no side effects.
func (c Condition) Match(results models.ResultSet) bool {
	for _, name := range c.RequireAll {
		if !c.hit(results, name) {
			return false
		}
	}
	for _, name := range c.RequireNone {
		if results.Found(name) {
			return false
		}
	}
	if len(c.RequireAny) == 0 {
		return true
	}
	for _, name := range c.RequireAny {
		if c.hit(results, name) {
			return true
		}
	}
	return false
}

func (c Condition) hit(results models.ResultSet, name string) bool {
	result, ok := results.Get(name)
	return ok && result.Found && result.Confidence >= c.MinConfidence
}

// IsUnconditional reports whether the condition matches every result set.
func (c Condition) IsUnconditional() bool {
	return len(c.RequireAll) == 0 && len(c.RequireNone) == 0 && len(c.RequireAny) == 0
}

// Satisfiable reports whether at least one result set can match.
func (c Condition) Satisfiable() bool {
	return jointlySatisfiable(c, Condition{})
}

// Detectors returns every detector name the condition references, sorted
// and without duplicates.
func (c Condition) Detectors() []string {
	names := make([]string, 0, len(c.RequireAll)+len(c.RequireNone)+len(c.RequireAny))
	names = append(names, c.RequireAll...)
	names = append(names, c.RequireNone...)
	names = append(names, c.RequireAny...)
	slices.Sort(names)
	return slices.Compact(names)
}

// String renders the condition for listings, e.g.
// "all(A) none(B) any(C, D) conf>=0.80".
func (c Condition) String() string {
	if c.IsUnconditional() {
		return "always"
	}
	var parts []string
	if len(c.RequireAll) > 0 {
		parts = append(parts, "all("+strings.Join(c.RequireAll, ", ")+")")
	}
	if len(c.RequireNone) > 0 {
		parts = append(parts, "none("+strings.Join(c.RequireNone, ", ")+")")
	}
	if len(c.RequireAny) > 0 {
		parts = append(parts, "any("+strings.Join(c.RequireAny, ", ")+")")
	}
	if c.MinConfidence > 0 {
		parts = append(parts, fmt.Sprintf("conf>=%.2f", c.MinConfidence))
	}
	return strings.Join(parts, " ")
}

// jointlySatisfiable reports whether a single result set can match both a
// and b. Confidence thresholds never conflict because validation keeps them
// within [0, 1], so only found/not-found requirements matter.
func jointlySatisfiable(a, b Condition) bool {
	mustFind := make(map[string]struct{})
	for _, name := range a.RequireAll {
		mustFind[name] = struct{}{}
	}
	for _, name := range b.RequireAll {
		mustFind[name] = struct{}{}
	}

	mustMiss := make(map[string]struct{})
	for _, name := range a.RequireNone {
		mustMiss[name] = struct{}{}
	}
	for _, name := range b.RequireNone {
		mustMiss[name] = struct{}{}
	}

	for name := range mustFind {
		if _, ok := mustMiss[name]; ok {
			return false
		}
	}

	return anyOpen(a.RequireAny, mustMiss) && anyOpen(b.RequireAny, mustMiss)
}

func anyOpen(candidates []string, mustMiss map[string]struct{}) bool {
	if len(candidates) == 0 {
		return true
	}
	for _, name := range candidates {
		if _, blocked := mustMiss[name]; !blocked {
			return true
		}
	}
	return false
}
