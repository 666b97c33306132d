package state

import "github.com/screenwatch/screenwatch/internal/models"

// Resolution is the detailed outcome of one resolve call.
type Resolution struct {
	// State is always a member of the closed state set.
	State models.GameState

	// Rule is the name of the winning rule, empty when none matched.
	Rule string

	// Missing lists referenced detectors absent from the result set.
	Missing []string
}

// Resolver maps result sets to states using a validated rule table.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	table *RuleTable
}

// NewResolver creates a Resolver over table.
func NewResolver(table *RuleTable) *Resolver {
	return &Resolver{table: table}
}

// Table returns the resolver's rule table.
func (r *Resolver) Table() *RuleTable {
	return r.table
}

// Resolve returns the state of the first matching rule, or UNKNOWN.
func (r *Resolver) Resolve(results models.ResultSet) models.GameState {
	if r == nil || r.table == nil {
		return models.GameStateUnknown
	}
	if rule, ok := r.table.Evaluate(results); ok {
		return rule.State
	}
	return models.GameStateUnknown
}

// ResolveDetailed is Resolve plus the winning rule and missing detectors.
func (r *Resolver) ResolveDetailed(results models.ResultSet) Resolution {
	resolution := Resolution{State: models.GameStateUnknown}
	if r == nil || r.table == nil {
		return resolution
	}

	for _, name := range r.table.detectors {
		if !results.Has(name) {
			resolution.Missing = append(resolution.Missing, name)
		}
	}

	if rule, ok := r.table.Evaluate(results); ok {
		resolution.State = rule.State
		resolution.Rule = rule.Name
	}
	return resolution
}
