// Package override implements the deterministic risk escalation engine: an
// ordered pattern table evaluated against the raw narrative with
// case-insensitive substring matching. The engine is the only escalation
// authority in the system. It never calls out, never blocks, and never fails;
// the reasoning capability may suggest a risk level, but these rules decide
// the floor and nothing downgrades below it.
package override

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/AryaShetye/clarify-md/internal/ontology"
	"github.com/AryaShetye/clarify-md/internal/types"
)

// Rule is one table entry. Exactly one of AnyOf / AllOf is set: AnyOf
// triggers when any phrase occurs in the narrative; AllOf is a conjunction of
// phrase groups, triggering only when every group has at least one hit.
type Rule struct {
	Category string          `yaml:"category"`
	Level    types.RiskLevel `yaml:"level"`
	AnyOf    []string        `yaml:"any_of,omitempty"`
	AllOf    [][]string      `yaml:"all_of,omitempty"`
	// Flag is the clinical description recorded when the rule triggers.
	Flag string `yaml:"flag"`
}

// Table is an ordered rule set. Order matters only for the stable ordering of
// triggered patterns; escalation itself is a maximum over all hits.
type Table struct {
	Rules []Rule `yaml:"rules"`
}

// Validate rejects structurally broken tables before they can be swapped in.
func (t *Table) Validate() error {
	if t == nil || len(t.Rules) == 0 {
		return fmt.Errorf("override table has no rules")
	}
	for i, r := range t.Rules {
		if r.Category == "" {
			return fmt.Errorf("rule %d: missing category", i)
		}
		if r.Flag == "" {
			return fmt.Errorf("rule %d (%s): missing flag", i, r.Category)
		}
		hasAny := len(r.AnyOf) > 0
		hasAll := len(r.AllOf) > 0
		if hasAny == hasAll {
			return fmt.Errorf("rule %d (%s): exactly one of any_of/all_of must be set", i, r.Category)
		}
		for g, group := range r.AllOf {
			if len(group) == 0 {
				return fmt.Errorf("rule %d (%s): all_of group %d is empty", i, r.Category, g)
			}
		}
	}
	return nil
}

// normalized returns a copy of the table with every phrase folded the same
// way narrative text is folded, so matching is case- and width-insensitive.
func (t *Table) normalized() *Table {
	out := &Table{Rules: make([]Rule, len(t.Rules))}
	for i, r := range t.Rules {
		nr := Rule{Category: r.Category, Level: r.Level, Flag: r.Flag}
		for _, p := range r.AnyOf {
			nr.AnyOf = append(nr.AnyOf, ontology.Normalize(p))
		}
		for _, group := range r.AllOf {
			ng := make([]string, 0, len(group))
			for _, p := range group {
				ng = append(ng, ontology.Normalize(p))
			}
			nr.AllOf = append(nr.AllOf, ng)
		}
		out.Rules[i] = nr
	}
	return out
}

// Engine evaluates narratives against the current table. The table is held
// behind an atomic pointer so the watcher can swap in a reloaded table while
// concurrent evaluations keep reading a consistent snapshot.
type Engine struct {
	table atomic.Pointer[Table]
}

// NewEngine builds an engine over a validated table.
func NewEngine(table *Table) (*Engine, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{}
	e.table.Store(table.normalized())
	return e, nil
}

// MustDefault returns an engine over the built-in table. The built-in table
// is covered by tests, so a validation failure here is a programming error.
func MustDefault() *Engine {
	e, err := NewEngine(DefaultTable())
	if err != nil {
		panic(err)
	}
	return e
}

// Swap atomically replaces the active table. Invalid tables are rejected and
// the last-good table stays active.
func (e *Engine) Swap(table *Table) error {
	if err := table.Validate(); err != nil {
		return err
	}
	e.table.Store(table.normalized())
	return nil
}

// RuleCount reports the active table size.
func (e *Engine) RuleCount() int {
	return len(e.table.Load().Rules)
}

// Evaluate computes the risk floor for a narrative. Pure and total with
// respect to the active table: same text, same table, same floor. The floor
// defaults to LOW and rises to the maximum level among triggered rules;
// TriggeredPatterns records each hit as "category: clinical flag" in table
// order.
func (e *Engine) Evaluate(narrativeText string) types.RiskFloor {
	table := e.table.Load()
	text := ontology.Normalize(narrativeText)

	floor := types.RiskFloor{Level: types.RiskLow}
	seen := make(map[string]struct{})
	for _, rule := range table.Rules {
		if !rule.matches(text) {
			continue
		}
		floor.Level = types.MaxRiskLevel(floor.Level, rule.Level)
		entry := rule.Category + ": " + rule.Flag
		if _, dup := seen[entry]; !dup {
			seen[entry] = struct{}{}
			floor.TriggeredPatterns = append(floor.TriggeredPatterns, entry)
		}
	}
	return floor
}

func (r *Rule) matches(text string) bool {
	if len(r.AnyOf) > 0 {
		for _, phrase := range r.AnyOf {
			if strings.Contains(text, phrase) {
				return true
			}
		}
		return false
	}
	for _, group := range r.AllOf {
		hit := false
		for _, phrase := range group {
			if strings.Contains(text, phrase) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return len(r.AllOf) > 0
}
