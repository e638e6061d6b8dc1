package override

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/AryaShetye/clarify-md/internal/types"
)

func TestEvaluateHighRiskCategories_Table(t *testing.T) {
	t.Parallel()

	engine := MustDefault()

	cases := []struct {
		name         string
		text         string
		wantLevel    types.RiskLevel
		wantCategory string
	}{
		{
			name:         "chest_pain",
			text:         "I feel a tight band around my chest and mild chest pain",
			wantLevel:    types.RiskHigh,
			wantCategory: "chest-pain",
		},
		{
			name:         "dyspnea",
			text:         "since this morning I have shortness of breath",
			wantLevel:    types.RiskHigh,
			wantCategory: "dyspnea",
		},
		{
			name:         "dyspnea_apostrophe",
			text:         "I can't breathe when I lie down",
			wantLevel:    types.RiskHigh,
			wantCategory: "dyspnea",
		},
		{
			name:         "focal_neuro_droop",
			text:         "my wife says my face is drooping on the left",
			wantLevel:    types.RiskHigh,
			wantCategory: "focal-neuro",
		},
		{
			name:         "focal_neuro_speech",
			text:         "I keep slurring my words since lunch",
			wantLevel:    types.RiskHigh,
			wantCategory: "focal-neuro",
		},
		{
			name:         "loss_of_consciousness",
			text:         "I passed out in the kitchen for a minute",
			wantLevel:    types.RiskHigh,
			wantCategory: "loss-of-consciousness",
		},
		{
			name:         "seizure",
			text:         "he had a seizure lasting two minutes",
			wantLevel:    types.RiskHigh,
			wantCategory: "loss-of-consciousness",
		},
		{
			name:         "trauma_conjunction_both",
			text:         "I fell off a ladder and now I cannot put weight on my ankle",
			wantLevel:    types.RiskHigh,
			wantCategory: "trauma-immobility",
		},
		{
			name:      "no_match_defaults_low",
			text:      "I feel a bit tired",
			wantLevel: types.RiskLow,
		},
		{
			name:      "empty_text",
			text:      "",
			wantLevel: types.RiskLow,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			floor := engine.Evaluate(tc.text)
			if floor.Level != tc.wantLevel {
				t.Fatalf("level = %v, want %v (patterns: %v)", floor.Level, tc.wantLevel, floor.TriggeredPatterns)
			}
			if tc.wantCategory == "" {
				if len(floor.TriggeredPatterns) != 0 {
					t.Fatalf("expected no patterns, got %v", floor.TriggeredPatterns)
				}
				return
			}
			found := false
			for _, p := range floor.TriggeredPatterns {
				if strings.HasPrefix(p, tc.wantCategory+":") {
					found = true
				}
			}
			if !found {
				t.Fatalf("no %q pattern in %v", tc.wantCategory, floor.TriggeredPatterns)
			}
		})
	}
}

func TestEvaluateConjunctionRequiresBothSubPatterns(t *testing.T) {
	t.Parallel()

	engine := MustDefault()

	// Trauma language alone does not trigger the conjunction rule.
	if floor := engine.Evaluate("I twisted my ankle during football"); floor.Level != types.RiskLow {
		t.Fatalf("trauma alone escalated: %+v", floor)
	}
	// Weight-bearing language alone does not either.
	if floor := engine.Evaluate("I cannot put weight on my left foot today"); floor.Level != types.RiskLow {
		t.Fatalf("weight-bearing alone escalated: %+v", floor)
	}
	// Both together do.
	floor := engine.Evaluate("I twisted my ankle during football and now I cannot put weight on it")
	if floor.Level != types.RiskHigh {
		t.Fatalf("conjunction did not escalate: %+v", floor)
	}
}

func TestEvaluateCaseInsensitiveSubstring(t *testing.T) {
	t.Parallel()

	engine := MustDefault()
	floor := engine.Evaluate("SUDDEN CHEST PAIN!!!")
	if floor.Level != types.RiskHigh {
		t.Fatalf("uppercase narrative must still trigger: %+v", floor)
	}
}

func TestEvaluateIsPureAndDeterministic(t *testing.T) {
	t.Parallel()

	engine := MustDefault()
	text := "chest pain, trouble breathing, and I fainted"
	first := engine.Evaluate(text)
	for i := 0; i < 100; i++ {
		if diff := cmp.Diff(first, engine.Evaluate(text)); diff != "" {
			t.Fatalf("evaluation %d diverged:\n%s", i, diff)
		}
	}
	if first.Level != types.RiskHigh {
		t.Fatalf("level = %v, want HIGH", first.Level)
	}
	// Three distinct categories triggered, deduplicated, in table order.
	if len(first.TriggeredPatterns) != 3 {
		t.Fatalf("patterns = %v, want 3 entries", first.TriggeredPatterns)
	}
	wantPrefixes := []string{"chest-pain:", "dyspnea:", "loss-of-consciousness:"}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(first.TriggeredPatterns[i], prefix) {
			t.Errorf("pattern %d = %q, want prefix %q (table order)", i, first.TriggeredPatterns[i], prefix)
		}
	}
}

func TestTableValidateRejectsBrokenRules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		table Table
	}{
		{"empty", Table{}},
		{"no_category", Table{Rules: []Rule{{Level: types.RiskHigh, AnyOf: []string{"x"}, Flag: "f"}}}},
		{"no_flag", Table{Rules: []Rule{{Category: "c", Level: types.RiskHigh, AnyOf: []string{"x"}}}}},
		{"neither_matcher", Table{Rules: []Rule{{Category: "c", Level: types.RiskHigh, Flag: "f"}}}},
		{"both_matchers", Table{Rules: []Rule{{Category: "c", Level: types.RiskHigh, AnyOf: []string{"x"}, AllOf: [][]string{{"y"}}, Flag: "f"}}}},
		{"empty_group", Table{Rules: []Rule{{Category: "c", Level: types.RiskHigh, AllOf: [][]string{{}}, Flag: "f"}}}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if err := tc.table.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadTableFromYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	body := `
rules:
  - category: envenomation
    level: HIGH
    any_of: ["snake bite", "bitten by a snake"]
    flag: possible envenomation
  - category: burns
    level: MODERATE
    any_of: ["burned my hand"]
    flag: thermal injury
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	engine, err := NewEngine(table)
	if err != nil {
		t.Fatal(err)
	}
	if floor := engine.Evaluate("I was bitten by a snake an hour ago"); floor.Level != types.RiskHigh {
		t.Fatalf("custom rule did not trigger: %+v", floor)
	}
	if floor := engine.Evaluate("I burned my hand on the stove"); floor.Level != types.RiskModerate {
		t.Fatalf("moderate rule = %+v", floor)
	}
	// The built-in rules are replaced entirely.
	if floor := engine.Evaluate("chest pain"); floor.Level != types.RiskLow {
		t.Fatalf("built-in rules must not leak into a loaded table: %+v", floor)
	}
}

func TestLoadTableRejectsBadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("rules: [{category: x}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTable(path); err == nil {
		t.Fatal("malformed YAML must be rejected")
	}
}
