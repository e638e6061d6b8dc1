package override

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AryaShetye/clarify-md/internal/types"
)

// DefaultTable returns the built-in escalation rules. Pattern data is
// replaceable via LoadTable; the evaluation algorithm is not.
//
// Matching is substring-based, so phrases are chosen to be unambiguous in
// running text. Bare "fit" is deliberately absent (it hides inside "outfit"
// and "benefit"); seizure language uses longer forms instead.
func DefaultTable() *Table {
	return &Table{Rules: []Rule{
		{
			Category: "chest-pain",
			Level:    types.RiskHigh,
			AnyOf:    []string{"chest pain", "pain in my chest"},
			Flag:     "chest pain with possible cardiac or pulmonary aetiology",
		},
		{
			Category: "chest-pain",
			Level:    types.RiskHigh,
			AnyOf:    []string{"tightness in my chest", "chest tightness", "tight band around my chest"},
			Flag:     "chest tightness",
		},
		{
			Category: "chest-pain",
			Level:    types.RiskHigh,
			AnyOf:    []string{"pressure in my chest", "chest pressure", "crushing feeling in my chest"},
			Flag:     "chest pressure",
		},
		{
			Category: "dyspnea",
			Level:    types.RiskHigh,
			AnyOf:    []string{"shortness of breath", "short of breath"},
			Flag:     "dyspnea / shortness of breath",
		},
		{
			Category: "dyspnea",
			Level:    types.RiskHigh,
			AnyOf:    []string{"can't breathe", "cant breathe", "cannot breathe"},
			Flag:     "subjective inability to breathe",
		},
		{
			Category: "dyspnea",
			Level:    types.RiskHigh,
			AnyOf:    []string{"trouble breathing", "difficulty breathing", "struggling to breathe"},
			Flag:     "respiratory difficulty",
		},
		{
			Category: "trauma-immobility",
			Level:    types.RiskHigh,
			AllOf: [][]string{
				{"fell", "fall", "injury", "injured", "accident", "twisted", "trauma"},
				{"put weight", "bear weight", "bear any weight", "cannot stand", "can't stand", "cant stand", "walk on it", "stand on it"},
			},
			Flag: "recent trauma with inability to bear weight",
		},
		{
			Category: "focal-neuro",
			Level:    types.RiskHigh,
			AnyOf:    []string{"face drooping", "facial droop", "face is drooping"},
			Flag:     "possible facial droop (neurological)",
		},
		{
			Category: "focal-neuro",
			Level:    types.RiskHigh,
			AnyOf:    []string{"slurred speech", "slurring my words"},
			Flag:     "slurred speech (neurological)",
		},
		{
			Category: "focal-neuro",
			Level:    types.RiskHigh,
			AnyOf:    []string{"weakness on one side", "weak on one side"},
			Flag:     "unilateral weakness (neurological)",
		},
		{
			Category: "focal-neuro",
			Level:    types.RiskHigh,
			AnyOf:    []string{"numb on one side", "numbness on one side"},
			Flag:     "unilateral sensory change",
		},
		{
			Category: "focal-neuro",
			Level:    types.RiskHigh,
			AnyOf:    []string{"sudden weakness"},
			Flag:     "sudden focal weakness",
		},
		{
			Category: "loss-of-consciousness",
			Level:    types.RiskHigh,
			AnyOf:    []string{"fainted", "passed out", "blacked out", "blackout", "lost consciousness", "loss of consciousness"},
			Flag:     "loss of consciousness",
		},
		{
			Category: "loss-of-consciousness",
			Level:    types.RiskHigh,
			AnyOf:    []string{"seizure", "convulsion", "had a fit", "having fits"},
			Flag:     "possible seizure activity",
		},
	}}
}

// LoadTable reads an escalation table from YAML:
//
//	rules:
//	  - category: chest-pain
//	    level: HIGH
//	    any_of: ["chest pain"]
//	    flag: chest pain with possible cardiac or pulmonary aetiology
//	  - category: trauma-immobility
//	    level: HIGH
//	    all_of:
//	      - [fell, injury]
//	      - [bear weight, cannot stand]
//	    flag: recent trauma with inability to bear weight
func LoadTable(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read override table: %w", err)
	}
	var table Table
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("parse override table %s: %w", path, err)
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("override table %s: %w", path, err)
	}
	return &table, nil
}
