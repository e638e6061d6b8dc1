package ontology

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a vocabulary file of the shape
//
//	metaphors:
//	  "pressure/tightness": [tension, constriction]
//	emotional_biomarkers:
//	  fear: [apprehension]
//
// and builds an index from it. The file replaces the built-in vocabulary
// entirely; merging is deliberately not supported so a deployment's
// vocabulary has exactly one source of truth.
func LoadFile(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ontology file: %w", err)
	}
	var data map[string]map[string][]string
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse ontology file %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("ontology file %s registers no categories", path)
	}
	for category, phrases := range data {
		if len(phrases) == 0 {
			return nil, fmt.Errorf("ontology category %q registers no phrases", category)
		}
	}
	return NewIndex(data), nil
}
