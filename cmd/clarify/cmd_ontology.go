package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AryaShetye/clarify-md/internal/ontology"
	"github.com/AryaShetye/clarify-md/internal/types"
)

var ontologyLimit int

// ontologyCmd looks up narrative text against the metaphor vocabulary
var ontologyCmd = &cobra.Command{
	Use:   "ontology [category] [text]",
	Short: "Debug lookup against the metaphor ontology",
	Long: `Scores narrative text against the registered clinical vocabulary and
prints the matches the extractors would anchor on. Use category "all" to
search every category.

Examples:
  clarify ontology metaphors "a tight band of pressure around my head"
  clarify ontology risk_indicators "chest pain since this morning"
  clarify ontology all "my heart is fluttering and racing"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runOntologyLookup,
}

func runOntologyLookup(cmd *cobra.Command, args []string) error {
	idx, err := buildIndex()
	if err != nil {
		return err
	}
	if idx == nil {
		idx = ontology.Default()
	}
	category := args[0]
	text := strings.Join(args[1:], " ")

	var matches []types.OntologyMatch
	if category == "all" {
		matches = idx.LookupAll(text, ontologyLimit)
	} else {
		if !containsCategory(idx.Categories(), category) {
			return fmt.Errorf("unknown category %q (have: all, %s)",
				category, strings.Join(idx.Categories(), ", "))
		}
		matches = idx.Lookup(category, text, ontologyLimit)
	}

	if len(matches) == 0 {
		fmt.Println("No ontology matches.")
		return nil
	}

	fmt.Printf("%d match(es) for %q:\n", len(matches), text)
	for _, m := range matches {
		fmt.Printf("  [%.2f] %-22s %q -> %s\n",
			m.Score, m.Category, m.MatchedPhrase, strings.Join(m.ClinicalTerms, ", "))
	}
	return nil
}

func containsCategory(categories []string, want string) bool {
	for _, c := range categories {
		if c == want {
			return true
		}
	}
	return false
}
