// Package ontology implements the scored keyword-to-category vocabulary index
// consulted by the extractors. The index is immutable after construction, so
// concurrent lookups need no locking, and retrieval is fully deterministic:
// integer token-overlap scoring with lexicographic tie-breaks.
package ontology

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/AryaShetye/clarify-md/internal/types"
)

// Category names for the built-in vocabulary.
const (
	CategoryMetaphors = "metaphors"
	CategoryEmotions  = "emotional_biomarkers"
	CategoryRisk      = "risk_indicators"
)

// DefaultLimit is the lookup truncation applied when the caller passes
// limit <= 0.
const DefaultLimit = 5

type phraseEntry struct {
	phrase string   // display form, lowercased
	tokens []string // normalized tokens, whole-word match units
	terms  []string // clinical terms this phrase maps to
}

// Index is the read-only vocabulary. Registered key phrases may spell
// alternates as "a/b"; alternates are expanded into separate entries sharing
// one clinical-term list at construction time.
type Index struct {
	categories map[string][]phraseEntry
}

// NewIndex builds an index from category → key phrase → clinical terms data.
// Entries are normalized and sorted at construction so lookups over equal
// scores always tie-break identically.
func NewIndex(data map[string]map[string][]string) *Index {
	idx := &Index{categories: make(map[string][]phraseEntry, len(data))}
	for category, phrases := range data {
		entries := make([]phraseEntry, 0, len(phrases))
		for key, terms := range phrases {
			for _, alt := range strings.Split(key, "/") {
				tokens := Tokenize(alt)
				if len(tokens) == 0 {
					continue
				}
				entries = append(entries, phraseEntry{
					phrase: strings.Join(tokens, " "),
					tokens: tokens,
					terms:  append([]string(nil), terms...),
				})
			}
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].phrase < entries[j].phrase })
		idx.categories[category] = entries
	}
	return idx
}

// Default returns an index over the built-in clinical vocabulary.
func Default() *Index {
	return NewIndex(defaultVocabulary)
}

// Categories lists the registered category names in sorted order.
func (idx *Index) Categories() []string {
	out := make([]string, 0, len(idx.categories))
	for c := range idx.categories {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Lookup scores every key phrase registered under category against queryText
// and returns the top matches. Score is the count of phrase tokens present in
// the query, case-insensitive, whole-word; zero-score entries are discarded.
// Ordering is total: score descending, then phrase, then category,
// lexicographically. An empty result is a valid "no match", not an error.
func (idx *Index) Lookup(category, queryText string, limit int) []types.OntologyMatch {
	return idx.lookup([]string{category}, queryText, limit)
}

// LookupAll runs Lookup across every registered category and merges the
// results under the same total order.
func (idx *Index) LookupAll(queryText string, limit int) []types.OntologyMatch {
	return idx.lookup(idx.Categories(), queryText, limit)
}

func (idx *Index) lookup(categories []string, queryText string, limit int) []types.OntologyMatch {
	if limit <= 0 {
		limit = DefaultLimit
	}
	queryTokens := tokenSet(queryText)
	if len(queryTokens) == 0 {
		return nil
	}

	var matches []types.OntologyMatch
	for _, category := range categories {
		for _, entry := range idx.categories[category] {
			score := 0
			for _, tok := range entry.tokens {
				if _, ok := queryTokens[tok]; ok {
					score++
				}
			}
			if score == 0 {
				continue
			}
			matches = append(matches, types.OntologyMatch{
				Category:      category,
				MatchedPhrase: entry.phrase,
				ClinicalTerms: append([]string(nil), entry.terms...),
				Score:         float64(score),
			})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.MatchedPhrase != b.MatchedPhrase {
			return a.MatchedPhrase < b.MatchedPhrase
		}
		return a.Category < b.Category
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Tokenize lowercases, NFKC-folds and splits text into word tokens. Exposed
// because the override engine normalizes narrative text the same way before
// substring matching.
func Tokenize(text string) []string {
	return strings.FieldsFunc(Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Normalize applies NFKC folding and lowercasing so visually equivalent
// Unicode input matches the registered ASCII vocabulary.
func Normalize(text string) string {
	return strings.ToLower(norm.NFKC.String(text))
}

func tokenSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
