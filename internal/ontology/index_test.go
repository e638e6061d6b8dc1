package ontology

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/AryaShetye/clarify-md/internal/types"
)

func TestLookupScoresTokenOverlap(t *testing.T) {
	t.Parallel()

	idx := Default()
	matches := idx.Lookup(CategoryRisk, "I have chest pain and some bleeding", 5)
	if len(matches) < 2 {
		t.Fatalf("expected at least 2 matches, got %d: %+v", len(matches), matches)
	}
	// "chest pain" matches both tokens, "bleeding" only one.
	if matches[0].MatchedPhrase != "chest pain" || matches[0].Score != 2 {
		t.Errorf("top match = %q score %.0f, want \"chest pain\" score 2", matches[0].MatchedPhrase, matches[0].Score)
	}
	for _, m := range matches {
		if m.Score <= 0 {
			t.Errorf("zero-score entry %q must be discarded", m.MatchedPhrase)
		}
	}
}

func TestLookupWholeWordOnly(t *testing.T) {
	t.Parallel()

	// "burning" must not match inside "Hamburgers".
	idx := Default()
	if got := idx.Lookup(CategoryMetaphors, "Hamburgers for dinner", 5); len(got) != 0 {
		t.Fatalf("substring of a larger word must not match, got %+v", got)
	}
	if got := idx.Lookup(CategoryMetaphors, "a burning feeling", 5); len(got) == 0 {
		t.Fatal("whole word must match")
	}
}

func TestLookupDeterministic(t *testing.T) {
	t.Parallel()

	idx := Default()
	query := "tightness and pressure in my chest, heart racing, feeling hollow"
	first := idx.Lookup(CategoryMetaphors, query, 5)
	for i := 0; i < 50; i++ {
		again := idx.Lookup(CategoryMetaphors, query, 5)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("lookup %d diverged (-first +again):\n%s", i, diff)
		}
	}
}

func TestLookupTieBreakLexicographic(t *testing.T) {
	t.Parallel()

	idx := NewIndex(map[string]map[string][]string{
		"test": {
			"zeta":  {"z"},
			"alpha": {"a"},
			"mid":   {"m"},
		},
	})
	got := idx.Lookup("test", "alpha mid zeta", 5)
	want := []string{"alpha", "mid", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("got %d matches, want %d", len(got), len(want))
	}
	for i, phrase := range want {
		if got[i].MatchedPhrase != phrase {
			t.Errorf("position %d = %q, want %q (equal scores sort by phrase)", i, got[i].MatchedPhrase, phrase)
		}
	}
}

func TestLookupLimitAndDefault(t *testing.T) {
	t.Parallel()

	idx := Default()
	query := "chest pain bleeding trauma severe pain mild symptoms persistent symptoms worsening condition"
	if got := idx.Lookup(CategoryRisk, query, 3); len(got) != 3 {
		t.Errorf("limit 3 returned %d", len(got))
	}
	if got := idx.Lookup(CategoryRisk, query, 0); len(got) != DefaultLimit {
		t.Errorf("limit 0 returned %d, want default %d", len(got), DefaultLimit)
	}
}

func TestLookupCaseAndUnicodeFolding(t *testing.T) {
	t.Parallel()

	idx := Default()
	upper := idx.Lookup(CategoryEmotions, "SO MUCH FEAR AND PANIC", 5)
	lower := idx.Lookup(CategoryEmotions, "so much fear and panic", 5)
	if diff := cmp.Diff(upper, lower); diff != "" {
		t.Fatalf("case must not affect results:\n%s", diff)
	}
	// NFKC folds the fullwidth form onto ASCII.
	if got := idx.Lookup(CategoryEmotions, "ｆｅａｒ of everything", 5); len(got) == 0 {
		t.Error("fullwidth input must fold onto the ASCII vocabulary")
	}
}

func TestLookupAlternateKeysShareTerms(t *testing.T) {
	t.Parallel()

	idx := Default()
	pressure := idx.Lookup(CategoryMetaphors, "pressure everywhere", 5)
	tightness := idx.Lookup(CategoryMetaphors, "tightness everywhere", 5)
	if len(pressure) == 0 || len(tightness) == 0 {
		t.Fatal("both alternates of \"pressure/tightness\" must be registered")
	}
	if diff := cmp.Diff(pressure[0].ClinicalTerms, tightness[0].ClinicalTerms); diff != "" {
		t.Fatalf("alternates must share clinical terms:\n%s", diff)
	}
}

func TestLookupUnknownCategoryAndEmptyQuery(t *testing.T) {
	t.Parallel()

	idx := Default()
	if got := idx.Lookup("no_such_category", "chest pain", 5); got != nil {
		t.Errorf("unknown category must return nil, got %+v", got)
	}
	if got := idx.Lookup(CategoryRisk, "   \t\n", 5); got != nil {
		t.Errorf("blank query must return nil, got %+v", got)
	}
}

func TestLookupAllMergesCategories(t *testing.T) {
	t.Parallel()

	idx := Default()
	got := idx.LookupAll("fear and chest pain", 10)
	categories := map[string]bool{}
	for _, m := range got {
		categories[m.Category] = true
	}
	if !categories[CategoryEmotions] || !categories[CategoryRisk] {
		t.Fatalf("LookupAll must span categories, got %+v", got)
	}
	var match types.OntologyMatch
	for _, m := range got {
		if m.MatchedPhrase == "chest pain" {
			match = m
		}
	}
	if match.Score != 2 {
		t.Errorf("chest pain score = %.0f, want 2", match.Score)
	}
}

func TestLoadFileReplacesVocabulary(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vocab.yaml")
	body := `
metaphors:
  "drowning/sinking": [dyspnea, respiratory distress]
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	idx, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := idx.Lookup(CategoryMetaphors, "I feel like I am drowning", 5); len(got) != 1 {
		t.Fatalf("custom vocabulary lookup failed: %+v", got)
	}
	// The built-in vocabulary must be gone.
	if got := idx.Lookup(CategoryMetaphors, "burning feeling", 5); len(got) != 0 {
		t.Error("LoadFile must replace, not merge")
	}
}

func TestLoadFileRejectsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vocab.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("empty vocabulary must be rejected")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("missing file must error")
	}
}
